package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/hmis/errors"
)

func TestInsertDiagnoses(t *testing.T) {
	t.Run("inserts in order", func(t *testing.T) {
		s := newTestStore(t)

		require.NoError(t, s.InsertDiagnoses([]string{"Malaria", "Flu"}))

		diagnoses, err := s.ListDiagnoses()
		require.NoError(t, err)
		require.Len(t, diagnoses, 2)
		assert.Equal(t, "Malaria", diagnoses[0].Name)
		assert.Equal(t, "Flu", diagnoses[1].Name)
		assert.Less(t, diagnoses[0].ID, diagnoses[1].ID)
	})

	t.Run("repeated name rolls the whole batch back", func(t *testing.T) {
		s := newTestStore(t)

		err := s.InsertDiagnoses([]string{"flu", "flu"})
		require.Error(t, err)
		assert.True(t, errors.IsConstraintViolation(err))

		diagnoses, err := s.ListDiagnoses()
		require.NoError(t, err)
		assert.Empty(t, diagnoses, "first flu must not survive the rollback")
	})

	t.Run("name already stored rolls the batch back", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.InsertDiagnoses([]string{"Flu"}))

		err := s.InsertDiagnoses([]string{"Malaria", "Flu"})
		require.Error(t, err)
		assert.True(t, errors.IsConstraintViolation(err))

		names, err := s.DiagnosisNames()
		require.NoError(t, err)
		assert.Equal(t, []string{"Flu"}, names)
	})

	t.Run("names are case sensitive", func(t *testing.T) {
		s := newTestStore(t)
		assert.NoError(t, s.InsertDiagnoses([]string{"flu", "Flu"}))
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		s := New(nil)
		assert.NoError(t, s.InsertDiagnoses(nil))
	})
}

func TestListDiagnoses(t *testing.T) {
	s := newTestStore(t)

	diagnoses, err := s.ListDiagnoses()
	require.NoError(t, err)
	assert.NotNil(t, diagnoses)
	assert.Empty(t, diagnoses)
}

func TestDiagnosisExists(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertDiagnoses([]string{"Malaria"}))

	exists, err := s.DiagnosisExists("Malaria")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.DiagnosisExists("malaria")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.DiagnosisExists("")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRegisterDiagnosis(t *testing.T) {
	s := newTestStore(t)

	added, err := s.RegisterDiagnosis("  Typhoid ")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.RegisterDiagnosis("Typhoid")
	require.NoError(t, err)
	assert.False(t, added)

	added, err = s.RegisterDiagnosis("   ")
	require.NoError(t, err)
	assert.False(t, added)

	names, err := s.DiagnosisNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"Typhoid"}, names)
}

func TestSeedVocabulary(t *testing.T) {
	t.Run("seeds an empty vocabulary", func(t *testing.T) {
		s := newTestStore(t)

		n, err := s.SeedVocabulary([]string{"Malaria", " Flu ", "", "Malaria"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		names, err := s.DiagnosisNames()
		require.NoError(t, err)
		assert.Equal(t, []string{"Malaria", "Flu"}, names)
	})

	t.Run("leaves an existing vocabulary alone", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.InsertDiagnoses([]string{"Cholera"}))

		n, err := s.SeedVocabulary([]string{"Malaria", "Flu"})
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		names, err := s.DiagnosisNames()
		require.NoError(t, err)
		assert.Equal(t, []string{"Cholera"}, names)
	})
}

func TestNormalizeNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, NormalizeNames([]string{" a", "b ", "a", "", "  "}))
	assert.Empty(t, NormalizeNames(nil))
}
