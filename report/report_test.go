package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/teranos/hmis/encounter"
	"github.com/teranos/hmis/errors"
)

func sample() []encounter.Encounter {
	mk := func(id string, sex encounter.Sex, att encounter.Attendance, dx ...string) encounter.Encounter {
		return encounter.Encounter{
			AgeCategory: encounter.Adult,
			Sex:         sex,
			Attendance:  att,
			Diagnoses:   dx,
			PatientID:   id,
			Year:        2024,
			Month:       6,
		}
	}
	return []encounter.Encounter{
		mk("001", encounter.Male, encounter.FirstVisit, "Malaria"),
		mk("002", encounter.Female, encounter.FirstVisit, "Malaria"),
		mk("003", encounter.Male, encounter.RepeatVisit, "Flu", "Measles"),
	}
}

func TestBuild(t *testing.T) {
	r := Build(2024, 6, sample(), []string{"Malaria", "Flu", "Cholera"}, Options{Top: 2})

	assert.Equal(t, 3, r.Encounters)
	assert.Zero(t, r.Skipped)
	assert.Equal(t, 1, r.Diagnosis.Count("Malaria", encounter.Adult, encounter.Female))
	assert.Contains(t, r.Diagnosis, "Cholera")
	assert.Equal(t, []string{"Malaria", "Flu", "Cholera", "Measles"}, r.DiagnosisOrder())
	require.Len(t, r.Top, 2)
	assert.Equal(t, "Malaria", r.Top[0].Name)
	assert.Equal(t, 2, r.Top[0].Count)
	assert.Equal(t, "Flu", r.Top[1].Name)
}

func TestBuild_HideEmpty(t *testing.T) {
	r := Build(2024, 6, sample(), []string{"Malaria", "Flu", "Cholera"}, Options{HideEmpty: true})

	assert.NotContains(t, r.Diagnosis, "Cholera")
	assert.Equal(t, []string{"Malaria", "Flu", "Measles"}, r.DiagnosisOrder())
	assert.Len(t, r.Attendance, 2, "attendance rows are never hidden")
	assert.Empty(t, r.Top)
}

func TestWrite_Table(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	r := Build(2024, 6, sample(), []string{"Malaria", "Flu"}, Options{Top: 1})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r, FormatTable))
	out := buf.String()

	assert.Contains(t, out, "HMIS 2024-06: 3 encounters")
	assert.Contains(t, out, "New attendance")
	assert.Contains(t, out, "Re-attendance")
	assert.Contains(t, out, "20y+ M")
	assert.Contains(t, out, "Measles")
	assert.Contains(t, out, "Total")
}

func TestWrite_JSON(t *testing.T) {
	r := Build(2024, 6, sample(), []string{"Malaria"}, Options{})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r, FormatJSON))

	var decoded struct {
		Year      int                                  `json:"year"`
		Diagnosis map[string]map[string]map[string]int `json:"diagnosis"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2024, decoded.Year)
	assert.Equal(t, 1, decoded.Diagnosis["Malaria"]["20 years and above"]["Male"])
	assert.NotContains(t, buf.String(), `"top"`)
}

func TestWrite_YAML(t *testing.T) {
	r := Build(2024, 6, sample(), nil, Options{Top: 3})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r, "YAML"))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 6, decoded["month"])
	assert.Len(t, decoded["top"], 3)
}

func TestWrite_TOML(t *testing.T) {
	r := Build(2024, 6, sample(), nil, Options{})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r, FormatTOML))

	var decoded struct {
		Encounters int                                  `toml:"encounters"`
		Attendance map[string]map[string]map[string]int `toml:"attendance"`
	}
	require.NoError(t, toml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 3, decoded.Encounters)
	assert.Equal(t, 1, decoded.Attendance["NO"]["20 years and above"]["Male"])
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, Build(2024, 6, nil, nil, Options{}), "csv")
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
}

func TestBuild_TopTiesFollowEncounterOrder(t *testing.T) {
	r := Build(2024, 6, sample(), []string{"Measles", "Flu", "Malaria"}, Options{Top: 3})

	assert.Equal(t, []string{"Measles", "Flu", "Malaria"}, r.DiagnosisOrder(), "rows keep vocabulary order")
	require.Len(t, r.Top, 3)
	assert.Equal(t, "Malaria", r.Top[0].Name)
	assert.Equal(t, "Flu", r.Top[1].Name, "first mentioned before Measles")
	assert.Equal(t, "Measles", r.Top[2].Name)
}

func TestWriteTop(t *testing.T) {
	r := Build(2024, 6, sample(), []string{"Malaria", "Flu"}, Options{Top: 2})

	t.Run("table", func(t *testing.T) {
		pterm.DisableStyling()
		defer pterm.EnableStyling()

		var buf bytes.Buffer
		require.NoError(t, WriteTop(&buf, r, FormatTable))
		out := buf.String()
		assert.Contains(t, out, "top diagnoses of 3 encounters")
		assert.Contains(t, out, "Malaria")
		assert.NotContains(t, out, "Attendance")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteTop(&buf, r, FormatJSON))

		var decoded TopList
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, 6, decoded.Month)
		require.Len(t, decoded.Top, 2)
		assert.Equal(t, "Malaria", decoded.Top[0].Name)
	})

	t.Run("empty ranking", func(t *testing.T) {
		pterm.DisableStyling()
		defer pterm.EnableStyling()

		var buf bytes.Buffer
		require.NoError(t, WriteTop(&buf, Build(2024, 6, nil, nil, Options{Top: 5}), FormatTable))
		assert.Contains(t, buf.String(), "No diagnoses recorded")

		buf.Reset()
		require.NoError(t, WriteTop(&buf, Build(2024, 6, nil, nil, Options{}), FormatJSON))
		assert.Contains(t, buf.String(), `"top": []`)
	})
}
