package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across hmis.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Components and operations
	FieldBackend   = "backend"
	FieldOperation = "operation"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount     = "count"
	FieldBatchSize = "batch_size"
	FieldSkipped   = "skipped"

	// Files and paths
	FieldFile = "file"
	FieldPath = "path"

	// Encounter domain
	FieldEncounterID = "encounter_id"
	FieldPatientID   = "patient_id"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldDiagnosis   = "diagnosis"
	FieldMigration   = "migration"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	s := store.New(logger.ComponentLogger("store"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
// Example:
//
//	periodLogger := logger.ChildLogger(base, logger.FieldYear, 2024, logger.FieldMonth, 6)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
