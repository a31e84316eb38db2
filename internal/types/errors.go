package types

import "fmt"

// The pipeline's fatal error taxonomy. Retrieval degradation and data
// quality issues are diagnostics, not errors.

// ConfigError reports an invalid or contradictory configuration. Fatal,
// no partial output.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// Configf builds a ConfigError from a format string.
func Configf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// SufficiencyError reports a required variable that is absent after all
// substitutions. Fatal, no partial output.
type SufficiencyError struct {
	Variable string
	Reason   string
}

func (e *SufficiencyError) Error() string {
	return fmt.Sprintf("insufficient data: %s: %s", e.Variable, e.Reason)
}

// AlignmentError reports that no viable grid phase was found within the
// bounded search. Fatal; the caller must choose a different interval.
type AlignmentError struct {
	Attempts int
	StepMin  float64
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("no viable grid alignment found in %d attempts at %g min; choose a different interval",
		e.Attempts, e.StepMin)
}
