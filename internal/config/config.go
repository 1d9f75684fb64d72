// Package config contains the process configuration and the utility
// functions used to validate the configurations of the stages.
package config

// Config defines the minimal interface for a configuration
// in order to be validated.
type Config interface {
	// Validate checks the configuration, replacing the invalid
	// values with their fallback.
	Validate(ac *AnomalyCollector)
}
