// Package config provides configuration structures and utilities for linkrank.
// It defines the estimator parameters, corpus loading options and report
// preferences, plus the optional YAML file with per-corpus overrides.
package config
