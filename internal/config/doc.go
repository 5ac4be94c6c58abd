// Package config manages pubsite project configuration.
//
// Settings are read from .pubsite.yaml in the project root, then overridden
// by PUBSITE_* environment variables, then by command-line flags.
package config
