// Package utils provides small platform helpers used by the CLI.
package utils
