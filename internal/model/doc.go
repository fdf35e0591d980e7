// Package model defines the domain types and value objects shared across
// the homematic-exporter packages.
//
// This package contains pure data structures with no external dependencies:
// the Homematic parameter type enum used when interpreting paramset
// descriptions, and the exit codes plus the CLIError type that carry
// process exit semantics from the command layer to main.
package model
