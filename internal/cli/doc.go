// Package cli defines the Cobra command tree for the refswitch CLI. Each file
// in this package registers one top-level command (convert, revert, status,
// etc.) with the root command. Commands delegate to internal packages for the
// work and only handle arguments, output formatting and user interaction.
package cli
