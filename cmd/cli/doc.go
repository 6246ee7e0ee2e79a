// Package cli constructs the derive command-line interface. It wires the Cobra
// command hierarchy, the layered Viper configuration and structured logging,
// and shares one set of engine metrics between the exec and encode commands.
package cli
