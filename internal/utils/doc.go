// Package utils exposes reusable helpers consumed by the derive commands.
//
// ConfigurationLoader layers embedded defaults, configuration files and
// DERIVE_-prefixed environment variables through Viper. LoggerFactory builds
// zap loggers in structured or console form.
package utils
