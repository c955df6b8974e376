// Package observe provides diagnostics for cache stores.
//
// It is a pure instrumentation library: a structured logger, OpenTelemetry
// metrics and tracing, and a Middleware that wraps store operations with all
// three. Stores receive a Middleware at construction instead of reaching for
// global loggers; the zero configuration is a no-op.
package observe
