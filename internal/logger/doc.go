// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder writing to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration driven by the --verbose flag,
//   - key-value helpers per level (DebugKV, InfoKV, WarnKV, ErrorKV).
//
// Every pipeline stage receives a context and extracts its logger from it,
// so each stage logs under its own name.
package logger
