// Package integration runs the whole packaging pipeline against the real
// filesystem and process environment.
package integration
