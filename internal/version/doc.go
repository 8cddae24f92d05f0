// Package version exposes build metadata of apk-packager.
//
// Version, Commit and BuildTime are injected with -ldflags at build time.
// The generator string is recorded in build reports.
package version
