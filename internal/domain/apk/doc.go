// Package apk contains the domain types shared by every packaging stage.
//
// It defines PackageSpec (what to build), Provenance and BytecodeArtifact
// (which fallback produced the bytecode), ManifestDocument (the declarative
// application descriptor) and Result (what a run produced and how degraded it is).
// The error sentinels classify every failure a stage can observe.
package apk
