// Package toolchain runs external build tools with a bounded time budget.
//
// Every failure is classified with the apk error sentinels: a binary that is not
// on PATH is ErrMissingTool, an expired budget is ErrToolTimeout and a failed
// process is ErrToolNonZeroExit. Captured output is kept for diagnostics only.
package toolchain
