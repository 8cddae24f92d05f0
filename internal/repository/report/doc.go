// Package report implements persistence for build reports.
//
// The FileRepository stores and loads a Report as YAML next to the produced
// archive, so a degraded build can be diagnosed after the run.
package report
