package packager

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/apk-packager/internal/logger"
	"github.com/oshokin/apk-packager/internal/version"
)

// warnConcurrentRuns logs a warning when another packager process is alive.
// Concurrent runs share the signing identity, which every run recreates.
func warnConcurrentRuns(ctx context.Context) {
	others, err := otherRuns(executableName())
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)
		return
	}

	if len(others) > 0 {
		logger.WarnKV(ctx, "Another packager run is active; it will be serialized on the signing identity",
			"pids", others)
	}
}

// otherRuns returns the PIDs of processes named name, excluding this one.
func otherRuns(name string) ([]int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	thisProcessID := os.Getpid()

	var pids []int

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != name {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids, nil
}

// executableName returns the packager binary name for this platform.
func executableName() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return version.Name + ".exe"
	}

	return version.Name
}
