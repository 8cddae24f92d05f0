package packager

import (
	"context"

	"github.com/oshokin/apk-packager/internal/logger"
	"github.com/oshokin/apk-packager/internal/toolchain"
)

// Tools whose absence degrades the package regardless of the bytecode tier.
var packagingTools = []string{"aapt", "zipalign", "keytool", "jarsigner"}

// Tools used by the bytecode tiers; the placeholder covers their absence.
var bytecodeTools = []string{"javac", "d8", "dx", "smali", "java"}

// availability is implemented by runners that can resolve tools up front.
type availability interface {
	Available(tool string) bool
}

// missingTools returns the tools the runner cannot resolve. Runners that
// cannot answer report nothing missing.
func missingTools(runner toolchain.Runner, tools []string) []string {
	resolver, ok := runner.(availability)
	if !ok {
		return nil
	}

	var missing []string

	for _, tool := range tools {
		if !resolver.Available(tool) {
			missing = append(missing, tool)
		}
	}

	return missing
}

// warnMissingTools reports absent tools before any stage runs.
func (p *packager) warnMissingTools(ctx context.Context) {
	if missing := missingTools(p.runner, packagingTools); len(missing) > 0 {
		logger.WarnKV(ctx, "Some tools are missing, the package will be degraded", "missing", missing)
	}

	if missing := missingTools(p.runner, bytecodeTools); len(missing) > 0 {
		logger.DebugKV(ctx, "Bytecode tools not found", "missing", missing)
	}
}
