package align

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/apk-packager/internal/domain/apk"
	"github.com/oshokin/apk-packager/internal/logger"
	"github.com/oshokin/apk-packager/internal/toolchain"
	"github.com/oshokin/apk-packager/internal/worktree"
)

// Boundary is the alignment in bytes for uncompressed members.
const Boundary = "4"

// Aligner runs zipalign.
type Aligner struct {
	Runner  toolchain.Runner
	Timeout time.Duration
}

// Align writes the final artifact to dst. zipalign writes into scratch, which
// must differ from src. It reports whether the installed artifact is aligned.
func (a *Aligner) Align(ctx context.Context, src, scratch, dst string) (bool, error) {
	ctx = logger.WithName(ctx, "align")

	if err := a.zipalign(ctx, src, scratch); err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("align: %w", ctx.Err())
		}

		logger.WarnKV(ctx, "Alignment failed, installing the archive unaligned", "error", err)

		if err = Install(src, dst); err != nil {
			return false, err
		}

		return false, nil
	}

	if err := Install(scratch, dst); err != nil {
		return false, err
	}

	logger.DebugKV(ctx, "Archive aligned", "path", dst)

	return true, nil
}

func (a *Aligner) zipalign(ctx context.Context, src, scratch string) error {
	_, err := a.Runner.Run(ctx, &toolchain.Invocation{
		Tool:    "zipalign",
		Args:    []string{"-f", Boundary, src, scratch},
		Timeout: a.Timeout,
	})
	if err != nil {
		return fmt.Errorf("zipalign: %w", err)
	}

	if !worktree.Exists(scratch) {
		return fmt.Errorf("zipalign: %s: %w", scratch, apk.ErrStructuralFailure)
	}

	return nil
}
