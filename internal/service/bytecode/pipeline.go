package bytecode

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oshokin/apk-packager/internal/domain/apk"
	"github.com/oshokin/apk-packager/internal/logger"
	"github.com/oshokin/apk-packager/internal/worktree"
)

// Request carries the inputs shared by every strategy.
type Request struct {
	Spec     *apk.PackageSpec
	Manifest *apk.ManifestDocument
	Tree     *worktree.Tree
}

// Output is where every strategy must leave the bytecode file.
func (r *Request) Output() string {
	return r.Tree.Path(apk.BytecodeMember)
}

// Strategy produces the bytecode file at Request.Output or returns an error.
type Strategy interface {
	Provenance() apk.Provenance
	Produce(ctx context.Context, req *Request) error
}

// Finder locates a file such as android.jar or apktool.jar.
type Finder interface {
	Find() (string, error)
}

// Acquire runs strategies in order and returns the first artifact produced.
// Leftovers of a failed strategy are removed before the next one starts.
// A done context stops the cascade instead of falling back.
func Acquire(ctx context.Context, req *Request, strategies []Strategy) (*apk.BytecodeArtifact, error) {
	ctx = logger.WithName(ctx, "bytecode")
	output := req.Output()

	var failures []error

	for _, strategy := range strategies {
		provenance := strategy.Provenance()

		discard(output)

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("acquire bytecode: %w", err)
		}
		logger.DebugKV(ctx, "Trying bytecode strategy", "strategy", provenance)

		err := strategy.Produce(ctx, req)
		if err == nil && !worktree.Exists(output) {
			err = fmt.Errorf("%s: %w", output, apk.ErrStructuralFailure)
		}

		if err != nil {
			logger.WarnKV(ctx, "Bytecode strategy failed, falling back", "strategy", provenance, "error", err)
			failures = append(failures, fmt.Errorf("%s: %w", provenance, err))

			discard(output)

			continue
		}

		logger.InfoKV(ctx, "Bytecode ready", "strategy", provenance)

		return &apk.BytecodeArtifact{Path: output, Provenance: provenance}, nil
	}

	return nil, fmt.Errorf("%w: %w", apk.ErrNoBytecode, errors.Join(failures...))
}

// discard removes a partial output; a missing file is fine.
func discard(path string) {
	_ = os.Remove(path)
}
