package bytecode

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/oshokin/apk-packager/internal/domain/apk"
	"github.com/oshokin/apk-packager/internal/logger"
	"github.com/oshokin/apk-packager/internal/toolchain"
	"github.com/oshokin/apk-packager/internal/worktree"
)

// Assembler turns generated smali into classes.dex.
type Assembler struct {
	Runner  toolchain.Runner
	Timeout time.Duration
}

// Provenance implements Strategy.
func (*Assembler) Provenance() apk.Provenance {
	return apk.ProvenanceAssembled
}

// Produce implements Strategy.
func (a *Assembler) Produce(ctx context.Context, req *Request) error {
	smaliDir, err := writeSmali(req, "smali")
	if err != nil {
		return err
	}

	output := req.Output()

	// smali 2.x spells the command "assemble --output", older builds only know "a -o".
	syntaxes := [][]string{
		{"assemble", "--output", output, smaliDir},
		{"a", "-o", output, smaliDir},
	}

	var failures []error

	for _, args := range syntaxes {
		_, err = a.Runner.Run(ctx, &toolchain.Invocation{
			Tool:    "smali",
			Args:    args,
			Timeout: a.Timeout,
		})
		if err == nil && worktree.Exists(output) {
			return nil
		}

		if err == nil {
			err = fmt.Errorf("smali %s: %s: %w", args[0], output, apk.ErrStructuralFailure)
		}

		failures = append(failures, err)

		if errors.Is(err, apk.ErrMissingTool) {
			break
		}

		logger.DebugKV(ctx, "smali invocation failed", "syntax", args[0], "error", err)
		discard(output)
	}

	return errors.Join(failures...)
}

// writeSmali renders MainActivity.smali below <tree>/<root>/<class path> and returns <tree>/<root>.
func writeSmali(req *Request, root string) (string, error) {
	source, err := renderSmali(newSourceData(req.Spec))
	if err != nil {
		return "", err
	}

	rel := filepath.Join(root, filepath.FromSlash(req.Spec.ClassPath()), apk.MainActivity+".smali")
	if _, err = req.Tree.WriteFile(rel, []byte(source)); err != nil {
		return "", err
	}

	return req.Tree.Path(root), nil
}
