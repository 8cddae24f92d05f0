package bytecode

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/karrick/godirwalk"

	"github.com/oshokin/apk-packager/internal/domain/apk"
	"github.com/oshokin/apk-packager/internal/logger"
	"github.com/oshokin/apk-packager/internal/toolchain"
	"github.com/oshokin/apk-packager/internal/worktree"
)

// javaRelease is the bytecode level accepted by both d8 and dx.
const javaRelease = "11"

// Compiler builds MainActivity.java with javac and converts the classes with d8, then dx.
type Compiler struct {
	Runner   toolchain.Runner
	Platform Finder
	Timeout  time.Duration
}

// Provenance implements Strategy.
func (*Compiler) Provenance() apk.Provenance {
	return apk.ProvenanceCompiled
}

// Produce implements Strategy.
func (c *Compiler) Produce(ctx context.Context, req *Request) error {
	platformJar, err := c.Platform.Find()
	if err != nil {
		return fmt.Errorf("locate android.jar: %w", err)
	}

	logger.DebugKV(ctx, "Using platform archive", "path", platformJar)

	source, err := renderJava(newSourceData(req.Spec))
	if err != nil {
		return err
	}

	sourcePath, err := req.Tree.WriteFile(
		filepath.Join("src", filepath.FromSlash(req.Spec.ClassPath()), apk.MainActivity+".java"),
		[]byte(source))
	if err != nil {
		return err
	}

	classesDir, err := req.Tree.Mkdir("classes")
	if err != nil {
		return err
	}

	_, err = c.Runner.Run(ctx, &toolchain.Invocation{
		Tool: "javac",
		Args: []string{
			"-source", javaRelease,
			"-target", javaRelease,
			"-bootclasspath", platformJar,
			"-classpath", platformJar,
			"-d", classesDir,
			sourcePath,
		},
		Timeout: c.Timeout,
	})
	if err != nil {
		return fmt.Errorf("javac: %w", err)
	}

	classFiles, err := collectClassFiles(classesDir)
	if err != nil {
		return err
	}

	if len(classFiles) == 0 {
		return fmt.Errorf("javac produced no class files: %w", apk.ErrStructuralFailure)
	}

	return c.convert(ctx, req, classesDir, classFiles)
}

// convert turns class files into classes.dex, preferring d8 over the older dx.
func (c *Compiler) convert(ctx context.Context, req *Request, classesDir string, classFiles []string) error {
	output := req.Output()

	_, d8Err := c.Runner.Run(ctx, &toolchain.Invocation{
		Tool:    "d8",
		Args:    append([]string{"--output", filepath.Dir(output)}, classFiles...),
		Timeout: c.Timeout,
	})
	if d8Err == nil && worktree.Exists(output) {
		return nil
	}

	if d8Err == nil {
		d8Err = fmt.Errorf("d8: %s: %w", output, apk.ErrStructuralFailure)
	}

	logger.DebugKV(ctx, "d8 conversion failed, trying dx", "error", d8Err)
	discard(output)

	_, dxErr := c.Runner.Run(ctx, &toolchain.Invocation{
		Tool:    "dx",
		Args:    []string{"--dex", "--output=" + output, classesDir},
		Timeout: c.Timeout,
	})
	if dxErr == nil && !worktree.Exists(output) {
		dxErr = fmt.Errorf("dx: %s: %w", output, apk.ErrStructuralFailure)
	}

	if dxErr != nil {
		return errors.Join(d8Err, dxErr)
	}

	return nil
}

// collectClassFiles lists every .class file below dir in lexical order.
func collectClassFiles(dir string) ([]string, error) {
	var classFiles []string

	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsRegular() && strings.HasSuffix(path, ".class") {
				classFiles = append(classFiles, path)
			}

			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	return classFiles, nil
}
