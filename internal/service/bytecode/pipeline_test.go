package bytecode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/apk-packager/internal/dex"
	"github.com/oshokin/apk-packager/internal/domain/apk"
	"github.com/oshokin/apk-packager/internal/toolchain"
	"github.com/oshokin/apk-packager/internal/worktree"
)

var errScripted = errors.New("scripted failure")

// finderFunc adapts a function to the Finder interface.
type finderFunc func() (string, error)

func (f finderFunc) Find() (string, error) {
	return f()
}

// found returns a finder that always yields path.
func found(path string) Finder {
	return finderFunc(func() (string, error) { return path, nil })
}

// notFound returns a finder that never finds anything.
func notFound() Finder {
	return finderFunc(func() (string, error) { return "", apk.ErrMissingAsset })
}

// stubStrategy is a scripted Strategy.
type stubStrategy struct {
	provenance apk.Provenance
	write      []byte
	err        error
	calls      int
}

func (s *stubStrategy) Provenance() apk.Provenance {
	return s.provenance
}

func (s *stubStrategy) Produce(_ context.Context, req *Request) error {
	s.calls++

	if s.write != nil {
		if err := os.WriteFile(req.Output(), s.write, 0o644); err != nil {
			return err
		}
	}

	return s.err
}

// newRequest builds a request over a fresh working tree.
func newRequest(t *testing.T) *Request {
	t.Helper()

	tree, err := worktree.New("bytecode-test-")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = tree.Close()
	})

	spec := &apk.PackageSpec{AppName: "TestApp", PackageID: "com.test.app", OutputDir: t.TempDir()}

	return &Request{
		Spec:     spec,
		Manifest: apk.NewManifest(spec, apk.DefaultMinSDK, apk.DefaultTargetSDK),
		Tree:     tree,
	}
}

// defaultStrategies mirrors the production cascade over a fake runner.
func defaultStrategies(runner toolchain.Runner, platform, apktool Finder) []Strategy {
	return []Strategy{
		&Compiler{Runner: runner, Platform: platform},
		&Assembler{Runner: runner},
		&ExternalBuilder{Runner: runner, Apktool: apktool},
		Placeholder{},
	}
}

// TestAcquire_StopsAtFirstSuccess does not run later strategies.
func TestAcquire_StopsAtFirstSuccess(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	first := &stubStrategy{provenance: apk.ProvenanceCompiled, err: errScripted}
	second := &stubStrategy{provenance: apk.ProvenanceAssembled, write: []byte("dex")}
	third := &stubStrategy{provenance: apk.ProvenancePlaceholder, write: []byte("unused")}

	artifact, err := Acquire(context.Background(), req, []Strategy{first, second, third})
	require.NoError(t, err)
	require.Equal(t, apk.ProvenanceAssembled, artifact.Provenance)
	require.Equal(t, req.Output(), artifact.Path)
	require.Equal(t, 0, third.calls)
}

// TestAcquire_DiscardsPartialOutput removes files left by failed strategies.
func TestAcquire_DiscardsPartialOutput(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	partial := &stubStrategy{provenance: apk.ProvenanceCompiled, write: []byte("half"), err: errScripted}
	silent := &stubStrategy{provenance: apk.ProvenanceAssembled}

	_, err := Acquire(context.Background(), req, []Strategy{partial, silent})
	require.ErrorIs(t, err, apk.ErrNoBytecode)
	require.ErrorIs(t, err, errScripted)
	require.ErrorIs(t, err, apk.ErrStructuralFailure)
	require.NoFileExists(t, req.Output())
}

// TestAcquire_CancelledStopsCascade does not fall back once the context is done.
func TestAcquire_CancelledStopsCascade(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	ctx, cancel := context.WithCancel(context.Background())

	interrupted := &cancellingStrategy{cancel: cancel}
	placeholder := &stubStrategy{provenance: apk.ProvenancePlaceholder, write: []byte("unused")}

	artifact, err := Acquire(ctx, req, []Strategy{interrupted, placeholder})
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, apk.ErrNoBytecode)
	require.Nil(t, artifact)
	require.Equal(t, 0, placeholder.calls)
	require.NoFileExists(t, req.Output())
}

// cancellingStrategy cancels the run while it is producing bytecode.
type cancellingStrategy struct {
	cancel context.CancelFunc
}

func (*cancellingStrategy) Provenance() apk.Provenance {
	return apk.ProvenanceCompiled
}

func (s *cancellingStrategy) Produce(ctx context.Context, req *Request) error {
	if err := os.WriteFile(req.Output(), []byte("half"), 0o644); err != nil {
		return err
	}

	s.cancel()

	return ctx.Err()
}

// TestAcquire_NoToolsFallsBackToPlaceholder runs the full cascade with nothing installed.
func TestAcquire_NoToolsFallsBackToPlaceholder(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	runner := toolchain.NewFakeRunner()

	artifact, err := Acquire(context.Background(), req, defaultStrategies(runner, notFound(), notFound()))
	require.NoError(t, err)
	require.Equal(t, apk.ProvenancePlaceholder, artifact.Provenance)

	data, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	require.Len(t, data, dex.HeaderSize)
	require.NoError(t, dex.Verify(data))

	// Only smali is probed: the other tiers stop at asset lookup, and a missing
	// binary is not retried with the alternate syntax.
	require.Len(t, runner.Calls(), 1)
	require.Equal(t, "smali", runner.Calls()[0].Tool)
}

// TestCompiler_D8 compiles and converts with d8.
func TestCompiler_D8(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	runner := toolchain.NewFakeRunner().
		Handle("javac", func(inv *toolchain.Invocation) (*toolchain.Output, error) {
			dir := toolchain.ArgAfter("-d")(inv)
			return toolchain.WriteFile(func(*toolchain.Invocation) string {
				return filepath.Join(dir, "com", "test", "app", "MainActivity.class")
			}, []byte{0xca, 0xfe, 0xba, 0xbe})(inv)
		}).
		Handle("d8", toolchain.WriteFile(func(inv *toolchain.Invocation) string {
			return filepath.Join(toolchain.ArgAfter("--output")(inv), apk.BytecodeMember)
		}, []byte("compiled")))

	artifact, err := Acquire(context.Background(), req, defaultStrategies(runner, found("/sdk/android.jar"), notFound()))
	require.NoError(t, err)
	require.Equal(t, apk.ProvenanceCompiled, artifact.Provenance)

	calls := runner.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, []string{
		"-source", "11", "-target", "11",
		"-bootclasspath", "/sdk/android.jar",
		"-classpath", "/sdk/android.jar",
		"-d", req.Tree.Path("classes"),
		req.Tree.Path("src", "com", "test", "app", "MainActivity.java"),
	}, calls[0].Args)
	require.True(t, strings.HasSuffix(calls[1].Args[len(calls[1].Args)-1], "MainActivity.class"))

	source, err := os.ReadFile(req.Tree.Path("src", "com", "test", "app", "MainActivity.java"))
	require.NoError(t, err)
	require.Contains(t, string(source), "package com.test.app;")
	require.Contains(t, string(source), `textView.setText("TestApp\n\nThis is a demonstration APK.");`)
}

// TestCompiler_FallsBackToDx uses dx when d8 is missing.
func TestCompiler_FallsBackToDx(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	runner := toolchain.NewFakeRunner().
		Handle("javac", func(inv *toolchain.Invocation) (*toolchain.Output, error) {
			path := filepath.Join(toolchain.ArgAfter("-d")(inv), "MainActivity.class")
			return &toolchain.Output{}, os.WriteFile(path, []byte{0xca, 0xfe}, 0o644)
		}).
		Handle("dx", toolchain.WriteFile(func(inv *toolchain.Invocation) string {
			return strings.TrimPrefix(inv.Args[1], "--output=")
		}, []byte("converted")))

	artifact, err := Acquire(context.Background(), req, defaultStrategies(runner, found("/sdk/android.jar"), notFound()))
	require.NoError(t, err)
	require.Equal(t, apk.ProvenanceCompiled, artifact.Provenance)

	data, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	require.Equal(t, "converted", string(data))
}

// TestCompiler_JavacFailureMovesOn discards the compile tier when javac fails.
func TestCompiler_JavacFailureMovesOn(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	runner := toolchain.NewFakeRunner().
		Handle("javac", toolchain.Fail(apk.ErrToolTimeout)).
		Handle("smali", toolchain.WriteFile(toolchain.ArgAfter("--output"), []byte("assembled")))

	artifact, err := Acquire(context.Background(), req, defaultStrategies(runner, found("/sdk/android.jar"), notFound()))
	require.NoError(t, err)
	require.Equal(t, apk.ProvenanceAssembled, artifact.Provenance)
	require.Equal(t, []string{"javac", "smali"}, tools(runner))
}

// TestAssembler_SecondSyntax retries with the short command form.
func TestAssembler_SecondSyntax(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	runner := toolchain.NewFakeRunner().
		Handle("smali", func(inv *toolchain.Invocation) (*toolchain.Output, error) {
			if inv.Args[0] == "assemble" {
				return toolchain.Fail(apk.ErrToolNonZeroExit)(inv)
			}

			return toolchain.WriteFile(toolchain.ArgAfter("-o"), []byte("assembled"))(inv)
		})

	artifact, err := Acquire(context.Background(), req, defaultStrategies(runner, notFound(), notFound()))
	require.NoError(t, err)
	require.Equal(t, apk.ProvenanceAssembled, artifact.Provenance)

	calls := runner.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, []string{"assemble", "--output", req.Output(), req.Tree.Path("smali")}, calls[0].Args)
	require.Equal(t, []string{"a", "-o", req.Output(), req.Tree.Path("smali")}, calls[1].Args)

	source, err := os.ReadFile(req.Tree.Path("smali", "com", "test", "app", "MainActivity.smali"))
	require.NoError(t, err)
	require.Contains(t, string(source), ".class public Lcom/test/app/MainActivity;")
	require.Contains(t, string(source), "Lcom/test/app/MainActivity;->setContentView(Landroid/view/View;)V")
}

// TestExternalBuilder_ExtractsBytecode builds with apktool and keeps classes.dex.
func TestExternalBuilder_ExtractsBytecode(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	runner := toolchain.NewFakeRunner().
		Handle("smali", toolchain.Fail(apk.ErrToolNonZeroExit)).
		Handle("java", func(inv *toolchain.Invocation) (*toolchain.Output, error) {
			writeZip(t, toolchain.ArgAfter("-o")(inv), map[string]string{
				apk.BytecodeMember: "from-apktool",
				"resources.arsc":   "table",
				apk.ManifestMember: "binary",
			})

			return &toolchain.Output{}, nil
		})

	artifact, err := Acquire(context.Background(), req, defaultStrategies(runner, notFound(), found("/tools/apktool.jar")))
	require.NoError(t, err)
	require.Equal(t, apk.ProvenanceExternallyBuilt, artifact.Provenance)

	data, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	require.Equal(t, "from-apktool", string(data))

	java := runner.Calls()[len(runner.Calls())-1]
	require.Equal(t, req.Tree.Root(), java.Dir)
	require.Equal(t, []string{
		"-jar", "/tools/apktool.jar", "b", req.Tree.Path("apktool-project"), "-o", req.Tree.Path("built.apk"),
	}, java.Args)

	descriptor, err := os.ReadFile(req.Tree.Path("apktool-project", "apktool.yml"))
	require.NoError(t, err)
	require.Contains(t, string(descriptor), "forcedPackageId: \"127\"")
	require.Contains(t, string(descriptor), "minSdkVersion: \"16\"")
	require.FileExists(t, req.Tree.Path("apktool-project", "AndroidManifest.xml"))
	require.FileExists(t, req.Tree.Path("apktool-project", "res", "values", "strings.xml"))
	require.FileExists(t, req.Tree.Path("apktool-project", "smali", "com", "test", "app", "MainActivity.smali"))
}

// TestExternalBuilder_MissingMember falls through to the placeholder.
func TestExternalBuilder_MissingMember(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	runner := toolchain.NewFakeRunner().
		Handle("java", func(inv *toolchain.Invocation) (*toolchain.Output, error) {
			writeZip(t, toolchain.ArgAfter("-o")(inv), map[string]string{"resources.arsc": "table"})
			return &toolchain.Output{}, nil
		})

	artifact, err := Acquire(context.Background(), req, defaultStrategies(runner, notFound(), found("/tools/apktool.jar")))
	require.NoError(t, err)
	require.Equal(t, apk.ProvenancePlaceholder, artifact.Provenance)
}

// TestQuoteLiteral escapes characters that would break string literals.
func TestQuoteLiteral(t *testing.T) {
	t.Parallel()

	require.Equal(t, `say \"hi\"\n\\o/`, quoteLiteral("say \"hi\"\n\\o/"))
}

// tools returns the tool names in call order.
func tools(runner *toolchain.FakeRunner) []string {
	calls := runner.Calls()

	names := make([]string, 0, len(calls))
	for _, call := range calls {
		names = append(names, call.Tool)
	}

	return names
}

// writeZip creates an archive with the given members.
func writeZip(t *testing.T, path string, members map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for name, body := range members {
		mw, err := w.Create(name)
		require.NoError(t, err)

		_, err = mw.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}
