package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/oshokin/apk-packager/internal/config"
	"github.com/oshokin/apk-packager/internal/domain/apk"
	"github.com/oshokin/apk-packager/internal/logger"
	"github.com/oshokin/apk-packager/internal/repository/report"
	"github.com/oshokin/apk-packager/internal/sdk"
	"github.com/oshokin/apk-packager/internal/service/align"
	"github.com/oshokin/apk-packager/internal/service/archive"
	"github.com/oshokin/apk-packager/internal/service/bytecode"
	"github.com/oshokin/apk-packager/internal/service/resources"
	"github.com/oshokin/apk-packager/internal/service/signing"
	"github.com/oshokin/apk-packager/internal/toolchain"
	"github.com/oshokin/apk-packager/internal/version"
	"github.com/oshokin/apk-packager/internal/worktree"
)

// Finder locates a file such as android.jar or apktool.jar.
type Finder interface {
	Find() (string, error)
}

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is an optional settings file; empty means apk-packager.yaml if present.
	ConfigPath string
	// AppName is the application label and the archive base name.
	AppName string
	// PackageID is the application identifier.
	PackageID string
	// OutputDir receives the archive and the optional report.
	OutputDir string
	// WriteReport enables the YAML build report.
	WriteReport bool

	// Runner executes external tools; nil uses the PATH.
	Runner toolchain.Runner
	// Platform locates android.jar; nil uses the standard search order.
	Platform Finder
	// Apktool locates apktool.jar; nil uses the standard search order.
	Apktool Finder
}

const (
	outputDirMode os.FileMode = 0o755
	treePrefix                = "apk-packager-"

	unsignedArchive = "unsigned.apk"
	alignedArchive  = "aligned.apk"
)

// packager holds the state of one run.
// It is unexported; callers use Run, which encapsulates setup and validation.
type packager struct {
	// spec is the validated package specification.
	spec *apk.PackageSpec
	// cfg holds tool timeouts and platform versions.
	cfg *config.Config
	// keystore is the expanded signing identity path.
	keystore string
	// runner executes external tools.
	runner toolchain.Runner
	// platform and apktool locate the jars used by the tools.
	platform, apktool Finder
	// tree is the private working directory of the run.
	tree *worktree.Tree
}

// Run executes the packaging workflow and returns the stage outcomes.
// Invalid input fails before anything is written.
func Run(ctx context.Context, opts *Options) (*apk.Result, error) {
	ctx = logger.WithName(ctx, version.Name)

	spec := &apk.PackageSpec{
		AppName:   opts.AppName,
		PackageID: opts.PackageID,
		OutputDir: opts.OutputDir,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	keystore, err := cfg.KeystorePath()
	if err != nil {
		return nil, err
	}

	if err = interrupted(ctx); err != nil {
		return nil, err
	}

	warnConcurrentRuns(ctx)

	if err = os.MkdirAll(spec.OutputDir, outputDirMode); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	tree, err := worktree.New(treePrefix)
	if err != nil {
		return nil, err
	}

	defer func() {
		if closeErr := tree.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Unable to remove the working tree", "path", tree.Root(), "error", closeErr)
		}
	}()

	pkg := newPackager(opts, spec, cfg, keystore, tree)
	pkg.warnMissingTools(ctx)

	result, err := pkg.Run(ctx)
	if err != nil {
		return nil, err
	}

	if opts.WriteReport {
		pkg.saveReport(ctx, result)
	}

	logger.InfoKV(ctx, "Package created",
		"path", result.ArtifactPath,
		"size", result.Size,
		"bytecode", result.Bytecode,
		"degraded", result.Degraded(),
	)

	return result, nil
}

func newPackager(
	opts *Options,
	spec *apk.PackageSpec,
	cfg *config.Config,
	keystore string,
	tree *worktree.Tree,
) *packager {
	pkg := &packager{
		spec:     spec,
		cfg:      cfg,
		keystore: keystore,
		runner:   opts.Runner,
		platform: opts.Platform,
		apktool:  opts.Apktool,
		tree:     tree,
	}

	if pkg.runner == nil {
		pkg.runner = toolchain.NewExecRunner()
	}

	if pkg.platform == nil {
		pkg.platform = sdk.NewPlatformLocator()
	}

	if pkg.apktool == nil {
		pkg.apktool = sdk.NewApktoolLocator(cfg.ApktoolJars)
	}

	return pkg
}

// Run executes the stages inside the working tree.
func (p *packager) Run(ctx context.Context) (*apk.Result, error) {
	manifest := apk.NewManifest(p.spec, p.cfg.MinSDK, p.cfg.TargetSDK)

	logger.InfoKV(ctx, "Generating package", "name", p.spec.AppName, "package", p.spec.PackageID)

	artifact, err := bytecode.Acquire(ctx, &bytecode.Request{
		Spec:     p.spec,
		Manifest: manifest,
		Tree:     p.tree,
	}, p.strategies())
	if err != nil {
		return nil, err
	}

	compiler := &resources.Compiler{
		Runner:   p.runner,
		Platform: p.platform,
		Timeout:  p.cfg.Timeouts.Resources,
	}

	res, err := compiler.Compile(ctx, p.tree, manifest)
	if err != nil {
		return nil, err
	}

	if err = interrupted(ctx); err != nil {
		return nil, err
	}

	unsigned := p.tree.Path(unsignedArchive)

	err = archive.Assemble(ctx, unsigned, &archive.Inputs{
		Bytecode:     artifact.Path,
		Resources:    res.Compiled,
		ManifestText: res.ManifestText,
	})
	if err != nil {
		return nil, err
	}

	signer := &signing.Signer{
		Runner:          p.runner,
		Keystore:        p.keystore,
		IdentityTimeout: p.cfg.Timeouts.Identity,
		SignTimeout:     p.cfg.Timeouts.Sign,
	}
	signed := signer.Sign(ctx, unsigned)

	if err = interrupted(ctx); err != nil {
		return nil, err
	}

	aligner := &align.Aligner{
		Runner:  p.runner,
		Timeout: p.cfg.Timeouts.Align,
	}

	aligned, err := aligner.Align(ctx, unsigned, p.tree.Path(alignedArchive), p.spec.ArtifactPath())
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p.spec.ArtifactPath())
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	return &apk.Result{
		ArtifactPath:      p.spec.ArtifactPath(),
		Size:              info.Size(),
		Bytecode:          artifact.Provenance,
		ResourcesCompiled: res.Compiled != "",
		Signed:            signed,
		Aligned:           aligned,
	}, nil
}

// interrupted returns the context error once the run is cancelled. Stages
// treat a failed tool as a reason to degrade, so cancellation is checked
// between them and never yields an artifact.
func interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("packaging interrupted: %w", err)
	}

	return nil
}

// strategies returns the bytecode tiers from highest to lowest fidelity.
func (p *packager) strategies() []bytecode.Strategy {
	t := p.cfg.Timeouts

	return []bytecode.Strategy{
		&bytecode.Compiler{Runner: p.runner, Platform: p.platform, Timeout: t.Compile},
		&bytecode.Assembler{Runner: p.runner, Timeout: t.Assemble},
		&bytecode.ExternalBuilder{Runner: p.runner, Apktool: p.apktool, Timeout: t.External},
		bytecode.Placeholder{},
	}
}

// saveReport writes the build report and returns the one it replaced, if any.
// The archive is already in place, so failures are only logged.
func (p *packager) saveReport(ctx context.Context, result *apk.Result) *report.Report {
	repo := report.NewFileRepository(report.PathFor(p.spec))

	previous, err := repo.Load(ctx)

	switch {
	case err == nil:
		logger.InfoKV(ctx, "Replacing the previous build",
			"generated_at", previous.GeneratedAt,
			"bytecode", previous.Result.Bytecode,
			"degraded", previous.Result.Degraded(),
		)
	case errors.Is(err, report.ErrNotFound):
		previous = nil
	default:
		logger.DebugKV(ctx, "Unable to read the previous build report", "error", err)

		previous = nil
	}

	actor, err := report.DetectActor()
	if err != nil {
		logger.DebugKV(ctx, "Unable to detect the build actor", "error", err)
	}

	err = repo.Save(ctx, &report.Report{
		Generator:   version.Generator(),
		GeneratedAt: time.Now().UTC(),
		AppName:     p.spec.AppName,
		PackageID:   p.spec.PackageID,
		BuiltBy:     actor,
		Result:      *result,
	})
	if err != nil {
		logger.WarnKV(ctx, "Unable to write the build report", "error", err)
		return previous
	}

	logger.InfoKV(ctx, "Build report written", "path", repo.Path())

	return previous
}
