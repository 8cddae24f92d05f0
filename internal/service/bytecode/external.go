package bytecode

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/oshokin/apk-packager/internal/domain/apk"
	"github.com/oshokin/apk-packager/internal/logger"
	"github.com/oshokin/apk-packager/internal/toolchain"
)

const (
	projectDir    = "apktool-project"
	intermediate  = "built.apk"
	bytecodeMode  = 0o644
	descriptorYML = "apktool.yml"
)

// ExternalBuilder builds a throwaway apktool project and keeps its classes.dex.
type ExternalBuilder struct {
	Runner  toolchain.Runner
	Apktool Finder
	Timeout time.Duration
}

// Provenance implements Strategy.
func (*ExternalBuilder) Provenance() apk.Provenance {
	return apk.ProvenanceExternallyBuilt
}

// Produce implements Strategy.
func (b *ExternalBuilder) Produce(ctx context.Context, req *Request) error {
	jar, err := b.Apktool.Find()
	if err != nil {
		return fmt.Errorf("locate apktool.jar: %w", err)
	}

	logger.DebugKV(ctx, "Using apktool", "path", jar)

	if err = b.writeProject(req); err != nil {
		return err
	}

	built := req.Tree.Path(intermediate)

	_, err = b.Runner.Run(ctx, &toolchain.Invocation{
		Tool:    "java",
		Args:    []string{"-jar", jar, "b", req.Tree.Path(projectDir), "-o", built},
		Dir:     req.Tree.Root(),
		Timeout: b.Timeout,
	})
	if err != nil {
		return fmt.Errorf("apktool build: %w", err)
	}

	return extractMember(built, apk.BytecodeMember, req.Output())
}

// writeProject lays out smali, apktool.yml, the manifest and string resources.
func (b *ExternalBuilder) writeProject(req *Request) error {
	if _, err := writeSmali(req, filepath.Join(projectDir, "smali")); err != nil {
		return err
	}

	descriptor, err := renderApktoolDescriptor(req.Manifest)
	if err != nil {
		return err
	}

	manifest, err := req.Manifest.Render()
	if err != nil {
		return err
	}

	stringsXML, err := req.Manifest.RenderStrings()
	if err != nil {
		return err
	}

	files := []struct {
		rel  string
		data []byte
	}{
		{rel: descriptorYML, data: descriptor},
		{rel: apk.ManifestMember, data: []byte(manifest)},
		{rel: filepath.Join("res", "values", "strings.xml"), data: []byte(stringsXML)},
	}

	for _, f := range files {
		if _, err = req.Tree.WriteFile(filepath.Join(projectDir, f.rel), f.data); err != nil {
			return err
		}
	}

	return nil
}

// extractMember copies one archive member to dst.
func extractMember(archive, member, dst string) error {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open %s: %w: %w", archive, apk.ErrStructuralFailure, err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, file := range reader.File {
		if file.Name != member {
			continue
		}

		return copyMember(file, dst)
	}

	return fmt.Errorf("%s has no %s: %w", archive, member, apk.ErrStructuralFailure)
}

func copyMember(file *zip.File, dst string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open member %s: %w", file.Name, err)
	}

	defer func() {
		_ = src.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, bytecodeMode)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err = io.Copy(out, src); err != nil {
		_ = out.Close()
		return fmt.Errorf("extract %s: %w", file.Name, err)
	}

	return out.Close()
}
