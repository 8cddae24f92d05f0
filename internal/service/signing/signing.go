package signing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/oshokin/apk-packager/internal/domain/apk"
	"github.com/oshokin/apk-packager/internal/logger"
	"github.com/oshokin/apk-packager/internal/toolchain"
	"github.com/oshokin/apk-packager/internal/worktree"
)

// Fixed identity parameters of the debug key.
const (
	Alias             = "androiddebugkey"
	StorePassword     = "android"
	KeyPassword       = "android"
	KeyAlgorithm      = "RSA"
	KeySize           = "2048"
	ValidityDays      = "10000"
	DistinguishedName = "CN=Android Debug,O=Android,C=US"

	DigestAlgorithm    = "SHA-256"
	SignatureAlgorithm = "SHA256withRSA"
)

const (
	lockSuffix     = ".lock"
	lockRetryDelay = 100 * time.Millisecond
	storeDirMode   = 0o755
)

var errLockTimeout = errors.New("signing identity is locked by another run")

// Signer owns the identity at Keystore.
type Signer struct {
	Runner          toolchain.Runner
	Keystore        string
	IdentityTimeout time.Duration
	SignTimeout     time.Duration
}

// Sign recreates the identity and signs the archive in place.
// It reports whether the archive ended up signed; failures are logged, not returned.
func (s *Signer) Sign(ctx context.Context, archive string) bool {
	ctx = logger.WithName(ctx, "signing")

	lock := flock.New(s.Keystore + lockSuffix)

	if err := s.lock(ctx, lock); err != nil {
		logger.WarnKV(ctx, "Unable to lock the signing identity, leaving the archive unsigned", "error", err)
		return false
	}

	defer func() {
		_ = lock.Unlock()
	}()

	if err := s.EnsureIdentity(ctx); err != nil {
		logger.WarnKV(ctx, "Signing identity unavailable, leaving the archive unsigned", "error", err)
		return false
	}

	if err := s.signArchive(ctx, archive); err != nil {
		logger.WarnKV(ctx, "Signing failed, the archive stays unsigned", "error", err)
		return false
	}

	logger.InfoKV(ctx, "Archive signed", "keystore", s.Keystore)

	return true
}

// lock takes the identity lock, bounded by the identity timeout.
func (s *Signer) lock(ctx context.Context, lock *flock.Flock) error {
	if err := os.MkdirAll(filepath.Dir(s.Keystore), storeDirMode); err != nil {
		return fmt.Errorf("create keystore directory: %w", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, budget(s.IdentityTimeout))
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", lock.Path(), err)
	}

	if !locked {
		return errLockTimeout
	}

	return nil
}

// EnsureIdentity deletes any existing store at Keystore and generates a new one.
// Callers must hold the identity lock.
func (s *Signer) EnsureIdentity(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.Keystore), storeDirMode); err != nil {
		return fmt.Errorf("create keystore directory: %w", err)
	}

	if err := os.Remove(s.Keystore); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove old keystore: %w", err)
	}

	_, err := s.Runner.Run(ctx, &toolchain.Invocation{
		Tool: "keytool",
		Args: []string{
			"-genkey", "-v",
			"-keystore", s.Keystore,
			"-alias", Alias,
			"-keyalg", KeyAlgorithm,
			"-keysize", KeySize,
			"-validity", ValidityDays,
			"-storepass", StorePassword,
			"-keypass", KeyPassword,
			"-dname", DistinguishedName,
		},
		Timeout: s.IdentityTimeout,
	})
	if err != nil {
		return fmt.Errorf("keytool: %w", err)
	}

	if !worktree.Exists(s.Keystore) {
		return fmt.Errorf("keytool: %s: %w", s.Keystore, apk.ErrStructuralFailure)
	}

	return nil
}

func (s *Signer) signArchive(ctx context.Context, archive string) error {
	_, err := s.Runner.Run(ctx, &toolchain.Invocation{
		Tool: "jarsigner",
		Args: []string{
			"-keystore", s.Keystore,
			"-storepass", StorePassword,
			"-keypass", KeyPassword,
			"-digestalg", DigestAlgorithm,
			"-sigalg", SignatureAlgorithm,
			archive,
			Alias,
		},
		Timeout: s.SignTimeout,
	})
	if err != nil {
		return fmt.Errorf("jarsigner: %w", err)
	}

	return nil
}

func budget(d time.Duration) time.Duration {
	if d <= 0 {
		return toolchain.DefaultTimeout
	}

	return d
}
