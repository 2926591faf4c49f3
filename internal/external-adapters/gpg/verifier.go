// Package gpg provides detached-signature verification for local
// ruleset files.
package gpg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/semscan/semscan/internal/domain/interfaces"
)

// Verifier checks ruleset files against a configured armored keyring
// using ProtonMail's go-crypto, a maintained fork of
// golang.org/x/crypto/openpgp. A rule file is verified when a sibling
// <file>.asc detached signature exists; a missing signature is only a
// warning.
type Verifier struct {
	keyring openpgp.EntityList
	logger  interfaces.Logger
}

// NewVerifier loads the armored keyring at keyringPath.
func NewVerifier(keyringPath string, logger interfaces.Logger) (*Verifier, error) {
	//nolint:gosec // G304: keyringPath comes from the settings file
	f, err := os.Open(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("no keys found in keyring file")
	}

	return &Verifier{keyring: keyring, logger: logger}, nil
}

// VerifyRuleset verifies path when it is a rule file, or every rule
// file directly inside it when it is a directory. A bad signature is
// an error; a rule file without a signature logs a warning and passes.
func (v *Verifier) VerifyRuleset(_ context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to access ruleset: %w", err)
	}

	if !info.IsDir() {
		return v.verifyFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("failed to read ruleset directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yml") && !strings.HasSuffix(name, ".yaml")) {
			continue
		}
		if err := v.verifyFile(filepath.Join(path, name)); err != nil {
			return err
		}
	}
	return nil
}

func (v *Verifier) verifyFile(path string) error {
	sigPath := path + ".asc"
	if _, err := os.Stat(sigPath); err != nil {
		v.logger.Warn("ruleset file has no detached signature", interfaces.F("path", path))
		return nil
	}

	//nolint:gosec // G304: paths come from the resolved ruleset list
	data, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open ruleset file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer data.Close()

	//nolint:gosec // G304: signature path derives from the ruleset path
	sig, err := os.Open(sigPath)
	if err != nil {
		return fmt.Errorf("failed to open signature file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer sig.Close()

	if _, err := openpgp.CheckArmoredDetachedSignature(v.keyring, data, sig, nil); err != nil {
		return fmt.Errorf("signature verification failed for %s: %w", path, err)
	}

	v.logger.Debug("ruleset signature verified", interfaces.F("path", path))
	return nil
}
