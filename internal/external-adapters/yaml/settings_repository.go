// Package yaml loads the optional pipeline settings file.
package yaml

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/semscan/semscan/internal/domain/entities"
)

// Settings is the schema of the optional .semscan.yml file. Every
// field is optional; flags take precedence and built-in defaults fill
// whatever remains.
type Settings struct {
	Delivery struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"delivery"`

	Rules struct {
		BundledDir      string `yaml:"bundled_dir"`
		Fallback        string `yaml:"fallback"`
		VerifySignature bool   `yaml:"verify_signature"`
		Keyring         string `yaml:"keyring"`
	} `yaml:"rules"`

	Output struct {
		MountDir string `yaml:"mount_dir"`
	} `yaml:"output"`

	Timeouts struct {
		CloneSeconds    int `yaml:"clone_seconds"`
		CheckoutSeconds int `yaml:"checkout_seconds"`
		ScanSeconds     int `yaml:"scan_seconds"`
		PublishSeconds  int `yaml:"publish_seconds"`
	} `yaml:"timeouts"`
}

// Apply merges settings into request fields the caller left unset, so
// flag values always win.
func (s *Settings) Apply(req *entities.ScanRequest) {
	if req.EndpointURL == "" {
		req.EndpointURL = s.Delivery.Endpoint
	}
	if req.APIKey == "" {
		req.APIKey = s.Delivery.APIKey
	}
	if req.MountDir == "" {
		req.MountDir = s.Output.MountDir
	}

	if req.Rules.BundledDir == "" {
		req.Rules.BundledDir = s.Rules.BundledDir
	}
	if req.Rules.FallbackRef == "" {
		req.Rules.FallbackRef = s.Rules.Fallback
	}
	if !req.Rules.VerifySignature {
		req.Rules.VerifySignature = s.Rules.VerifySignature
	}
	if req.Rules.KeyringPath == "" {
		req.Rules.KeyringPath = s.Rules.Keyring
	}

	if req.Timeouts.CloneSeconds <= 0 {
		req.Timeouts.CloneSeconds = s.Timeouts.CloneSeconds
	}
	if req.Timeouts.CheckoutSeconds <= 0 {
		req.Timeouts.CheckoutSeconds = s.Timeouts.CheckoutSeconds
	}
	if req.Timeouts.ScanSeconds <= 0 {
		req.Timeouts.ScanSeconds = s.Timeouts.ScanSeconds
	}
	if req.Timeouts.PublishSeconds <= 0 {
		req.Timeouts.PublishSeconds = s.Timeouts.PublishSeconds
	}
}

// SettingsRepository reads Settings from a YAML file
type SettingsRepository struct {
	path string
}

// NewSettingsRepository creates a repository for the settings file at
// path.
func NewSettingsRepository(path string) *SettingsRepository {
	return &SettingsRepository{path: path}
}

// Load parses the settings file. Unknown fields are rejected so typos
// in the file surface instead of silently doing nothing.
func (r *SettingsRepository) Load() (*Settings, error) {
	//nolint:gosec // G304: path is the user's settings file
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	var settings Settings
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", r.path, err)
	}

	return &settings, nil
}
