package ruqqus

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	koanfjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	pkgerrs "github.com/ruqqus-community/go-ruqqus/pkg/errors"
)

// envPrefix namespaces the environment variables that override file config
// values, e.g. RUQQUS_CLIENT_ID overrides client_id.
const envPrefix = "RUQQUS_"

// FileConfig is the persisted slice of the client configuration. It covers
// the credentials that survive restarts; everything else stays in Config.
type FileConfig struct {
	// Autosave enables writing newly issued refresh tokens back to the
	// file, so a restarted client can resume the session without a new
	// authorization code.
	Autosave bool `koanf:"autosave" json:"autosave"`

	ClientID     string `koanf:"client_id" json:"client_id"`
	ClientSecret string `koanf:"client_secret" json:"client_secret"`
	UserAgent    string `koanf:"user_agent" json:"user_agent,omitempty"`
	RefreshToken string `koanf:"refresh_token" json:"refresh_token,omitempty"`
}

// LoadFileConfig reads a JSON config file and applies RUQQUS_* environment
// variable overrides on top. A missing file is not an error when overrides
// alone can supply the values; any other read or parse failure is.
func LoadFileConfig(path string) (*FileConfig, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), koanfjson.Parser()); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, &pkgerrs.ConfigError{
				Field:   "ConfigFile",
				Message: "failed to load " + path + ": " + err.Error(),
			}
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, &pkgerrs.ConfigError{
			Field:   "ConfigFile",
			Message: "failed to load environment overrides: " + err.Error(),
		}
	}

	var fc FileConfig
	if err := k.Unmarshal("", &fc); err != nil {
		return nil, &pkgerrs.ConfigError{
			Field:   "ConfigFile",
			Message: "failed to decode " + path + ": " + err.Error(),
		}
	}
	return &fc, nil
}

// applyFileConfig fills unset Config fields from the persisted config.
// Values set explicitly on Config always win.
func applyFileConfig(config *Config, fc *FileConfig) {
	if config.ClientID == "" {
		config.ClientID = fc.ClientID
	}
	if config.ClientSecret == "" {
		config.ClientSecret = fc.ClientSecret
	}
	if config.UserAgent == "" {
		config.UserAgent = fc.UserAgent
	}
	if config.RefreshToken == "" {
		config.RefreshToken = fc.RefreshToken
	}
}

// Save writes the config back to disk atomically, via a temp file in the
// same directory followed by a rename. The file is created with 0600 since
// it holds credentials.
func (fc *FileConfig) Save(path string) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
