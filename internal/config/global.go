package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/bibnet/config.yml.
type GlobalConfig struct {
	Workspace   string `yaml:"workspace,omitempty"`
	S2APIKey    string `yaml:"s2_api_key,omitempty"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "bibnet"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
	// EnvPrefix prefixes every environment override, e.g. BIBNET_S2_API_KEY.
	EnvPrefix = "bibnet"
	// SiteConfigEnv names a site-wide sources file merged below the user's.
	SiteConfigEnv = "BIBNET_SITE_CONFIG"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

func configHome() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, GlobalConfigDir)
}

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/bibnet/config.yml.
func GlobalConfigPath() string {
	dir := configHome()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, GlobalConfigFile)
}

// UserSourcesPath returns the user-level sources file.
func UserSourcesPath() string {
	dir := configHome()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, SourcesFile)
}

// SiteSourcesPath returns the site-level sources file, if one is configured.
func SiteSourcesPath() string {
	return os.Getenv(SiteConfigEnv)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	if cfg.Workspace != "" {
		cfg.Workspace = ExpandPath(cfg.Workspace)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// Settings are the effective global settings: config.yml overlaid with
// BIBNET_* environment variables.
type Settings struct {
	Workspace   string
	S2APIKey    string
	MetricsAddr string
}

// LoadSettings resolves Settings. Environment variables win over the file.
func LoadSettings() (*Settings, error) {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("workspace", cfg.Workspace)
	v.SetDefault("s2_api_key", cfg.S2APIKey)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)

	return &Settings{
		Workspace:   ExpandPath(v.GetString("workspace")),
		S2APIKey:    v.GetString("s2_api_key"),
		MetricsAddr: v.GetString("metrics_addr"),
	}, nil
}

// HelpfulConfigMessage returns a helpful message when no workspace can be found.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No bibnet workspace found.

Run 'bibnet init' in a directory to create one, or point %s at an
existing workspace:
  mkdir -p %s
  echo 'workspace: /path/to/workspace' > %s`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
