package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configFileVar = "WBCMS_CONFIG"

type Config interface {
	EnvConfig
	APIConfig
	StoreConfig
	PolicyConfig
}

type mainConfig struct {
	EnvVars
	API
	Store
	Policy
}

// New loads a .env file from the working directory when present and, if
// WBCMS_CONFIG names a YAML file, uses it as the layer beneath the environment.
// Precedence is environment, then file, then built-in defaults.
func New() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("[config.New] loading .env: %w", err)
	}

	file := &fileConfig{}
	if path := os.Getenv(configFileVar); path != "" {
		var err error
		if file, err = loadFile(path); err != nil {
			return nil, err
		}
	}

	return mainConfig{
		EnvVars: EnvVars{},
		API:     API{file: file},
		Store:   Store{file: file},
		Policy:  Policy{file: file},
	}, nil
}

// Default returns a configuration backed by environment variables and defaults only.
func Default() Config {
	file := &fileConfig{}
	return mainConfig{API: API{file: file}, Store: Store{file: file}, Policy: Policy{file: file}}
}

// fileConfig mirrors the optional YAML configuration file.
type fileConfig struct {
	API struct {
		URL          string `yaml:"url"`
		Timeout      string `yaml:"timeout"`
		RefreshSkew  string `yaml:"refresh_skew"`
		RefreshPath  string `yaml:"refresh_path"`
		LoginPath    string `yaml:"login_path"`
		SignupPath   string `yaml:"signup_path"`
		ForgotPath   string `yaml:"forgot_password_path"`
		ResetPath    string `yaml:"reset_password_path"`
		ProfilePath  string `yaml:"profile_path"`
		AcademicPath string `yaml:"academic_years_path"`
	} `yaml:"api"`
	Store struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
		Key    string `yaml:"key"`
	} `yaml:"store"`
	Policy struct {
		AllowedDomains []string `yaml:"allowed_domains"`
	} `yaml:"policy"`
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[config.New] reading %s: %w", path, err)
	}
	cfg := &fileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("[config.New] parsing %s: %w", path, err)
	}
	return cfg, nil
}

// layered returns the environment value, then the file value, then def.
func layered(envVar, fileValue, def string) string {
	if fileValue != "" {
		def = fileValue
	}
	return GetEnv(envVar, def)
}
