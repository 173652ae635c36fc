package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "REMA"

// Config holds every setting of a rema invocation after defaults, config
// file, environment and flags are merged.
type Config struct {
	Dir            string
	LogLevel       string
	Remote         string
	Branch         string
	GenerateNotes  bool
	StrictTagSync  bool
	RequireClean   bool
	GitMinVersion  string
	GhMinVersion   string
	ToolMaxVersion string
	ReleasesLimit  int
	ReleasesFile   string
	Timeout        time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dir", ".")
	v.SetDefault("log_level", "info")
	v.SetDefault("remote", "origin")
	v.SetDefault("branch", "")
	v.SetDefault("generate_notes", true)
	v.SetDefault("strict_tag_sync", false)
	v.SetDefault("require_clean", true)
	v.SetDefault("git_min_version", "2.43.0")
	v.SetDefault("gh_min_version", "2.45.0")
	v.SetDefault("tool_max_version", "3.0.0")
	v.SetDefault("releases_limit", 100)
	v.SetDefault("releases_file", "")
	v.SetDefault("timeout", time.Duration(0))
}

// flagKeys maps persistent flags to their config keys.
var flagKeys = map[string]string{
	"dir":           "dir",
	"log-level":     "log_level",
	"releases-file": "releases_file",
	"timeout":       "timeout",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// loadConfig reads configFile, or .rema.yaml from the working directory or
// $HOME when configFile is empty. A missing default config file is not an
// error.
func loadConfig(v *viper.Viper, configFile string) (Config, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".rema")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("dir"))
		v.AddConfigPath("$HOME")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	dir, err := filepath.Abs(v.GetString("dir"))
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve dir: %w", err)
	}
	cfg := Config{
		Dir:            dir,
		LogLevel:       v.GetString("log_level"),
		Remote:         v.GetString("remote"),
		Branch:         v.GetString("branch"),
		GenerateNotes:  v.GetBool("generate_notes"),
		StrictTagSync:  v.GetBool("strict_tag_sync"),
		RequireClean:   v.GetBool("require_clean"),
		GitMinVersion:  v.GetString("git_min_version"),
		GhMinVersion:   v.GetString("gh_min_version"),
		ToolMaxVersion: v.GetString("tool_max_version"),
		ReleasesLimit:  v.GetInt("releases_limit"),
		ReleasesFile:   v.GetString("releases_file"),
		Timeout:        v.GetDuration("timeout"),
	}
	return cfg, nil
}
