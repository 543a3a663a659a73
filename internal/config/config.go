package config

import (
	"context"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	dbFileName     = "fixtrack.db"
	configFileName = "config.yaml"
)

// Config holds the resolved locations of the fixtrack directory and its files.
type Config struct {
	Dir        string // resolved .fixtrack directory path
	DBPath     string // full path to fixtrack.db
	ConfigPath string // full path to config.yaml
	EnvVarSet  bool   // whether FIXTRACK_PATH was used
}

// Resolve returns the current configuration by checking FIXTRACK_PATH first,
// then falling back to $PWD/.fixtrack.
func Resolve() (*Config, error) {
	var dir string
	var envVarSet bool

	if envPath := os.Getenv("FIXTRACK_PATH"); envPath != "" {
		dir = envPath
		envVarSet = true
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(cwd, ".fixtrack")
	}

	return &Config{
		Dir:        dir,
		DBPath:     filepath.Join(dir, dbFileName),
		ConfigPath: filepath.Join(dir, configFileName),
		EnvVarSet:  envVarSet,
	}, nil
}

// Exists checks if the fixtrack directory and DB file both exist.
// It returns an error for non-existence failures (e.g. permission errors).
func (c *Config) Exists() (bool, error) {
	for _, p := range []string{c.Dir, c.DBPath} {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

var (
	defaultActor     string
	defaultActorOnce sync.Once
)

// DefaultActor returns the name recorded as changed_by for manual status
// changes. It tries git config user.name first and falls back to the OS
// username. The result is cached for the lifetime of the process.
func DefaultActor() string {
	defaultActorOnce.Do(func() {
		defaultActor = resolveActor()
	})
	return defaultActor
}

func resolveActor() string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", "config", "user.name").Output()
	if err == nil {
		if name := strings.TrimSpace(string(out)); name != "" {
			return name
		}
	}

	u, err := user.Current()
	if err == nil && u.Username != "" {
		return u.Username
	}

	return "unknown"
}
