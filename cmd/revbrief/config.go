package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alnah/go-revbrief/internal/config"
	"github.com/alnah/go-revbrief/internal/hints"
)

// loadConfig resolves the effective configuration for a command.
// Priority: --config flag, then REVBRIEF_CONFIG, then env.Config defaults.
// Environment overrides are applied on top; flags are merged later.
func loadConfig(flagPath string, env *Environment) (*config.Config, error) {
	ec := loadEnvConfig()
	warnUnknownEnvVars(env.Stderr)

	path := flagPath
	if path == "" {
		path = ec.ConfigPath
	}

	var cfg *config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(config.SearchPaths(path)))
			}
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	} else {
		clone := *env.Config
		cfg = &clone
	}

	applyEnvConfig(ec, cfg)
	return cfg, nil
}

// runConfig handles `revbrief config init|show`.
func runConfig(args []string, env *Environment) error {
	if len(args) == 0 {
		printConfigUsage(env.Stderr)
		return fmt.Errorf("%w: config needs a subcommand", ErrUsage)
	}

	switch args[0] {
	case "init":
		return runConfigInit(args[1:], env)
	case "show":
		flags, _, err := parseCommonOnly("config show", args[1:])
		if err != nil {
			return err
		}
		cfg, err := loadConfig(flags.config, env)
		if err != nil {
			return err
		}
		return writeConfig(env, cfg)
	default:
		printConfigUsage(env.Stderr)
		return fmt.Errorf("%w: config %s", ErrUnknownCommand, args[0])
	}
}

// runConfigInit writes the default configuration to stdout, or to a file
// when one is named. Existing files are never overwritten.
func runConfigInit(args []string, env *Environment) error {
	if len(args) == 0 {
		return writeConfig(env, config.DefaultConfig())
	}

	data, err := config.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	// #nosec G304 -- user-provided path
	f, err := os.OpenFile(args[0], os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermissions)
	if err != nil {
		return fmt.Errorf("creating config: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(env.Stdout, "Created %s\n", args[0])
	return nil
}

func writeConfig(env *Environment, cfg *config.Config) error {
	data, err := config.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = env.Stdout.Write(data)
	return err
}
