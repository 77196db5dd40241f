// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package worker

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"go.chromium.org/testworker/errors"
	"go.chromium.org/testworker/internal/args"
	"go.chromium.org/testworker/internal/command"
	"go.chromium.org/testworker/internal/control"
	"go.chromium.org/testworker/internal/engine"
	"go.chromium.org/testworker/internal/redirect"
)

// Config contains the run settings. Values come from defaults, then from
// the YAML file named by -config, then from flags.
type Config struct {
	// Units are identifiers or @manifest references run before those given
	// as positional arguments.
	Units []string `yaml:"units"`
	// Engine names the execution engine.
	Engine string `yaml:"engine"`
	// Seed is passed to the engine. Zero keeps the requested order.
	Seed int64 `yaml:"seed"`
	// Parallel is the number of suites the engine may run at once.
	Parallel int `yaml:"parallel"`
	// CaseTimeout limits cases that do not set their own timeout.
	CaseTimeout time.Duration `yaml:"case_timeout"`
	// Format is the event stream encoding, "json" or "proto".
	Format string `yaml:"format"`
	// Heartbeat is the interval between Heartbeat events. Zero disables them.
	Heartbeat time.Duration `yaml:"heartbeat"`
	// BufferSize is the capture buffer size per output channel.
	BufferSize int `yaml:"buffer_size"`
	// CaptureFDs also captures raw writes to file descriptors 1 and 2.
	CaptureFDs bool `yaml:"capture_fds"`
	// Syslog copies diagnostics to syslog.
	Syslog bool `yaml:"syslog"`
	// Verbose writes debug diagnostics and mirrors events to stderr.
	Verbose bool `yaml:"verbose"`
}

func defaultConfig() *Config {
	return &Config{
		Engine:     engine.DefaultName,
		Parallel:   1,
		Format:     string(control.FormatJSON),
		BufferSize: redirect.DefaultBufferSize,
	}
}

// setFlags binds cfg's fields to flags in fs.
func (cfg *Config) setFlags(fs *flag.FlagSet) {
	fs.StringVar(&cfg.Engine, "engine", cfg.Engine, "execution engine to run suites with")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "seed for the engine; 0 keeps the requested order")
	fs.IntVar(&cfg.Parallel, "parallel", cfg.Parallel, "maximum number of suites run at once")
	fs.DurationVar(&cfg.CaseTimeout, "case_timeout", cfg.CaseTimeout, "default timeout of each case; 0 for none")
	fs.StringVar(&cfg.Format, "format", cfg.Format, `event stream encoding ("json" or "proto")`)
	fs.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "interval between heartbeat events; 0 disables them")
	fs.IntVar(&cfg.BufferSize, "buffer_size", cfg.BufferSize, "capture buffer size per output channel in bytes")
	fs.BoolVar(&cfg.CaptureFDs, "capture_fds", cfg.CaptureFDs, "also capture writes to file descriptors 1 and 2 (Linux only)")
	fs.BoolVar(&cfg.Syslog, "syslog", cfg.Syslog, "copy diagnostics to syslog")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "write debug diagnostics and mirror events to stderr")
}

func newFlagSet(cfg *Config, configPath *string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(filepath.Base(os.Args[0]), flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flag]... <suite | @manifest>...\n\n"+
			"Runs test suites in this process and writes events to stdout.\n\n",
			fs.Name())
		fs.PrintDefaults()
	}
	fs.StringVar(configPath, "config", *configPath, "YAML file with default flag values")
	cfg.setFlags(fs)
	return fs
}

// loadConfigFile merges the YAML file at path into cfg.
func loadConfigFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read config")
	}
	if err := yaml.UnmarshalStrict(b, cfg); err != nil {
		return errors.Wrapf(err, "failed to parse config %s", path)
	}
	return nil
}

// readArgs parses command-line arguments and returns the run settings and
// the expanded unit identifiers. All errors carry StatusSetupUnavailable.
func readArgs(clArgs []string, stderr io.Writer) (*Config, []string, error) {
	// Flags are parsed twice: first to find -config, then again on top of
	// the file's values so that flags win.
	var configPath string
	scratch := defaultConfig()
	if err := newFlagSet(scratch, &configPath, stderr).Parse(clArgs); err != nil {
		return nil, nil, command.NewStatusErrorf(StatusSetupUnavailable, "bad flags: %v", err)
	}

	cfg := defaultConfig()
	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, nil, command.NewStatusErrorf(StatusSetupUnavailable, "%v", err)
		}
	}
	fs := newFlagSet(cfg, &configPath, stderr)
	if err := fs.Parse(clArgs); err != nil {
		return nil, nil, command.NewStatusErrorf(StatusSetupUnavailable, "bad flags: %v", err)
	}

	if _, err := control.ParseFormat(cfg.Format); err != nil {
		return nil, nil, command.NewStatusErrorf(StatusSetupUnavailable, "%v", err)
	}
	if cfg.Parallel < 1 {
		return nil, nil, command.NewStatusErrorf(StatusSetupUnavailable, "-parallel must be positive; got %d", cfg.Parallel)
	}

	tokens := append(append([]string(nil), cfg.Units...), fs.Args()...)
	ids, err := args.Expand(tokens)
	if err != nil {
		return nil, nil, command.NewStatusErrorf(StatusSetupUnavailable, "bad arguments: %v", err)
	}
	return cfg, ids, nil
}
