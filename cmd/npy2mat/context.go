package main

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/backmassage/npy2mat/internal/config"
	"github.com/backmassage/npy2mat/internal/logging"
)

// errReported marks errors that have already been logged to the user.
var errReported = errors.New("already reported")

// flagValues holds the persistent flags shared by every subcommand.
type flagValues struct {
	config   string
	logFile  string
	color    string
	noColor  bool
	verbose  bool
	compress bool
	variable string
}

type commandContext struct {
	flags *flagValues

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *flagValues) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads the config file once and applies any flags the user
// set explicitly, then validates the result.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		c.applyFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("log") {
		cfg.Logging.File = c.flags.logFile
	}
	if changed("color") {
		cfg.Logging.Color = config.ColorMode(strings.ToLower(c.flags.color))
	}
	if c.flags.noColor {
		cfg.Logging.Color = config.ColorNever
	}
	if changed("verbose") {
		cfg.Logging.Verbose = c.flags.verbose
	}
	if changed("compress") {
		cfg.Convert.Compress = c.flags.compress
	}
	if changed("var") {
		cfg.Convert.VariableName = c.flags.variable
	}
}

// newLogger loads the config and opens a logger for it.
func (c *commandContext) newLogger(cmd *cobra.Command) (*config.Config, *logging.Logger, error) {
	cfg, err := c.ensureConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
