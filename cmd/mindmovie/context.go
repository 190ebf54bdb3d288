package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mindmovie/internal/config"
	"mindmovie/internal/ledger"
	"mindmovie/internal/logging"
	"mindmovie/internal/pipeline"
	"mindmovie/internal/publish"
	"mindmovie/internal/services"
	"mindmovie/internal/state"
)

// errAborted ends a command the user declined; nothing more is printed.
var errAborted = errors.New("aborted")

type globalFlags struct {
	config   string
	logLevel string
	verbose  bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(c.flags.config)
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "", err)
			return
		}
		switch {
		case c.flags.verbose:
			cfg.Logging.Level = "debug"
		case strings.TrimSpace(c.flags.logLevel) != "":
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(c.flags.logLevel))
		default:
			// The console belongs to the interview and progress output.
			cfg.Logging.Level = "warn"
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.config)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// session is an open, locked build directory.
type session struct {
	cfg    *config.Config
	store  *state.Store
	logger *slog.Logger
	ledger *ledger.Store
	unlock func()
}

func (s *session) Close() {
	if s.ledger != nil {
		_ = s.ledger.Close()
	}
	if s.unlock != nil {
		s.unlock()
	}
}

// openSession opens the state store and takes the build lock. With
// withLedger the attempt ledger is opened too; a ledger that cannot open is
// reported and skipped.
func (c *commandContext) openSession(cmd *cobra.Command, withLedger bool) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := state.Open(cfg.Build.BuildDir)
	if err != nil {
		return nil, err
	}
	unlock, err := store.Lock()
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, store: store, logger: c.ensureLogger(), unlock: unlock}
	if withLedger {
		s.openLedger(cmd)
	}
	return s, nil
}

func (s *session) openLedger(cmd *cobra.Command) {
	if s.ledger != nil {
		return
	}
	led, err := ledger.Open(s.cfg.Build.BuildDir)
	if err != nil {
		logging.WarnWithContext(s.logger, "generation ledger unavailable", "ledger_unavailable",
			logging.String(logging.FieldImpact, "clip attempts will not be recorded"),
			logging.Error(err),
		)
		return
	}
	if n, err := led.MarkInterrupted(cmd.Context()); err == nil && n > 0 {
		s.logger.Info("marked interrupted ledger attempts", logging.Int64("attempts", n))
	}
	s.ledger = led
}

func (s *session) orchestrator(ui pipeline.UI) *pipeline.Orchestrator {
	opts := []pipeline.Option{}
	if s.ledger != nil {
		opts = append(opts, pipeline.WithLedger(s.ledger))
	}
	if s.cfg.Publish.Enabled {
		pub, err := publish.NewPublisher(s.cfg, s.logger)
		if err != nil {
			logging.WarnWithContext(s.logger, "publishing disabled", "publish_unavailable",
				logging.String(logging.FieldErrorHint, "check the [publish] settings"),
				logging.Error(err),
			)
		} else {
			opts = append(opts, pipeline.WithPublisher(pub))
		}
	}
	return pipeline.New(s.cfg, s.store, ui, s.logger, opts...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
