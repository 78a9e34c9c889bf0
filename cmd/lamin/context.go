package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"lamin/internal/config"
	"lamin/internal/logging"
	"lamin/internal/setup"
	"lamin/internal/tracking"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	setupOptions []setup.Option
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
			if err := cfg.Validate(); err != nil {
				c.configErr = err
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) manager() (*setup.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts := append([]setup.Option{
		setup.WithLogger(c.ensureLogger()),
		setup.WithVersion(version),
	}, c.setupOptions...)
	return setup.New(cfg, opts...)
}

// withTracking opens the current instance and runs fn against its tracking
// service.
func (c *commandContext) withTracking(ctx context.Context, fn func(*tracking.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	mgr, err := c.manager()
	if err != nil {
		return err
	}
	session, err := mgr.Open(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	svc := tracking.NewService(session.Store, session.Storage,
		tracking.WithLogger(c.ensureLogger().With(logging.String(logging.FieldInstance, session.Instance.Slug()))),
		tracking.WithInstance(cfg.Hub.URL, session.Instance.Slug()),
	)
	return fn(svc)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
