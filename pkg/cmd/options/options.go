package options

import (
	"context"
	"os"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"

	"github.com/maxgio92/pyperf/internal/config"
	"github.com/maxgio92/pyperf/pkg/session"
)

type CommonOptions struct {
	Ctx      context.Context
	Logger   log.Logger
	LogLevel string

	ConfigPath string
	Workspace  string
}

// Init levels the logger and loads the configuration, with the
// workspace flag taking precedence over the file.
func (o *CommonOptions) Init() (*config.Config, error) {
	if err := o.InitLogger(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.Workspace != "" {
		cfg.Workspace = o.Workspace
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

// InitLogger applies the log level flag to the logger.
func (o *CommonOptions) InitLogger() error {
	logLevel, err := log.ParseLevel(o.LogLevel)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	o.Logger = o.Logger.Level(logLevel)

	return nil
}

// OpenTree loads the sessions of the workspace. Session files that
// cannot be read are logged and skipped.
func (o *CommonOptions) OpenTree(cfg *config.Config) (*session.Tree, error) {
	if err := os.MkdirAll(cfg.Workspace, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create workspace %s", cfg.Workspace)
	}

	tree := session.NewTree(session.WithLogger(o.Logger))
	if err := tree.Load(cfg.Workspace); err != nil {
		o.Logger.Warn().Err(err).Msg("some sessions could not be loaded")
	}

	return tree, nil
}

// FindSession returns the session of tree called name.
func FindSession(tree *session.Tree, name string) (*session.Session, error) {
	s := tree.FindByName(name)
	if s == nil {
		return nil, errors.Wrapf(session.ErrSessionNotFound, "%q", name)
	}
	return s, nil
}
