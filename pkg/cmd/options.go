package cmd

import (
	"context"

	log "github.com/rs/zerolog"

	"github.com/maxgio92/pyperf/pkg/cmd/options"
)

type Options struct {
	*options.CommonOptions
}

type Option func(o *Options)

func NewOptions(opts ...Option) *Options {
	o := new(Options)
	o.CommonOptions = new(options.CommonOptions)
	o.Logger = log.Nop()

	for _, f := range opts {
		f(o)
	}

	return o
}

func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.common().Ctx = ctx
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.common().Logger = logger
	}
}

func WithLogLevel(level string) Option {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.common().LogLevel = level
	}
}

func WithConfigPath(path string) Option {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.common().ConfigPath = path
	}
}

func (o *Options) common() *options.CommonOptions {
	if o.CommonOptions == nil {
		o.CommonOptions = new(options.CommonOptions)
	}
	return o.CommonOptions
}
