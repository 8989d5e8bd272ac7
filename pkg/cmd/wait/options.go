package wait

import (
	"time"

	"github.com/maxgio92/pyperf/pkg/cmd/options"
)

type Options struct {
	socketPath string
	timeout    time.Duration

	*options.CommonOptions
}

type Option func(o *Options)

func NewOptions(opts ...Option) *Options {
	o := new(Options)
	o.CommonOptions = new(options.CommonOptions)

	for _, f := range opts {
		f(o)
	}

	return o
}

// WithCommonOptions shares the options of the root command, which are
// only filled in once the flags are parsed.
func WithCommonOptions(common *options.CommonOptions) Option {
	return func(o *Options) {
		if common != nil {
			o.CommonOptions = common
		}
	}
}
