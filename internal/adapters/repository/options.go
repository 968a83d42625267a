package repository

import "github.com/okian/jacktrack/pkg/logger"

// Option applies a configuration option to a store.
type Option func(*options)

type options struct {
	logger logger.Logger
}

func newOptions(opts []Option) options {
	o := options{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
