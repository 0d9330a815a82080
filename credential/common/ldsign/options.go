package ldsign

import (
	"go.uber.org/zap"

	"github.com/smartbcity/iris-go/credential/common/processor"
)

type options struct {
	logger    *zap.Logger
	processor *processor.Processor
}

// Opt configures Sign and Verify.
type Opt func(*options)

// WithLogger sets the logger used to trace sign and verify calls.
func WithLogger(logger *zap.Logger) Opt {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProcessor sets the canonicalization engine. Defaults to processor.New().
func WithProcessor(p *processor.Processor) Opt {
	return func(o *options) {
		if p != nil {
			o.processor = p
		}
	}
}

func newOptions(opts []Opt) *options {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.processor == nil {
		o.processor = processor.New()
	}
	return o
}
