package pagesource

import (
	"time"

	"go.uber.org/zap"

	"github.com/cube2222/remotescan/dynamicfilter"
	"github.com/cube2222/remotescan/telemetry"
)

type Option func(*PageSource)

// WithFilterSupplier enables dynamic filter pushdown from the given supplier.
func WithFilterSupplier(supplier dynamicfilter.Supplier) Option {
	return func(ps *PageSource) {
		ps.filterSupplier = supplier
	}
}

func WithConverter(converter *dynamicfilter.Converter) Option {
	return func(ps *PageSource) {
		ps.converter = converter
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(ps *PageSource) {
		ps.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(ps *PageSource) {
		ps.now = now
	}
}

func WithTelemetry(collector *telemetry.Collector) Option {
	return func(ps *PageSource) {
		ps.telemetry = collector
	}
}
