package remote

import (
	"time"

	"go.uber.org/zap"

	"github.com/cube2222/remotescan/telemetry"
)

// Environment holds the settings tables serve their statements with.
type Environment struct {
	// PageRows is the maximum number of rows in a batch.
	PageRows int
	// PageBatches is the maximum number of batches returned by a single pull.
	PageBatches int
	// FetchTimeout bounds reads from the underlying storage during a pull.
	FetchTimeout time.Duration

	Logger    *zap.Logger
	Telemetry *telemetry.Collector
}

func DefaultEnvironment() Environment {
	return Environment{
		PageRows:     1024,
		PageBatches:  4,
		FetchTimeout: 30 * time.Second,
		Logger:       zap.NewNop(),
	}
}

// PullRows is the maximum number of source rows read by a single pull.
func (env Environment) PullRows() int {
	return env.PageRows * env.PageBatches
}
