package publisher

import (
	"context"

	"github.com/rkanno/arxiv-daily/internal/pipeline"
)

// Publisher renders a completed run to some output destination.
type Publisher interface {
	Publish(ctx context.Context, run *pipeline.Run) error
}
