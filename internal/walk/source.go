package walk

import "context"

// LocationSource is the platform location service. The walk only tells it how hard to
// sample; fixes flow back through Ingest or Consume.
type LocationSource interface {
	StartUpdates()
	ReduceUpdates()
	StopUpdates()
}

type noopSource struct{}

func (noopSource) StartUpdates()  {}
func (noopSource) ReduceUpdates() {}
func (noopSource) StopUpdates()   {}

// Consume ingests delivery batches in order until the channel closes, ctx ends or the
// walk completes.
func (w *Walk) Consume(ctx context.Context, batches <-chan []Fix) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			w.IngestBatch(batch)
			if w.State() == StateCompleted {
				return nil
			}
		}
	}
}
