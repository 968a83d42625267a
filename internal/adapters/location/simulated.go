package location

import (
	"context"
	"time"

	"github.com/okian/jacktrack/internal/domain/model"
)

// SimulatedSource walks in a straight line from one coordinate to another
// in a fixed number of steps, then keeps reporting the destination.
type SimulatedSource struct {
	From     model.Coordinate
	To       model.Coordinate
	Steps    int
	Interval time.Duration
}

// Stream emits one fix per Interval until ctx is done.
func (s SimulatedSource) Stream(ctx context.Context) (<-chan model.Fix, error) {
	steps := s.Steps
	if steps < 1 {
		steps = 1
	}
	interval := s.Interval
	if interval <= 0 {
		interval = time.Second
	}

	out := make(chan model.Fix)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			if i > steps {
				i = steps
			}
			fix := model.Fix{Position: s.To, AccuracyM: 3, At: time.Now()}
			if i < steps {
				f := float64(i) / float64(steps)
				fix.Position = model.Coordinate{
					Latitude:  s.From.Latitude + (s.To.Latitude-s.From.Latitude)*f,
					Longitude: s.From.Longitude + (s.To.Longitude-s.From.Longitude)*f,
				}
			}
			select {
			case out <- fix:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
