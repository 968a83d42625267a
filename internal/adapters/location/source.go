// Package location supplies the user's live position. A Source produces a
// stream of fixes; the Tracker keeps the latest one.
package location

import (
	"context"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/types"
)

// ErrPermissionDenied means the position cannot be read at all. It is
// terminal: the tracker does not retry.
var ErrPermissionDenied = types.ErrLocationDenied

// Source produces position fixes until ctx is done. The returned channel
// is closed when the source stops.
type Source interface {
	Stream(ctx context.Context) (<-chan model.Fix, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (<-chan model.Fix, error)

// Stream calls f(ctx).
func (f SourceFunc) Stream(ctx context.Context) (<-chan model.Fix, error) { return f(ctx) }
