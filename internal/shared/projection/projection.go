// Package projection holds the envelope shared by the read models.
package projection

import "time"

// Metadata captures persistence timestamps and the stream version a read
// model has caught up to.
type Metadata struct {
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Projection represents an aggregate view plus persistence metadata.
type Projection[T any] struct {
	Entity   T
	Metadata Metadata
}

// Stale reports whether an event at version has already been folded in.
func (p *Projection[T]) Stale(version int64) bool {
	return p != nil && version <= p.Metadata.Version
}

// Advance records that the event at version was folded in at ts.
func (p *Projection[T]) Advance(version int64, ts time.Time) {
	if p.Metadata.CreatedAt.IsZero() {
		p.Metadata.CreatedAt = ts
	}
	p.Metadata.UpdatedAt = ts
	p.Metadata.Version = version
}
