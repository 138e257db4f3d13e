package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAdvanceAndStale(t *testing.T) {
	var p Projection[string]
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	require.False(t, p.Stale(1))
	p.Advance(1, t1)
	p.Advance(2, t2)

	require.Equal(t, t1, p.Metadata.CreatedAt)
	require.Equal(t, t2, p.Metadata.UpdatedAt)
	require.True(t, p.Stale(2))
	require.False(t, p.Stale(3))

	var missing *Projection[string]
	require.False(t, missing.Stale(1))
}
