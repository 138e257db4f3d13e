package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	require.Equal(t, "req-42", RequestIDFromContext(ctx))
}

func TestRequestIDMissing(t *testing.T) {
	require.Empty(t, RequestIDFromContext(context.Background()))
	//nolint:staticcheck // nil context is tolerated on purpose
	require.Empty(t, RequestIDFromContext(nil))
}

func TestWithUserIDNilContext(t *testing.T) {
	//nolint:staticcheck // nil context is tolerated on purpose
	ctx := WithUserID(nil, "user-7")
	require.NotNil(t, ctx)
	require.Equal(t, "user-7", UserIDFromContext(ctx))
}
