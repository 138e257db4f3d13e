package platformserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	pettypes "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application/types"
	"github.com/Apurer/go-cqrs-platform/internal/dispatch"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/message"
	"github.com/Apurer/go-cqrs-platform/internal/platform/auth"
)

const jwtSecret = "api-test-secret"

func bearer(t *testing.T, subject string, roles, tenants []string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":     subject,
		"roles":   roles,
		"tenants": tenants,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + raw
}

func authFixture(t *testing.T) *fixture {
	t.Helper()
	v, err := auth.NewVerifier(jwtSecret, "", "", 0)
	require.NoError(t, err)
	return newFixture(t, Authenticate(v))
}

func TestAuthenticate_TokenSuppliesUserAndRoles(t *testing.T) {
	f := authFixture(t)
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything, mock.MatchedBy(func(cmd message.Command) bool {
		return cmd.Metadata.UserID == "alice"
	})).Return(dispatch.Receipt{}, nil)

	// Spoofed headers lose to the token.
	rec := f.do(http.MethodPost, "/v1/tenants/t1/commands",
		CommandRequest{Type: pettypes.CommandRegister, AggregateID: "p1"},
		map[string]string{"Authorization": bearer(t, "alice", []string{"pets.clerk"}, []string{"t1"}), HeaderUserID: "mallory"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	f.dispatcher.AssertExpectations(t)

	rec = f.do(http.MethodPost, "/v1/tenants/t1/commands",
		CommandRequest{Type: pettypes.CommandRegister, AggregateID: "p1"},
		map[string]string{"Authorization": bearer(t, "bob", nil, nil), HeaderRoles: "pets.admin"})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthenticate_Rejections(t *testing.T) {
	f := authFixture(t)

	rec := f.do(http.MethodGet, "/v1/tenants/t1/pets", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/v1/tenants/t1/pets", nil, map[string]string{"Authorization": "Bearer not-a-token"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/v1/tenants/t2/pets", nil,
		map[string]string{"Authorization": bearer(t, "alice", nil, []string{"t1"})})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
