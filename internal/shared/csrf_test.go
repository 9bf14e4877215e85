package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureTokenIsStable(t *testing.T) {
	manager := NewCSRFManager("csrfsecret")
	sess := &Session{ID: "sid"}

	token, err := manager.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	again, err := manager.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	require.Equal(t, token, again)
}

func TestVerifyToken(t *testing.T) {
	manager := NewCSRFManager("csrfsecret")
	sess := &Session{ID: "sid"}

	token, err := manager.EnsureToken(context.Background(), sess)
	require.NoError(t, err)

	require.NoError(t, manager.VerifyToken(context.Background(), sess, token))
	require.ErrorIs(t, manager.VerifyToken(context.Background(), sess, "tampered"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, manager.VerifyToken(context.Background(), sess, ""), ErrCSRFTokenMissing)
}
