package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinshon/buildxup-backend/internal/domain"
)

func TestNewIdentityPrefersPhone(t *testing.T) {
	identity, err := domain.NewIdentity("+919900112233", "owner@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.IdentityPhone, identity.Kind)
	require.Equal(t, "+919900112233", identity.Value)
}

func TestNewIdentityFallsBackToEmail(t *testing.T) {
	identity, err := domain.NewIdentity("", "  Owner@Example.COM ")
	require.NoError(t, err)
	require.Equal(t, domain.IdentityEmail, identity.Kind)
	require.Equal(t, "owner@example.com", identity.Value)
}

func TestNewIdentityRequiresOneKey(t *testing.T) {
	_, err := domain.NewIdentity("  ", "")
	require.ErrorIs(t, err, domain.ErrNoIdentity)
}
