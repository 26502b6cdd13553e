package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "paygate/pkg/domain-errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-signing-key", "paygate")

	signed, err := svc.Generate("agent-1", time.Hour)
	require.NoError(t, err)

	principal, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", principal.String())
}

func TestValidateRejections(t *testing.T) {
	svc := NewService("test-signing-key", "paygate")

	t.Run("expired token", func(t *testing.T) {
		signed, err := svc.Generate("agent-1", -time.Minute)
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		assert.Equal(t, derrors.CodeUnauthorized, derrors.CodeOf(err))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewService("some-other-key", "paygate")
		signed, err := other.Generate("agent-1", time.Hour)
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		assert.Equal(t, derrors.CodeUnauthorized, derrors.CodeOf(err))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Validate("not-a-token")
		assert.Equal(t, derrors.CodeUnauthorized, derrors.CodeOf(err))
	})
}
