package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesting-project/models"
)

const owner = "0xAbCdEf0000000000000000000000000000000001"

func TestGuard(t *testing.T) {
	g, err := NewGuard(owner)
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0000000000000000000000000000000001", g.Owner())

	assert.NoError(t, g.Authorize(owner))
	assert.NoError(t, g.Authorize("0xabcdef0000000000000000000000000000000001"))

	err = g.Authorize("0x0000000000000000000000000000000000000002")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.ErrorIs(t, g.Authorize(""), models.ErrUnauthorized)
}

func TestNewGuard_InvalidOwner(t *testing.T) {
	_, err := NewGuard("owner")
	assert.ErrorIs(t, err, models.ErrInvalidAddress)
}
