package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountZero(t *testing.T) {
	assert.True(t, ZeroAccount.IsZero())

	a := RandomAccount()
	assert.False(t, a.IsZero())
}

func TestAccountRoundTrip(t *testing.T) {
	a := RandomAccount()
	hex := a.Hex()

	back, err := HexToAccount(hex)
	assert.NoError(t, err)
	assert.Equal(t, a, back)
}

func TestAccountAsHash(t *testing.T) {
	a := RandomAccount()
	h := a.AsHash()
	assert.Equal(t, a.Bytes(), h.Bytes())
}
