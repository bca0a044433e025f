package ascboot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFenwick_AddAndPrefixSum(t *testing.T) {
	f := newFenwick(8)
	f.add(0, 1)
	f.add(1, 2)
	f.add(2, 3)

	assert.Equal(t, 1.0, f.prefixSum(0))
	assert.Equal(t, 3.0, f.prefixSum(1))
	assert.Equal(t, 6.0, f.prefixSum(2))
	assert.Equal(t, 6.0, f.total(3))
}

func TestFenwick_SetUpdatesDelta(t *testing.T) {
	f := newFenwick(8)
	f.add(0, 5)
	f.set(0, 5, 2)

	assert.Equal(t, 2.0, f.prefixSum(0))
}

func TestFenwick_FindLocatesWeightedTarget(t *testing.T) {
	f := newFenwick(8)
	f.add(0, 1) // cumulative: [0,1)
	f.add(1, 1) // [1,2)
	f.add(2, 8) // [2,10)

	assert.Equal(t, 0, f.find(0.5, 3))
	assert.Equal(t, 1, f.find(1.5, 3))
	assert.Equal(t, 2, f.find(5.0, 3))
	assert.Equal(t, 2, f.find(10.0, 3))
}

func TestFenwick_EraseBySwapKeepsTotalConsistent(t *testing.T) {
	f := newFenwick(8)
	f.add(0, 1)
	f.add(1, 2)
	f.add(2, 3)

	// Simulate accounts.erase(0): zero slot 0, move slot 2's weight into it.
	f.set(0, 1, 0)
	f.set(2, 3, 0)
	f.add(0, 3)

	assert.Equal(t, 5.0, f.total(2))
}
