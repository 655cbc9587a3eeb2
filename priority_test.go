package ichor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKernelBand(t *testing.T) {
	assert.True(t, IsKernelBand(PriorityInsertService))
	assert.True(t, IsKernelBand(PriorityKernelInternal))
	assert.False(t, IsKernelBand(PriorityUserDefault))
	assert.False(t, IsKernelBand(PriorityUserLow))
}

func TestPriorityOrdering(t *testing.T) {
	assert.Less(t, uint64(PriorityInsertService), uint64(PriorityKernelInternal))
	assert.Less(t, uint64(PriorityKernelInternal), uint64(PriorityUserDefault))
	assert.Less(t, uint64(PriorityUserDefault), uint64(PriorityUserLow))
}
