package maintenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReservoir_BoundsMemoryPastCapacity(t *testing.T) {
	r := NewReservoir()
	for i := 0; i < reservoirSize*3; i++ {
		r.Add(float64(i))
	}
	assert.LessOrEqual(t, len(r.samples), reservoirSize)
}

func TestReservoir_P95_WithinObservedRange(t *testing.T) {
	r := NewReservoir()
	for i := 1; i <= 100; i++ {
		r.Add(float64(i))
	}
	p95 := r.P95()
	assert.GreaterOrEqual(t, p95, 90.0)
	assert.LessOrEqual(t, p95, 100.0)
}

func TestReservoir_MeanOfEmptyIsZero(t *testing.T) {
	r := NewReservoir()
	assert.Zero(t, r.Mean())
	assert.Zero(t, r.P95())
}
