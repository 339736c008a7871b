package plc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCounter_RejectsNonPositivePreset(t *testing.T) {
	for _, preset := range []int{0, -3} {
		c, err := NewCounter(preset)
		assert.Nil(t, c)
		assert.True(t, IsConfigurationError(err))
	}
}

func TestCounter_CountsRisingEdgesOnly(t *testing.T) {
	c, err := NewCounter(10)
	require.NoError(t, err)

	samples := []bool{false, true, true, true, false, false, true, false, true}
	for _, s := range samples {
		c.CountUp(s, false)
	}

	assert.Equal(t, 3, c.Current())
	assert.False(t, c.Done())
}

func TestCounter_HighAtFirstSampleCounts(t *testing.T) {
	c, err := NewCounter(1)
	require.NoError(t, err)

	c.CountUp(true, false)
	assert.Equal(t, 1, c.Current())
	assert.True(t, c.Done())
}

func TestCounter_DoneIsSticky(t *testing.T) {
	c, err := NewCounter(2)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		c.CountUp(true, false)
		c.CountUp(false, false)
	}
	require.True(t, c.Done())

	c.CountUp(true, false)
	c.CountUp(false, false)
	assert.True(t, c.Done())
	assert.Equal(t, 3, c.Current())
}

func TestCounter_ResetKeepsEdgeMemory(t *testing.T) {
	c, err := NewCounter(5)
	require.NoError(t, err)

	c.CountUp(true, false)
	require.Equal(t, 1, c.Current())

	c.CountUp(true, true)
	assert.Equal(t, CounterSnapshot{Current: 0, Preset: 5, Done: false}, c.Snapshot())

	// Input was high before the reset and still is: no new edge.
	c.CountUp(true, false)
	assert.Equal(t, 0, c.Current())

	c.CountUp(false, false)
	c.CountUp(true, false)
	assert.Equal(t, 1, c.Current())
}

func TestCounter_ResetMethodClearsEdgeMemory(t *testing.T) {
	c, err := NewCounter(5)
	require.NoError(t, err)

	c.CountUp(true, false)
	c.Reset()

	c.CountUp(true, false)
	assert.Equal(t, 1, c.Current())
}
