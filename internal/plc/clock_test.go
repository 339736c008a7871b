package plc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVirtualClock_Advance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewVirtualClock(start)

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, start.Add(1500*time.Millisecond), clock.Now())

	clock.Advance(-time.Second)
	assert.Equal(t, start.Add(1500*time.Millisecond), clock.Now(), "negative advance ignored")
}

func TestVirtualClock_ZeroStart(t *testing.T) {
	clock := NewVirtualClock(time.Time{})
	assert.False(t, clock.Now().IsZero())
}

func TestVirtualClock_TickerFiresOnDeadline(t *testing.T) {
	clock := NewVirtualClock(time.Time{})
	ticker := clock.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	clock.Advance(9 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired early")
	default:
	}

	clock.Advance(time.Millisecond)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire at its deadline")
	}
}

func TestVirtualClock_TickerDropsWhenBehind(t *testing.T) {
	clock := NewVirtualClock(time.Time{})
	ticker := clock.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	clock.Advance(10 * time.Millisecond)
	clock.Advance(10 * time.Millisecond)
	clock.Advance(10 * time.Millisecond)

	assert.Len(t, ticker.C(), 1)
}

func TestVirtualClock_StoppedTickerIsSilent(t *testing.T) {
	clock := NewVirtualClock(time.Time{})
	ticker := clock.NewTicker(10 * time.Millisecond)
	ticker.Stop()
	ticker.Stop()

	clock.Advance(time.Second)
	assert.Len(t, ticker.C(), 0)
}

func TestVirtualClock_NewTickerPanicsOnNonPositive(t *testing.T) {
	clock := NewVirtualClock(time.Time{})
	assert.Panics(t, func() { clock.NewTicker(0) })
}
