package clock

import (
	"testing"
	"time"
)

func TestManualAdvanceMovesNow(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	c := NewManual(start)
	c.Advance(46 * time.Second)
	if got := c.Now().Sub(start); got != 46*time.Second {
		t.Fatalf("expected 46s elapsed, got %s", got)
	}
}

func TestManualTickerFiresOnAdvance(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	ticker := c.NewTicker(time.Second)
	defer ticker.Stop()

	select {
	case <-ticker.C():
		t.Fatal("ticker fired before time advanced")
	default:
	}

	c.Advance(time.Second)
	select {
	case <-ticker.C():
	default:
		t.Fatal("expected tick after one period")
	}

	c.Advance(5 * time.Second)
	select {
	case <-ticker.C():
	default:
		t.Fatal("expected coalesced tick after several periods")
	}
	select {
	case <-ticker.C():
		t.Fatal("expected missed ticks to be dropped")
	default:
	}
}

func TestManualTickerStop(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	ticker := c.NewTicker(time.Second)
	ticker.Stop()
	c.Advance(3 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}
