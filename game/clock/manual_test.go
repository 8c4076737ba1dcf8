package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManual_Now(t *testing.T) {
	m := NewManual(epoch)
	if !m.Now().Equal(epoch) {
		t.Fatalf("Expected %v, got %v", epoch, m.Now())
	}

	m.Advance(1500 * time.Millisecond)
	if got := m.Now().Sub(epoch); got != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s elapsed, got %v", got)
	}
}

func TestManual_EveryFiresPerPeriod(t *testing.T) {
	m := NewManual(epoch)
	count := 0
	m.Every(time.Second, func() { count++ })

	m.Advance(999 * time.Millisecond)
	if count != 0 {
		t.Fatalf("Expected no fire before first period, got %d", count)
	}

	m.Advance(time.Millisecond)
	if count != 1 {
		t.Fatalf("Expected 1 fire at first period, got %d", count)
	}

	m.Advance(3 * time.Second)
	if count != 4 {
		t.Errorf("Expected 4 fires after 4s, got %d", count)
	}
}

func TestManual_NowDuringCallback(t *testing.T) {
	m := NewManual(epoch)
	var seen []time.Duration
	m.Every(250*time.Millisecond, func() {
		seen = append(seen, m.Now().Sub(epoch))
	})

	m.Advance(time.Second)

	want := []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, 750 * time.Millisecond, time.Second}
	if len(seen) != len(want) {
		t.Fatalf("Expected %d fires, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Fire %d: expected now=%v, got %v", i, want[i], seen[i])
		}
	}
}

func TestManual_ChronologicalOrder(t *testing.T) {
	m := NewManual(epoch)
	var order []string
	m.Every(3*time.Second, func() { order = append(order, "slow") })
	m.Every(time.Second, func() { order = append(order, "fast") })

	m.Advance(3 * time.Second)

	want := []string{"fast", "fast", "slow", "fast"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, order)
			break
		}
	}
}

func TestManual_StopFromCallback(t *testing.T) {
	m := NewManual(epoch)
	count := 0
	var task Task
	task = m.Every(time.Second, func() {
		count++
		if count == 2 {
			task.Stop()
		}
	})

	m.Advance(10 * time.Second)
	if count != 2 {
		t.Errorf("Expected task to stop itself after 2 fires, got %d", count)
	}
	if m.Pending() != 0 {
		t.Errorf("Expected no pending tasks, got %d", m.Pending())
	}
}

func TestManual_StopOtherFromCallback(t *testing.T) {
	m := NewManual(epoch)
	otherFired := 0
	other := m.Every(2*time.Second, func() { otherFired++ })
	m.Every(time.Second, func() { other.Stop() })

	m.Advance(5 * time.Second)
	if otherFired != 0 {
		t.Errorf("Expected stopped task never to fire, fired %d times", otherFired)
	}
}

func TestManual_ScheduleFromCallback(t *testing.T) {
	m := NewManual(epoch)
	inner := 0
	var once bool
	m.Every(time.Second, func() {
		if !once {
			once = true
			m.Every(500*time.Millisecond, func() { inner++ })
		}
	})

	m.Advance(2 * time.Second)
	if inner != 2 {
		t.Errorf("Expected task scheduled mid-advance to fire twice, got %d", inner)
	}
}

func TestManual_StopIdempotent(t *testing.T) {
	m := NewManual(epoch)
	task := m.Every(time.Second, func() {})
	task.Stop()
	task.Stop()
	if m.Pending() != 0 {
		t.Errorf("Expected 0 pending, got %d", m.Pending())
	}
}

func TestManual_NonPositivePeriodPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for zero period")
		}
	}()
	NewManual(epoch).Every(0, func() {})
}
