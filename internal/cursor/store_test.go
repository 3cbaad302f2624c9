package cursor

import (
	"fmt"
	"sync"
	"testing"
)

const testKey = "event_type=Transfer"

func TestIsNew(t *testing.T) {
	tests := []struct {
		name        string
		watermark   int64
		recorded    []string // IDs recorded at event time watermark+10
		eventID     string
		eventTimeMs int64
		want        bool
	}{
		{"newer than watermark", 1000, nil, "tx-1-0", 1001, true},
		{"equal to watermark", 1000, nil, "tx-1-0", 1000, false},
		{"older than watermark", 1000, nil, "tx-1-0", 999, false},
		{"already seen", 1000, []string{"tx-1-0"}, "tx-1-0", 2000, false},
		{"sibling unseen", 1000, []string{"tx-1-0"}, "tx-1-1", 2000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore([]string{testKey}, tt.watermark)
			for _, id := range tt.recorded {
				s.Record(testKey, id, tt.watermark, tt.watermark)
			}
			if got := s.IsNew(testKey, tt.eventID, tt.eventTimeMs); got != tt.want {
				t.Errorf("IsNew(%q, %d) = %v, want %v", tt.eventID, tt.eventTimeMs, got, tt.want)
			}
		})
	}
}

func TestIsNew_UnknownFilter(t *testing.T) {
	s := NewStore([]string{testKey}, 0)
	if s.IsNew("event_type=Unknown", "tx-1-0", 100) {
		t.Error("IsNew for unknown filter = true, want false")
	}
}

func TestRecord_WatermarkMonotonic(t *testing.T) {
	s := NewStore([]string{testKey}, 500)

	// Out-of-order event times must never regress the watermark.
	s.Record(testKey, "a", 900, 1000)
	s.Record(testKey, "b", 700, 1000)
	s.Record(testKey, "c", 850, 1000)

	if got := s.Watermark(testKey); got != 900 {
		t.Errorf("Watermark = %d, want 900", got)
	}
}

func TestEvict_Window(t *testing.T) {
	s := NewStore([]string{testKey}, 0)

	s.Record(testKey, "old", 10, 1000)
	s.Record(testKey, "boundary", 20, 2000)
	s.Record(testKey, "fresh", 30, 3000)

	// Window of 1000ms at now=3000: cutoff is 2000. "old" (1000) is
	// strictly older and goes; "boundary" (exactly 2000) stays.
	s.Evict(3000, 1000, 100)

	if s.IsNew(testKey, "old", 40) != true {
		t.Error("evicted ID should classify as new again (above watermark)")
	}
	if s.IsNew(testKey, "boundary", 40) {
		t.Error("boundary entry was evicted, want kept")
	}
	if s.IsNew(testKey, "fresh", 40) {
		t.Error("fresh entry was evicted, want kept")
	}
	if got := s.TrackedIDs(); got != 2 {
		t.Errorf("TrackedIDs = %d, want 2", got)
	}
}

func TestEvict_SizeCap(t *testing.T) {
	s := NewStore([]string{testKey}, 0)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("tx-%d-0", i)
		s.Record(testKey, id, int64(100+i), int64(1000+i))
	}

	// All within window; cap of 2 keeps the two newest insertions.
	s.Evict(2000, 10000, 2)

	if got := s.TrackedIDs(); got != 2 {
		t.Fatalf("TrackedIDs = %d, want 2", got)
	}
	for _, id := range []string{"tx-3-0", "tx-4-0"} {
		if s.IsNew(testKey, id, 9999) {
			t.Errorf("newest entry %s was evicted, want kept", id)
		}
	}
}

func TestEvict_PreservesWatermark(t *testing.T) {
	s := NewStore([]string{testKey}, 0)
	s.Record(testKey, "a", 900, 1000)

	s.Evict(1_000_000, 10, 0)

	if got := s.Watermark(testKey); got != 900 {
		t.Errorf("Watermark after evict = %d, want 900", got)
	}
	if got := s.TrackedIDs(); got != 0 {
		t.Errorf("TrackedIDs after full evict = %d, want 0", got)
	}
}

func TestEvict_Idempotent(t *testing.T) {
	s := NewStore([]string{testKey}, 0)
	for i := 0; i < 10; i++ {
		s.Record(testKey, fmt.Sprintf("tx-%d-0", i), int64(i), int64(1000+i))
	}

	s.Evict(1050, 100, 4)
	first := s.TrackedIDs()
	s.Evict(1050, 100, 4)
	second := s.TrackedIDs()

	if first != 4 || second != 4 {
		t.Errorf("TrackedIDs after evictions = %d, %d, want 4, 4", first, second)
	}
}

func TestEvict_EmptyFilterNoop(t *testing.T) {
	s := NewStore([]string{testKey, "event_type=Mint"}, 0)
	s.Evict(1000, 100, 10) // must not panic or create entries
	if got := s.TrackedIDs(); got != 0 {
		t.Errorf("TrackedIDs = %d, want 0", got)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore([]string{testKey}, 0)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("tx-%d-%d", g, i)
				if s.IsNew(testKey, id, int64(i+1)) {
					s.Record(testKey, id, int64(i+1), int64(i))
				}
				if i%10 == 0 {
					s.Evict(int64(i), 50, 200)
				}
			}
		}(g)
	}
	wg.Wait()

	s.Evict(1000, 10_000, 200)
	if got := s.TrackedIDs(); got > 200 {
		t.Errorf("TrackedIDs = %d, want <= 200", got)
	}
}
