package storage

import "testing"

func TestDefaultSchedule(t *testing.T) {
	entries := defaultSchedule()
	if len(entries) != 7 {
		t.Fatalf("got %d entries, want 7", len(entries))
	}
	for _, e := range entries {
		working := e.Weekday >= 1 && e.Weekday <= 5
		if e.IsActive != working {
			t.Fatalf("weekday %d active = %v, want %v", e.Weekday, e.IsActive, working)
		}
		if working && (e.StartMinute != 480 || e.EndMinute != 1080) {
			t.Fatalf("weekday %d window = %d-%d, want 480-1080", e.Weekday, e.StartMinute, e.EndMinute)
		}
	}
}

func TestLowStock(t *testing.T) {
	cases := []struct {
		quantity, min int
		want          bool
	}{
		{10, 5, false},
		{5, 5, true},
		{0, 0, true},
		{1, 0, false},
	}
	for _, c := range cases {
		item := InventoryItem{Quantity: c.quantity, MinLevel: c.min}
		if item.LowStock() != c.want {
			t.Fatalf("LowStock(q=%d, min=%d) = %v, want %v", c.quantity, c.min, item.LowStock(), c.want)
		}
	}
}
