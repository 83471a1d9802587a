package snapshot

import "testing"

func TestIsDiffable(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StateSaved, true},
		{StateRead, true},
		{StateReading, false},
		{StateImporting, false},
		{StateDeleting, false},
		{StateError, false},
		{State(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := IsDiffable(Snapshot{ID: "s", State: tt.state}); got != tt.want {
				t.Fatalf("IsDiffable(%q) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestLabel_TrimsSuffix(t *testing.T) {
	s := Snapshot{ID: "boot" + FileSuffix}
	if got := s.Label(); got != "boot" {
		t.Fatalf("Label = %q, want %q", got, "boot")
	}
	s = Snapshot{Path: "/tmp/x"}
	if got := s.Label(); got != "/tmp/x" {
		t.Fatalf("Label = %q, want %q", got, "/tmp/x")
	}
}
