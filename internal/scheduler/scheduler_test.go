package scheduler

import "testing"

func TestNewInvalidTimezone(t *testing.T) {
	if _, err := New("Mars/Olympus_Mons"); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestNewEmptyTimezoneUsesLocal(t *testing.T) {
	s, err := New("")
	if err != nil {
		t.Fatalf("empty timezone should fall back to local: %v", err)
	}
	defer s.Stop()
}

func TestAddJobValidExpression(t *testing.T) {
	s, err := New("Asia/Tokyo")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Stop()

	if err := s.AddJob("0 * * * *", func() {}); err != nil {
		t.Errorf("expected no error adding job, got %v", err)
	}
}

func TestAddJobInvalidExpression(t *testing.T) {
	s, err := New("Asia/Tokyo")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Stop()

	for _, expr := range []string{"not-cron", "0 * * *", "0 0 * * * *"} {
		if err := s.AddJob(expr, func() {}); err == nil {
			t.Errorf("expression %q should be rejected", expr)
		}
	}
}
