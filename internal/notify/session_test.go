package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/erazemk/zastavljalnica/internal/alerts"
)

func TestSessionMarkRead(t *testing.T) {
	s := NewSession(alerts.Viewer{StaffID: 1})
	if s.IsRead("overdue_1") {
		t.Error("new session has read alerts")
	}
	s.MarkRead("overdue_1")
	s.MarkRead("overdue_1")
	if !s.IsRead("overdue_1") || s.IsRead("overdue_2") {
		t.Error("unexpected read state")
	}
}

func TestSessionConcurrentUse(t *testing.T) {
	s := NewSession(alerts.Viewer{StaffID: 1})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.MarkRead("x")
			s.IsRead("x")
		}()
	}
	wg.Wait()
	if !s.IsRead("x") {
		t.Error("expected x to be read")
	}
}

func TestSessionsRegistry(t *testing.T) {
	r := NewSessions()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	v := alerts.Viewer{StaffID: 1, Role: "staff", BranchID: 1}

	a := r.Get("jti-a", v, now.Add(time.Hour), now)
	a.MarkRead("overdue_1")

	if again := r.Get("jti-a", v, now.Add(time.Hour), now); !again.IsRead("overdue_1") {
		t.Error("expected the same session for the same token")
	}
	if other := r.Get("jti-b", v, now.Add(time.Hour), now); other.IsRead("overdue_1") {
		t.Error("sessions must not share read state")
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", r.Len())
	}

	r.Get("jti-c", v, now.Add(3*time.Hour), now.Add(2*time.Hour))
	if r.Len() != 1 {
		t.Errorf("expected expired sessions to be dropped, got %d", r.Len())
	}
}

func TestSessionsDelete(t *testing.T) {
	r := NewSessions()
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	s := r.Get("jti-1", alerts.Viewer{StaffID: 1}, now.Add(time.Hour), now)
	s.MarkRead("overdue_1")

	r.Delete("jti-1")
	r.Delete("missing")
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
	if again := r.Get("jti-1", alerts.Viewer{StaffID: 1}, now.Add(time.Hour), now); again.IsRead("overdue_1") {
		t.Error("deleted session state survived")
	}
}
