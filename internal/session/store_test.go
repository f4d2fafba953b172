package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cartoway/router-demo/internal/routing"
	"github.com/cartoway/router-demo/internal/service"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStore_CreateGetDelete(t *testing.T) {
	s := NewStore(&fakeCalc{}, time.Minute, nil)
	sess := s.Create(ms("car"))
	if sess.ID == "" {
		t.Fatal("session id is empty")
	}

	got, err := s.Get(sess.ID)
	if err != nil || got != sess {
		t.Fatalf("Get = %v, %v", got, err)
	}

	if err := s.Delete(sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestStore_SweepExpiresIdleSessions(t *testing.T) {
	c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(&fakeCalc{}, 10*time.Minute, nil, WithClock(c.Now))

	old := s.Create(nil)
	c.Advance(8 * time.Minute)
	fresh := s.Create(nil)
	c.Advance(5 * time.Minute)

	if n := s.Sweep(); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if _, err := s.Get(old.ID); !errors.Is(err, ErrNotFound) {
		t.Error("old session should be expired")
	}
	if _, err := s.Get(fresh.ID); err != nil {
		t.Errorf("fresh session: %v", err)
	}
}

func TestStore_GetRefreshesTTL(t *testing.T) {
	c := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(&fakeCalc{}, 10*time.Minute, nil, WithClock(c.Now))

	sess := s.Create(nil)
	c.Advance(9 * time.Minute)
	if _, err := s.Get(sess.ID); err != nil {
		t.Fatal(err)
	}
	c.Advance(9 * time.Minute)
	if n := s.Sweep(); n != 0 {
		t.Errorf("swept %d, want 0", n)
	}
}

func TestStore_ZeroTTLNeverExpires(t *testing.T) {
	s := NewStore(&fakeCalc{}, 0, nil)
	s.Create(nil)
	if n := s.Sweep(); n != 0 || s.Len() != 1 {
		t.Errorf("swept %d, len %d", n, s.Len())
	}
}

func TestStore_ScheduleSweep(t *testing.T) {
	s := NewStore(&fakeCalc{}, time.Minute, nil)
	c := cron.New()
	if _, err := s.ScheduleSweep(c, "@every 1m"); err != nil {
		t.Fatalf("ScheduleSweep: %v", err)
	}
	if _, err := s.ScheduleSweep(c, "bogus"); err == nil {
		t.Error("expected error for invalid spec")
	}
}

func TestSession_DoRecordsTrace(t *testing.T) {
	s := NewStore(tracingCalc{}, time.Minute, nil, WithTraceCapacity(5))
	sess := s.Create(ms("car"))

	snap := sess.Do(context.Background(), func(r *Reconciler) *Batch {
		return r.SetPoints(pA, pB)
	})
	if len(snap.Routes) != 0 {
		t.Errorf("routes = %d, want 0 from the tracing stub", len(snap.Routes))
	}
	if sess.Trace().Len() != 1 {
		t.Errorf("trace entries = %d, want 1", sess.Trace().Len())
	}

	// No batch, no trace.
	sess.Do(context.Background(), func(r *Reconciler) *Batch {
		r.ToggleVisibility("car")
		return nil
	})
	if sess.Trace().Len() != 1 {
		t.Errorf("trace entries = %d, want 1", sess.Trace().Len())
	}
}

// tracingCalc reports one entry to the context trace hook per call.
type tracingCalc struct{}

func (tracingCalc) Calculate(ctx context.Context, _, _ routing.GeoPoint, modes []routing.TransportMode) (*service.Calculation, error) {
	if fn, ok := routing.TraceFromContext(ctx); ok {
		fn(routing.TraceEntry{ID: "t1", Mode: modes[0], Status: routing.TraceSuccess})
	}
	return nil, nil
}
