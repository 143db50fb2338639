package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/samirrijal/walkies/internal/adapters/memory"
	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/core/ports"
	"github.com/samirrijal/walkies/internal/core/usecases"
)

var bilbao = domain.WalkLocation{Lat: 43.2630, Lng: -2.9350}

// north returns a point the given number of meters due north of l.
func north(l domain.WalkLocation, meters float64) domain.WalkLocation {
	return domain.WalkLocation{Lat: l.Lat + meters/111195.0, Lng: l.Lng}
}

func newLifecycle() (*usecases.WalkLifecycleService, *memory.SessionStore, *memory.Feed) {
	store := memory.NewSessionStore()
	feed := memory.NewFeed()
	return usecases.NewWalkLifecycleService(store, feed, 100), store, feed
}

func TestCreateSession_EmptyPets(t *testing.T) {
	svc, _, _ := newLifecycle()
	_, err := svc.CreateSession(context.Background(), "owner-1", nil, "30", bilbao)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateSession_InvalidLocation(t *testing.T) {
	svc, _, _ := newLifecycle()
	_, err := svc.CreateSession(context.Background(), "owner-1", []string{"pet1"}, "30", domain.WalkLocation{Lat: 120})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateSession_Pending(t *testing.T) {
	svc, _, _ := newLifecycle()
	ctx := context.Background()

	id, err := svc.CreateSession(ctx, "owner-1", []string{"pet1"}, "thirty", bilbao)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := svc.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != domain.StatusPending {
		t.Errorf("expected PENDING, got %s", s.Status)
	}
	if s.Duration != "thirty" {
		t.Errorf("duration should be stored verbatim, got %q", s.Duration)
	}
}

func TestCreateSession_OneActivePerOwner(t *testing.T) {
	svc, _, _ := newLifecycle()
	ctx := context.Background()

	first, err := svc.CreateSession(ctx, "owner-1", []string{"pet1"}, "30", bilbao)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = svc.CreateSession(ctx, "owner-1", []string{"pet2"}, "30", bilbao)
	var ite *domain.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if ite.SessionID != first || ite.Op != "create" {
		t.Errorf("unexpected error detail: %+v", ite)
	}

	if _, err := svc.CancelSession(ctx, first); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.CreateSession(ctx, "owner-1", []string{"pet2"}, "30", bilbao); err != nil {
		t.Errorf("expected create after cancel to succeed, got %v", err)
	}
}

func TestCancelSession(t *testing.T) {
	svc, store, _ := newLifecycle()
	ctx := context.Background()
	store.Put(domain.WalkSession{ID: "done", OwnerID: "owner-2", Status: domain.StatusCompleted})

	if _, err := svc.CancelSession(ctx, "done"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("cancel COMPLETED: expected InvalidTransitionError, got %v", err)
	}
	if _, err := svc.CancelSession(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("cancel unknown: expected NotFoundError, got %v", err)
	}

	id, _ := svc.CreateSession(ctx, "owner-1", []string{"pet1"}, "30", bilbao)
	s, err := svc.CancelSession(ctx, id)
	if err != nil {
		t.Fatalf("cancel PENDING: %v", err)
	}
	if s.Status != domain.StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", s.Status)
	}

	obsCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	views, err := svc.ObserveActiveSession(obsCtx, "owner-1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if v := <-views; v.Session != nil {
		t.Errorf("expected no active session, got %+v", v.Session)
	}
}

func TestCancelSession_FromEveryActiveState(t *testing.T) {
	svc, store, _ := newLifecycle()
	for _, st := range domain.ActiveStatuses {
		store.Put(domain.WalkSession{ID: string(st), OwnerID: "o-" + string(st), Status: st})
		if _, err := svc.CancelSession(context.Background(), string(st)); err != nil {
			t.Errorf("cancel from %s: %v", st, err)
		}
	}
	for _, st := range []domain.WalkStatus{domain.StatusCancelled, domain.StatusFailed, domain.StatusDismissed} {
		store.Put(domain.WalkSession{ID: "t-" + string(st), OwnerID: "o", Status: st})
		if _, err := svc.CancelSession(context.Background(), "t-"+string(st)); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("cancel from %s: expected InvalidTransitionError, got %v", st, err)
		}
	}
}

func TestDismissSession(t *testing.T) {
	svc, store, _ := newLifecycle()
	ctx := context.Background()
	store.Put(domain.WalkSession{ID: "failed", OwnerID: "o", Status: domain.StatusFailed})
	store.Put(domain.WalkSession{ID: "pending", OwnerID: "o", Status: domain.StatusPending})

	s, err := svc.DismissSession(ctx, "failed")
	if err != nil {
		t.Fatalf("dismiss FAILED: %v", err)
	}
	if s.Status != domain.StatusDismissed {
		t.Errorf("expected DISMISSED, got %s", s.Status)
	}

	_, err = svc.DismissSession(ctx, "pending")
	var ite *domain.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("dismiss PENDING: expected InvalidTransitionError, got %v", err)
	}
	if ite.From != domain.StatusPending || ite.Op != "dismiss" {
		t.Errorf("unexpected error detail: %+v", ite)
	}
}

func TestMatchAcceptFlow(t *testing.T) {
	svc, _, _ := newLifecycle()
	ctx := context.Background()
	id, _ := svc.CreateSession(ctx, "owner-1", []string{"pet1"}, "45", bilbao)

	if _, err := svc.AcceptSession(ctx, id, "sitter-1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("accept PENDING: expected InvalidTransitionError, got %v", err)
	}
	if _, err := svc.MatchSession(ctx, id); err != nil {
		t.Fatalf("match: %v", err)
	}
	s, err := svc.AcceptSession(ctx, id, "sitter-1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if s.Status != domain.StatusInProgress || s.SitterID != "sitter-1" {
		t.Errorf("unexpected session after accept: %+v", s)
	}
}

func TestAcceptSession_OwnerCannotWalkOwnRequest(t *testing.T) {
	svc, _, _ := newLifecycle()
	ctx := context.Background()
	id, _ := svc.CreateSession(ctx, "user-1", []string{"pet1"}, "30", bilbao)
	if _, err := svc.MatchSession(ctx, id); err != nil {
		t.Fatalf("match: %v", err)
	}

	if _, err := svc.AcceptSession(ctx, id, "user-1"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	s, _ := svc.GetSession(ctx, id)
	if s.Status != domain.StatusMatching || s.SitterID != "" {
		t.Errorf("session should still be waiting for a sitter: %+v", s)
	}

	out, err := svc.ReportLocation(ctx, id, bilbao)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if out.Completed {
		t.Error("a walk nobody accepted must not complete")
	}
}

func TestCreateSession_PetIDs(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []string
		wantErr bool
	}{
		{"duplicates dropped in order", []string{"rex", "luna", "rex"}, []string{"rex", "luna"}, false},
		{"blank id", []string{"rex", ""}, nil, true},
		{"whitespace id", []string{"  "}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newLifecycle()
			ctx := context.Background()
			id, err := svc.CreateSession(ctx, "owner-1", tt.in, "30", bilbao)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			s, _ := svc.GetSession(ctx, id)
			if len(s.PetIDs) != len(tt.want) {
				t.Fatalf("pet ids = %v, want %v", s.PetIDs, tt.want)
			}
			for i := range tt.want {
				if s.PetIDs[i] != tt.want[i] {
					t.Errorf("pet ids = %v, want %v", s.PetIDs, tt.want)
				}
			}
		})
	}
}

func TestListOpenNearby_Limit(t *testing.T) {
	svc, store, _ := newLifecycle()
	for i := 0; i < 120; i++ {
		store.Put(domain.WalkSession{
			ID:       fmt.Sprintf("w%03d", i),
			OwnerID:  fmt.Sprintf("o%d", i),
			PetIDs:   []string{"p"},
			Location: north(bilbao, float64(i)),
			Status:   domain.StatusMatching,
		})
	}
	ctx := context.Background()

	tests := []struct {
		limit, want int
	}{
		{0, 20},
		{-3, 20},
		{50, 50},
		{500, 100},
	}
	for _, tt := range tests {
		got, err := svc.ListOpenNearby(ctx, bilbao, 2000, tt.limit)
		if err != nil {
			t.Fatalf("limit %d: %v", tt.limit, err)
		}
		if len(got) != tt.want {
			t.Errorf("limit %d: got %d sessions, want %d", tt.limit, len(got), tt.want)
		}
	}
}

func TestReportLocation(t *testing.T) {
	svc, store, _ := newLifecycle()
	ctx := context.Background()
	store.Put(domain.WalkSession{ID: "walk", OwnerID: "o", Location: bilbao, Status: domain.StatusInProgress})

	out, err := svc.ReportLocation(ctx, "walk", north(bilbao, 200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Completed || out.WithinRange {
		t.Errorf("200 m away should not complete: %+v", out)
	}

	out, err = svc.ReportLocation(ctx, "walk", north(bilbao, 50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Completed || out.Status != domain.StatusCompleted {
		t.Errorf("50 m away should complete: %+v", out)
	}

	// duplicate report after completion is a no-op
	out, err = svc.ReportLocation(ctx, "walk", north(bilbao, 50))
	if err != nil {
		t.Fatalf("duplicate report: %v", err)
	}
	if out.Completed || out.Status != domain.StatusCompleted {
		t.Errorf("duplicate report should not complete again: %+v", out)
	}
}

func TestReportLocation_NotInProgress(t *testing.T) {
	svc, store, _ := newLifecycle()
	store.Put(domain.WalkSession{ID: "walk", OwnerID: "o", Location: bilbao, Status: domain.StatusMatching})

	out, err := svc.ReportLocation(context.Background(), "walk", bilbao)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Completed || out.Status != domain.StatusMatching {
		t.Errorf("MATCHING session must not complete: %+v", out)
	}
}

func TestReportLocation_ConfiguredRadius(t *testing.T) {
	store := memory.NewSessionStore()
	svc := usecases.NewWalkLifecycleService(store, memory.NewFeed(), 250)
	store.Put(domain.WalkSession{ID: "walk", OwnerID: "o", Location: bilbao, Status: domain.StatusInProgress})

	out, err := svc.ReportLocation(context.Background(), "walk", north(bilbao, 200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Completed {
		t.Errorf("200 m should complete with a 250 m radius: %+v", out)
	}
}

// racingRepo reports IN_PROGRESS on read but loses the conditional write.
type racingRepo struct {
	ports.WalkSessionRepository
}

func (r *racingRepo) GetByID(ctx context.Context, id string) (*domain.WalkSession, error) {
	return &domain.WalkSession{ID: id, OwnerID: "o", Location: bilbao, Status: domain.StatusInProgress}, nil
}

func (r *racingRepo) Transition(ctx context.Context, id string, t ports.StatusTransition) (*domain.WalkSession, error) {
	return nil, &domain.InvalidTransitionError{SessionID: id, From: domain.StatusCancelled}
}

func TestReportLocation_LostRaceIsNoop(t *testing.T) {
	svc := usecases.NewWalkLifecycleService(&racingRepo{}, memory.NewFeed(), 100)
	out, err := svc.ReportLocation(context.Background(), "walk", bilbao)
	if err != nil {
		t.Fatalf("lost race should not error: %v", err)
	}
	if out.Completed || out.Status != domain.StatusCancelled {
		t.Errorf("unexpected outcome: %+v", out)
	}
}

func TestExpireUnmatched(t *testing.T) {
	svc, store, _ := newLifecycle()
	ctx := context.Background()
	store.Put(domain.WalkSession{ID: "m", OwnerID: "o1", Status: domain.StatusMatching})
	store.Put(domain.WalkSession{ID: "w", OwnerID: "o2", Status: domain.StatusInProgress})

	expired, err := svc.ExpireUnmatched(ctx, "m")
	if err != nil || !expired {
		t.Errorf("MATCHING should expire: expired=%v err=%v", expired, err)
	}
	expired, err = svc.ExpireUnmatched(ctx, "w")
	if err != nil || expired {
		t.Errorf("IN_PROGRESS should not expire: expired=%v err=%v", expired, err)
	}
}

type recordingScheduler struct{ ids []string }

func (r *recordingScheduler) ScheduleMatchTimeout(ctx context.Context, id string) error {
	r.ids = append(r.ids, id)
	return nil
}

func TestCreateSession_SchedulesMatchTimeout(t *testing.T) {
	sched := &recordingScheduler{}
	svc := usecases.NewWalkLifecycleService(memory.NewSessionStore(), memory.NewFeed(), 0).WithMatchScheduler(sched)
	id, err := svc.CreateSession(context.Background(), "o", []string{"p"}, "", bilbao)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sched.ids) != 1 || sched.ids[0] != id {
		t.Errorf("expected timeout scheduled for %s, got %v", id, sched.ids)
	}
	if svc.CompletionRadius() != 100 {
		t.Errorf("expected default radius 100, got %v", svc.CompletionRadius())
	}
}

func recvActive(t *testing.T, ch <-chan usecases.ActiveSessionView) usecases.ActiveSessionView {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for view")
	}
	return usecases.ActiveSessionView{}
}

func TestObserveActiveSession_Live(t *testing.T) {
	svc, _, feed := newLifecycle()
	ctx, cancel := context.WithCancel(context.Background())

	views, err := svc.ObserveActiveSession(ctx, "owner-1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if v := recvActive(t, views); v.Session != nil {
		t.Fatalf("expected none, got %+v", v.Session)
	}

	id, err := svc.CreateSession(context.Background(), "owner-1", []string{"pet1"}, "30", bilbao)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	v := recvActive(t, views)
	if v.Session == nil || v.Session.ID != id {
		t.Fatalf("expected active session %s, got %+v", id, v.Session)
	}

	if _, err := svc.CancelSession(context.Background(), id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if v := recvActive(t, views); v.Session != nil {
		t.Fatalf("expected none after cancel, got %+v", v.Session)
	}

	cancel()
	select {
	case _, ok := <-views:
		if ok {
			t.Fatal("received a view after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancellation")
	}
	if n := feed.Subscribers("owner-1"); n != 0 {
		t.Errorf("expected subscription released, %d left", n)
	}
}

func TestObserveHistory_OldestFirst(t *testing.T) {
	svc, _, _ := newLifecycle()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	history, err := svc.ObserveHistory(ctx, "owner-1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if got := <-history; len(got) != 0 {
		t.Fatalf("expected empty history, got %d", len(got))
	}

	var ids []string
	for i := 0; i < 2; i++ {
		id, err := svc.CreateSession(context.Background(), "owner-1", []string{"pet1"}, "30", bilbao)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := svc.CancelSession(context.Background(), id); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		ids = append(ids, id)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-history:
			if len(got) < 2 {
				continue
			}
			if got[0].ID != ids[0] || got[1].ID != ids[1] {
				t.Fatalf("history out of order: %s, %s", got[0].ID, got[1].ID)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for history")
		}
	}
}
