package game

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	snaps   map[int64]Snapshot
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{snaps: make(map[int64]Snapshot)}
}

func (f *fakeStore) Save(_ context.Context, snap Snapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.snaps[snap.ChatID] = snap
	return nil
}

func (f *fakeStore) Load(_ context.Context, chatID int64) (Snapshot, error) {
	snap, ok := f.snaps[chatID]
	if !ok {
		return Snapshot{}, ErrSnapshotNotFound
	}
	return snap, nil
}

func (f *fakeStore) Delete(_ context.Context, chatID int64) error {
	delete(f.snaps, chatID)
	return nil
}

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	m := NewManager(Config{}, nil)
	ctx := context.Background()
	alice := Player{ID: 1, Name: "Alice"}

	first, created := m.GetOrCreate(ctx, 42, alice)
	if !created {
		t.Fatal("first GetOrCreate must create")
	}
	second, created := m.GetOrCreate(ctx, 42, Player{ID: 2, Name: "Bob"})
	if created {
		t.Fatal("second GetOrCreate must not create a new game")
	}
	if first != second {
		t.Fatal("expected the same session instance for one chat")
	}
	if second.Snapshot().Players[0].Name != "Alice" {
		t.Fatal("second caller must not become the creator")
	}
}

func TestSessionsAreIsolatedPerChat(t *testing.T) {
	m := NewManager(Config{}, nil)
	ctx := context.Background()
	a, _ := m.GetOrCreate(ctx, 1, Player{ID: 1, Name: "Alice"})
	b, _ := m.GetOrCreate(ctx, 2, Player{ID: 1, Name: "Alice"})
	if a == b {
		t.Fatal("chats must get independent sessions")
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 live sessions, got %d", m.Len())
	}
}

func TestEndRemovesSession(t *testing.T) {
	m := NewManager(Config{}, nil)
	ctx := context.Background()
	s, _ := m.GetOrCreate(ctx, 42, Player{ID: 1, Name: "Alice"})

	if err := m.End(ctx, 42); err != nil {
		t.Fatalf("end: %v", err)
	}
	if got := s.Snapshot().Phase; got != PhaseEnded {
		t.Fatalf("phase = %s after end, expected ended", got)
	}
	if _, err := m.Get(ctx, 42); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := m.End(ctx, 42); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on repeated end, got %v", err)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	m := NewManager(Config{}, store)
	s, _ := m.GetOrCreate(ctx, 42, Player{ID: 1, Name: "Alice"})
	if err := s.Join(2, "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.Join(3, "Carol"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.StartGame(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Persist(ctx, s)

	// A fresh manager (process restart) resumes the stored game.
	m2 := NewManager(Config{}, store)
	resumed, created := m2.GetOrCreate(ctx, 42, Player{ID: 9, Name: "Mallory"})
	if created {
		t.Fatal("expected resume, not a fresh session")
	}
	snap := resumed.Snapshot()
	if snap.Phase != PhaseStrategy || len(snap.Players) != 3 {
		t.Fatalf("resumed snapshot mismatch: %+v", snap)
	}
}

func TestEndedSnapshotIsNotResumed(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	store.snaps[42] = Snapshot{ChatID: 42, Phase: PhaseEnded}

	m := NewManager(Config{}, store)
	_, created := m.GetOrCreate(ctx, 42, Player{ID: 1, Name: "Alice"})
	if !created {
		t.Fatal("an ended snapshot must not be resumed")
	}
}

func TestEvictIdle(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	m := NewManager(Config{}, store)

	stale, _ := m.GetOrCreate(ctx, 1, Player{ID: 1, Name: "Alice"})
	stale.mu.Lock()
	stale.updatedAt = time.Now().Add(-2 * time.Hour)
	stale.mu.Unlock()
	m.GetOrCreate(ctx, 2, Player{ID: 2, Name: "Bob"})

	if n := m.EvictIdle(ctx, time.Hour); n != 1 {
		t.Fatalf("evicted %d sessions, expected 1", n)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 live session after eviction, got %d", m.Len())
	}
	if _, ok := store.snaps[1]; !ok {
		t.Fatal("evicted session must keep its stored snapshot")
	}
	if _, err := m.Get(ctx, 2); err != nil {
		t.Fatalf("fresh session should survive, got %v", err)
	}
	// The evicted chat is not lost: the next lookup resumes it.
	resumed, err := m.Get(ctx, 1)
	if err != nil {
		t.Fatalf("evicted session should resume from the store, got %v", err)
	}
	if resumed.Snapshot().Players[0].Name != "Alice" {
		t.Fatal("resumed session must carry the stored roster")
	}
}

func TestGetResumesFromStore(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	m := NewManager(Config{}, store)
	s, _ := m.GetOrCreate(ctx, 42, Player{ID: 1, Name: "Alice"})
	if err := s.Join(2, "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.Join(3, "Carol"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.StartGame(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Persist(ctx, s)

	// A fresh manager (process restart) serves read-only lookups such as
	// /status without anyone joining first.
	m2 := NewManager(Config{}, store)
	resumed, err := m2.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get after restart: %v", err)
	}
	snap := resumed.Snapshot()
	if snap.Phase != PhaseStrategy || len(snap.Players) != 3 {
		t.Fatalf("resumed snapshot mismatch: %+v", snap)
	}
	if _, err := m2.Get(ctx, 7); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown chat must stay not found, got %v", err)
	}
}

func TestEndDeletesStoredSnapshot(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	store.snaps[42] = Snapshot{ChatID: 42, Phase: PhaseStrategy, Round: 1}

	m := NewManager(Config{}, store)
	if err := m.End(ctx, 42); err != nil {
		t.Fatalf("end of stored session: %v", err)
	}
	if _, ok := store.snaps[42]; ok {
		t.Fatal("ending a stored session must delete its snapshot")
	}
	if err := m.End(ctx, 42); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
