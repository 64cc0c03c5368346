package game

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Store persists session snapshots. Implementations are called at command
// boundaries only, never while a transition is being applied.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, chatID int64) (Snapshot, error)
	Delete(ctx context.Context, chatID int64) error
}

// ErrSnapshotNotFound is returned by stores when no snapshot exists for a
// chat. Distinct from ErrSessionNotFound, which is user facing.
var ErrSnapshotNotFound = errors.New("game: snapshot not found")

// Manager owns the chat-to-session mapping: exactly one live session per
// chat, created on demand and optionally resumed from the store.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	sessions map[int64]*Session
	store    Store
}

// NewManager creates a Manager. The store may be nil for memory-only
// operation.
func NewManager(cfg Config, store Store) *Manager {
	return &Manager{
		cfg:      cfg.WithDefaults(),
		sessions: make(map[int64]*Session),
		store:    store,
	}
}

// GetOrCreate returns the session for a chat, resuming a stored snapshot if
// one exists, or creating a fresh setup-phase session with the creator
// seated. The second return reports whether a new session was created.
func (m *Manager) GetOrCreate(ctx context.Context, chatID int64, creator Player) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[chatID]; ok {
		return s, false
	}
	if s := m.resumeLocked(ctx, chatID); s != nil {
		return s, false
	}
	s := NewSession(chatID, m.cfg, creator)
	m.sessions[chatID] = s
	logEvent(ctx, slog.LevelInfo, "session.create",
		slog.Int64("chat_id", chatID),
		slog.Int64("creator", int64(creator.ID)),
	)
	return s, true
}

// Get returns the session for a chat, resuming a stored snapshot when the
// session is not in memory (after a restart or an idle eviction). Returns
// ErrSessionNotFound when neither exists.
func (m *Manager) Get(ctx context.Context, chatID int64) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[chatID]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[chatID]; ok {
		return s, nil
	}
	if s := m.resumeLocked(ctx, chatID); s != nil {
		return s, nil
	}
	return nil, ErrSessionNotFound
}

// resumeLocked rebuilds a session from a stored non-ended snapshot and
// installs it in the map. The caller holds the write lock.
func (m *Manager) resumeLocked(ctx context.Context, chatID int64) *Session {
	if m.store == nil {
		return nil
	}
	snap, err := m.store.Load(ctx, chatID)
	switch {
	case err == nil && snap.Phase != PhaseEnded:
		s := Restore(snap, m.cfg)
		m.sessions[chatID] = s
		logEvent(ctx, slog.LevelInfo, "session.resume",
			slog.Int64("chat_id", chatID),
			slog.String("phase", string(snap.Phase)),
			slog.Int("round", snap.Round),
		)
		return s
	case err != nil && !errors.Is(err, ErrSnapshotNotFound):
		logEvent(ctx, slog.LevelWarn, "session.resume.fail",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}
	return nil
}

// End terminates and removes the session for a chat, live or stored. Ending
// an absent session returns ErrSessionNotFound.
func (m *Manager) End(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	s, ok := m.sessions[chatID]
	delete(m.sessions, chatID)
	m.mu.Unlock()
	if !ok {
		if m.store == nil {
			return ErrSessionNotFound
		}
		if _, err := m.store.Load(ctx, chatID); err != nil {
			return ErrSessionNotFound
		}
	} else {
		s.EndGame()
	}
	if m.store != nil {
		if err := m.store.Delete(ctx, chatID); err != nil {
			logEvent(ctx, slog.LevelWarn, "session.delete.fail",
				slog.Int64("chat_id", chatID),
				slog.String("err", err.Error()),
			)
		}
	}
	logEvent(ctx, slog.LevelInfo, "session.end", slog.Int64("chat_id", chatID))
	return nil
}

// Persist writes the session snapshot to the store. Persistence failures are
// logged but never fail the already-applied command.
func (m *Manager) Persist(ctx context.Context, s *Session) {
	if m.store == nil || s == nil {
		return
	}
	snap := s.Snapshot()
	if err := m.store.Save(ctx, snap); err != nil {
		logEvent(ctx, slog.LevelError, "session.persist.fail",
			slog.Int64("chat_id", snap.ChatID),
			slog.String("err", err.Error()),
		)
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ChatIDs lists chats with live sessions, sorted for stable diagnostics.
func (m *Manager) ChatIDs() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EvictIdle removes sessions whose last transition is older than maxAge and
// reports how many were evicted. Evicted sessions keep their stored snapshot
// so they can be resumed later.
func (m *Manager) EvictIdle(ctx context.Context, maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.UpdatedAt().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range stale {
		m.Persist(ctx, s)
		logEvent(ctx, slog.LevelInfo, "session.evict",
			slog.Int64("chat_id", s.ChatID()),
		)
	}
	return len(stale)
}

// logEvent routes manager events through the process-wide structured logger
// under the game component.
func logEvent(ctx context.Context, level slog.Level, event string, attrs ...slog.Attr) {
	attrs = append([]slog.Attr{slog.String("component", "game")}, attrs...)
	slog.Default().LogAttrs(ctx, level, event, attrs...)
}
