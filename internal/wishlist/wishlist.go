// Package wishlist keeps the user's saved product colors. Guests keep a list
// in local storage; logged-in users work against a mirror of the server list.
// After login the guest list is replayed to the server.
package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/atinyakov/packcart/internal/models"
	"github.com/atinyakov/packcart/internal/notify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StorageKey is the local storage key holding the guest wishlist.
const StorageKey = "guestWishlist"

// mergeConcurrency bounds the number of parallel replay requests.
const mergeConcurrency = 4

// Remote is the server-side wishlist.
type Remote interface {
	List(ctx context.Context) ([]models.WishlistEntry, error)
	Add(ctx context.Context, productID, color string) error
	Remove(ctx context.Context, productID, color string) error
}

// Storage is the local key-value persistence.
type Storage interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Remove(key string) error
}

// Session reports whether a user is logged in.
type Session interface {
	Authenticated() bool
}

// Manager selects the guest or remote list depending on the session.
type Manager struct {
	remote   Remote
	storage  Storage
	session  Session
	notifier notify.Notifier
	log      *zap.Logger

	mu     sync.Mutex
	guest  []models.WishlistEntry
	mirror []models.WishlistEntry
}

// NewManager creates a manager with empty lists. Call Restore to load the
// guest list.
func NewManager(remote Remote, storage Storage, session Session, notifier notify.Notifier, log *zap.Logger) *Manager {
	if notifier == nil {
		notifier = notify.Discard
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{remote: remote, storage: storage, session: session, notifier: notifier, log: log}
}

// Restore loads the guest list from storage. Corrupt data yields an empty list.
func (m *Manager) Restore() {
	raw, ok := m.storage.Get(StorageKey)
	if !ok {
		return
	}
	var entries []models.WishlistEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		m.log.Warn("guest wishlist is corrupt, starting empty", zap.Error(err))
		entries = nil
	}

	m.mu.Lock()
	m.guest = m.guest[:0]
	for _, e := range entries {
		if e.ProductID != "" && !contains(m.guest, e.ProductID, e.Color) {
			m.guest = append(m.guest, e)
		}
	}
	m.mu.Unlock()
}

func (m *Manager) authenticated() bool {
	return m.session != nil && m.session.Authenticated()
}

// Add saves an entry. Guests store it locally; logged-in users store it on
// the server and the mirror is reloaded.
func (m *Manager) Add(ctx context.Context, productID, color string) error {
	if !m.authenticated() {
		m.mu.Lock()
		if !contains(m.guest, productID, color) {
			m.guest = append(m.guest, models.WishlistEntry{ProductID: productID, Color: color})
		}
		m.persistLocked()
		m.mu.Unlock()
		m.notifier.Notify(notify.Success, "Added to wishlist ❤️ (saved locally)")
		return nil
	}

	if err := m.remote.Add(ctx, productID, color); err != nil {
		m.notifier.Notify(notify.Error, message(err, "Failed to add to wishlist"))
		return err
	}
	return m.Refresh(ctx)
}

// Remove deletes an entry from the active list.
func (m *Manager) Remove(ctx context.Context, productID, color string) error {
	if !m.authenticated() {
		m.mu.Lock()
		m.guest = without(m.guest, productID, color)
		m.persistLocked()
		m.mu.Unlock()
		m.notifier.Notify(notify.Success, "Removed from wishlist")
		return nil
	}

	if err := m.remote.Remove(ctx, productID, color); err != nil {
		m.notifier.Notify(notify.Error, message(err, "Failed to remove from wishlist"))
		return err
	}
	return m.Refresh(ctx)
}

// Contains reports whether the active list holds the entry.
func (m *Manager) Contains(productID, color string) bool {
	auth := m.authenticated()
	m.mu.Lock()
	defer m.mu.Unlock()
	if auth {
		return contains(m.mirror, productID, color)
	}
	return contains(m.guest, productID, color)
}

// Entries returns a copy of the active list.
func (m *Manager) Entries() []models.WishlistEntry {
	auth := m.authenticated()
	m.mu.Lock()
	defer m.mu.Unlock()
	if auth {
		return append([]models.WishlistEntry(nil), m.mirror...)
	}
	return append([]models.WishlistEntry(nil), m.guest...)
}

// Guest returns a copy of the guest list regardless of the session.
func (m *Manager) Guest() []models.WishlistEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.WishlistEntry(nil), m.guest...)
}

// Refresh reloads the mirror from the server. Without a session, or when the
// fetch fails, the mirror is emptied.
func (m *Manager) Refresh(ctx context.Context) error {
	if !m.authenticated() {
		m.ClearRemote()
		return nil
	}
	entries, err := m.remote.List(ctx)
	if err != nil {
		m.log.Warn("wishlist fetch failed", zap.Error(err))
		m.ClearRemote()
		return fmt.Errorf("refresh wishlist: %w", err)
	}

	mirror := make([]models.WishlistEntry, 0, len(entries))
	for _, e := range entries {
		if e.ProductID != "" {
			mirror = append(mirror, e)
		}
	}
	m.mu.Lock()
	m.mirror = mirror
	m.mu.Unlock()
	return nil
}

// MergeGuest replays every guest entry to the server. Only when all of them
// succeed is the guest list cleared. The mirror is reloaded afterwards.
func (m *Manager) MergeGuest(ctx context.Context) error {
	if !m.authenticated() {
		return nil
	}
	guest := m.Guest()
	if len(guest) == 0 {
		return m.Refresh(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mergeConcurrency)
	for _, e := range guest {
		g.Go(func() error {
			return m.remote.Add(gctx, e.ProductID, e.Color)
		})
	}
	if err := g.Wait(); err != nil {
		m.log.Warn("wishlist merge failed, keeping guest wishlist", zap.Error(err))
		return fmt.Errorf("merge wishlist: %w", err)
	}

	m.mu.Lock()
	m.guest = nil
	m.mu.Unlock()
	if err := m.storage.Remove(StorageKey); err != nil {
		m.log.Warn("failed to clear guest wishlist", zap.Error(err))
	}
	m.log.Info("guest wishlist merged", zap.Int("entries", len(guest)))
	return m.Refresh(ctx)
}

// ClearRemote empties the mirror. The guest list is untouched.
func (m *Manager) ClearRemote() {
	m.mu.Lock()
	m.mirror = nil
	m.mu.Unlock()
}

func (m *Manager) persistLocked() {
	data, err := json.Marshal(m.guest)
	if err == nil {
		err = m.storage.Set(StorageKey, data)
	}
	if err != nil {
		m.log.Warn("failed to persist guest wishlist", zap.Error(err))
	}
}

func contains(list []models.WishlistEntry, productID, color string) bool {
	for _, e := range list {
		if e.ProductID == productID && e.Color == color {
			return true
		}
	}
	return false
}

func without(list []models.WishlistEntry, productID, color string) []models.WishlistEntry {
	out := list[:0]
	for _, e := range list {
		if e.ProductID == productID && e.Color == color {
			continue
		}
		out = append(out, e)
	}
	return out
}

// message prefers a server-provided message over fallback.
func message(err error, fallback string) string {
	var msg interface{ UserMessage() string }
	if errors.As(err, &msg) && msg.UserMessage() != "" {
		return msg.UserMessage()
	}
	return fallback
}
