// Package cart holds the canonical shopping cart state. Mutations apply to
// local state immediately and are then reconciled with the remote cart
// service; the server copy wins whenever a reconciliation succeeds.
package cart

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/atinyakov/packcart/internal/cartkey"
	"github.com/atinyakov/packcart/internal/models"
	"github.com/atinyakov/packcart/internal/notify"
	"github.com/atinyakov/packcart/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StorageKey is the local storage key holding the serialized cart.
const StorageKey = "cartItems"

// PendingKey holds guest lines that the server has not confirmed merging yet.
const PendingKey = "pendingGuestCart"

// Catalog resolves products for price lookups. It may still be loading, in
// which case lookups miss.
type Catalog interface {
	Product(id string) (models.Product, bool)
}

// RemoteCart is the server-side cart. Every method returns the server's full
// cart blob, which the store normalizes before trusting it.
type RemoteCart interface {
	Fetch(ctx context.Context) ([]byte, error)
	Add(ctx context.Context, key, color, fabric string) ([]byte, error)
	Update(ctx context.Context, key string, quantity int) ([]byte, error)
	Merge(ctx context.Context, local []byte) (models.MergeResult, error)
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

// Drawer is opened whenever a line is added.
type Drawer interface {
	Open()
}

// Deps are the collaborators of a Store. Remote, Storage and Session are
// required; the rest default to no-ops.
type Deps struct {
	Catalog  Catalog
	Remote   RemoteCart
	Storage  Storage
	Session  Session
	Drawer   Drawer
	Notifier notify.Notifier
	Log      *zap.Logger
}

// Line is a cart line together with its key.
type Line struct {
	Key string
	models.CartLine
}

// Store is the cart state engine. It is safe for concurrent use; the lock is
// never held across a network call.
type Store struct {
	catalog  Catalog
	remote   RemoteCart
	storage  Storage
	session  Session
	drawer   Drawer
	notifier notify.Notifier
	log      *zap.Logger

	mu    sync.Mutex
	state State
	// added records insertion order for "most recently added" listings.
	added   map[string]uint64
	nextOrd uint64
	// seq is bumped by every local mutation; a remote response may only
	// replace state if it answers the latest one.
	seq uint64
	// pending are guest lines still owed to the server after a failed or
	// declined merge. They are shown on top of every server copy.
	pending State
	// server is the last server copy, without pending lines.
	server State

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int
}

// NewStore builds an empty store. Call Restore to load the persisted cart.
func NewStore(d Deps) *Store {
	s := &Store{
		catalog:  d.Catalog,
		remote:   d.Remote,
		storage:  d.Storage,
		session:  d.Session,
		drawer:   d.Drawer,
		notifier: d.Notifier,
		log:      d.Log,
		state:    State{},
		added:    make(map[string]uint64),
		subs:     make(map[int]func(State)),
	}
	if s.notifier == nil {
		s.notifier = notify.Discard
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Restore loads the persisted cart and any pending guest lines, migrating
// older formats. Missing or corrupt data leaves the cart empty.
func (s *Store) Restore() {
	raw, _ := s.storage.Get(StorageKey)
	restored := Normalize(raw)

	s.mu.Lock()
	if rawPending, ok := s.storage.Get(PendingKey); ok {
		s.pending = Normalize(rawPending)
	}
	s.replaceLocked(restored)
	snap := s.state.Clone()
	s.mu.Unlock()

	s.log.Debug("cart restored", zap.Int("lines", len(restored)))
	s.emit(snap)
}

// AddLine adds one pack of the given variant. The local cart changes before
// the server is contacted; a sync failure keeps the local change and is
// returned to the caller.
func (s *Store) AddLine(ctx context.Context, productID, color, fabric, code string) error {
	key := cartkey.Encode(productID, color, fabric, code)

	s.mu.Lock()
	line, ok := s.state[key]
	if !ok {
		line = models.CartLine{Quantity: 1, Color: color, Fabric: fabric, Code: code, ProductID: productID}
		s.added[key] = s.ordinalLocked()
	} else {
		line.Quantity++
		if color != "" {
			line.Color = color
		}
		if fabric != "" {
			line.Fabric = fabric
		}
	}
	s.state[key] = line
	seq := s.commitLocked()
	snap := s.state.Clone()
	s.mu.Unlock()

	s.emit(snap)
	if s.drawer != nil {
		s.drawer.Open()
	}

	if !s.authenticated() {
		return nil
	}
	blob, err := s.remote.Add(ctx, key, color, fabric)
	if err != nil {
		return s.syncFailed("add", err)
	}
	s.applyRemote(seq, Normalize(blob))
	return nil
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (s *Store) UpdateQuantity(ctx context.Context, key string, quantity int) error {
	s.mu.Lock()
	s.updatePendingLocked(key, quantity)
	if line, ok := s.state[key]; ok {
		if quantity <= 0 {
			delete(s.state, key)
			delete(s.added, key)
		} else {
			line.Quantity = quantity
			s.state[key] = line
		}
	}
	seq := s.commitLocked()
	snap := s.state.Clone()
	s.mu.Unlock()

	s.emit(snap)

	if !s.authenticated() {
		return nil
	}
	blob, err := s.remote.Update(ctx, key, quantity)
	if err != nil {
		return s.syncFailed("update", err)
	}
	s.applyRemote(seq, Normalize(blob))
	return nil
}

// RemoveLine deletes a line.
func (s *Store) RemoveLine(ctx context.Context, key string) error {
	return s.UpdateQuantity(ctx, key, 0)
}

// Refresh replaces the local cart with the server's copy. An empty server
// cart never overwrites a non-empty local one: it is more likely a slow or
// failed fetch than a real empty cart.
func (s *Store) Refresh(ctx context.Context) error {
	if !s.authenticated() {
		return nil
	}

	s.mu.Lock()
	retry := len(s.pending) > 0
	s.mu.Unlock()
	if retry {
		if err := s.pushPending(ctx); err != nil {
			s.log.Warn("pending guest cart still not merged", zap.Error(err))
		}
	}

	s.mu.Lock()
	seq := s.seq
	s.mu.Unlock()

	blob, err := s.remote.Fetch(ctx)
	if err != nil {
		s.log.Warn("cart fetch failed", zap.Error(err))
		return fmt.Errorf("fetch cart: %w", err)
	}
	server := Normalize(blob)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.log.Debug("discarding stale cart fetch", zap.Uint64("seq", seq))
		return nil
	}
	s.server = server
	view := s.withPendingLocked(server)
	if len(view) == 0 && len(s.state) > 0 {
		s.mu.Unlock()
		s.log.Info("server cart is empty, keeping local cart")
		return nil
	}
	s.replaceLocked(view)
	s.persistLocked()
	snap := s.state.Clone()
	s.mu.Unlock()

	s.emit(snap)
	return nil
}

// MergeGuest pushes the local guest cart to the server after login. A merged
// non-empty cart is adopted and the local copy dropped from storage. Until the
// server confirms a merge the guest lines stay pending: they are persisted,
// kept on top of every server copy and pushed again by the next Refresh.
func (s *Store) MergeGuest(ctx context.Context) error {
	s.mu.Lock()
	if len(s.pending) == 0 && len(s.state) > 0 {
		s.pending = s.state.Clone()
		s.persistPendingLocked()
	}
	s.mu.Unlock()
	return s.pushPending(ctx)
}

// pushPending sends the pending guest lines to the merge endpoint.
func (s *Store) pushPending(ctx context.Context) error {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return nil
	}
	blob := s.pending.Marshal()
	seq := s.seq
	s.mu.Unlock()

	res, err := s.remote.Merge(ctx, blob)
	if err != nil {
		s.log.Error("cart merge failed", zap.Error(err))
		return fmt.Errorf("merge cart: %w", err)
	}

	merged := Normalize(res.Cart)
	if !res.Merged || len(merged) == 0 {
		s.log.Warn("merge returned empty server cart, keeping local guest cart",
			zap.Bool("merged", res.Merged))
		return nil
	}

	s.mu.Lock()
	s.pending = nil
	s.persistPendingLocked()
	if seq != s.seq {
		s.mu.Unlock()
		s.log.Debug("discarding stale merge response", zap.Uint64("seq", seq))
		return nil
	}
	s.server = merged
	s.replaceLocked(merged.Clone())
	snap := s.state.Clone()
	s.mu.Unlock()

	if err := s.storage.Remove(StorageKey); err != nil {
		s.log.Warn("failed to clear persisted guest cart", zap.Error(err))
	}
	s.emit(snap)
	return nil
}

// Clear empties the cart and its persisted copy. Responses to requests issued
// before Clear are discarded.
func (s *Store) Clear() {
	s.mu.Lock()
	s.state = State{}
	s.added = make(map[string]uint64)
	s.pending = nil
	s.server = nil
	s.seq++
	s.mu.Unlock()

	for _, key := range []string{StorageKey, PendingKey} {
		if err := s.storage.Remove(key); err != nil {
			s.log.Warn("failed to clear persisted cart", zap.String("key", key), zap.Error(err))
		}
	}
	s.emit(State{})
}

// TotalItemCount is the number of packs in the cart.
func (s *Store) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, line := range s.state {
		total += line.Quantity
	}
	return total
}

// TotalAmount is the sum of pack price times quantity. Lines whose product is
// not (yet) in the catalog contribute zero.
func (s *Store) TotalAmount() decimal.Decimal {
	s.mu.Lock()
	lines := s.state.Clone()
	s.mu.Unlock()

	total := decimal.Zero
	for _, line := range lines {
		v, ok := s.resolveVariant(line)
		if !ok {
			continue
		}
		total = total.Add(pricing.PackPrice(v).Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// LineAmount is the pack price of the line's variant times its quantity.
func (s *Store) LineAmount(line models.CartLine) (decimal.Decimal, bool) {
	v, ok := s.resolveVariant(line)
	if !ok {
		return decimal.Zero, false
	}
	return pricing.PackPrice(v).Mul(decimal.NewFromInt(int64(line.Quantity))), true
}

// resolveVariant matches by SKU code, then by color and fabric, and falls
// back to the product's first variant.
func (s *Store) resolveVariant(line models.CartLine) (models.Variant, bool) {
	if s.catalog == nil {
		return models.Variant{}, false
	}
	p, ok := s.catalog.Product(line.ProductID)
	if !ok || len(p.Variants) == 0 {
		return models.Variant{}, false
	}
	if line.Code != "" {
		for _, v := range p.Variants {
			if v.Code == line.Code {
				return v, true
			}
		}
	}
	if line.Color != "" || line.Fabric != "" {
		for _, v := range p.Variants {
			if v.Color == line.Color && v.Fabric == line.Fabric {
				return v, true
			}
		}
	}
	return p.Variants[0], true
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Lines lists the cart, most recently added first.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, 0, len(s.state))
	for k, v := range s.state {
		out = append(out, Line{Key: k, CartLine: v})
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := s.added[out[i].Key], s.added[out[j].Key]
		if oi != oj {
			return oi > oj
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Subscribe registers fn to receive a copy of the state after every change.
// The returned function unregisters it.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) emit(snap State) {
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap.Clone())
	}
}

// applyRemote replaces local state with a server response unless a newer
// mutation has been issued since the request was sent.
func (s *Store) applyRemote(seq uint64, server State) bool {
	s.mu.Lock()
	if seq != s.seq {
		latest := s.seq
		s.mu.Unlock()
		s.log.Debug("discarding stale cart response",
			zap.Uint64("seq", seq), zap.Uint64("latest", latest))
		return false
	}
	s.server = server
	s.replaceLocked(s.withPendingLocked(server))
	s.persistLocked()
	snap := s.state.Clone()
	s.mu.Unlock()

	s.emit(snap)
	return true
}

func (s *Store) authenticated() bool {
	return s.session != nil && s.session.Authenticated()
}

func (s *Store) syncFailed(op string, err error) error {
	s.log.Warn("cart sync failed", zap.String("op", op), zap.Error(err))
	s.notifier.Notify(notify.Error, syncMessage(err))
	return fmt.Errorf("sync cart %s: %w", op, err)
}

// syncMessage prefers a server-provided message over the generic one.
func syncMessage(err error) string {
	var msg interface{ UserMessage() string }
	if errors.As(err, &msg) && msg.UserMessage() != "" {
		return msg.UserMessage()
	}
	return "Failed to sync cart"
}

// replaceLocked swaps in a new state, keeping insertion order for lines that
// survive and appending new ones in key order.
func (s *Store) replaceLocked(next State) {
	added := make(map[string]uint64, len(next))
	var fresh []string
	for k := range next {
		if ord, ok := s.added[k]; ok {
			added[k] = ord
			continue
		}
		fresh = append(fresh, k)
	}
	sort.Strings(fresh)
	for _, k := range fresh {
		added[k] = s.ordinalLocked()
	}
	s.state = next
	s.added = added
}

// commitLocked persists a local mutation and returns its sequence number.
func (s *Store) commitLocked() uint64 {
	s.seq++
	s.persistLocked()
	return s.seq
}

func (s *Store) persistLocked() {
	if err := s.storage.Set(StorageKey, s.state.Marshal()); err != nil {
		s.log.Warn("failed to persist cart", zap.Error(err))
	}
}

// withPendingLocked lays the pending guest lines over a server copy. A line
// present on both sides shows the quantity the merge will produce.
func (s *Store) withPendingLocked(server State) State {
	view := server.Clone()
	for key, line := range s.pending {
		if have, ok := view[key]; ok {
			have.Quantity = addQuantities(have.Quantity, line.Quantity)
			view[key] = have
			continue
		}
		view[key] = line
	}
	return view
}

// updatePendingLocked keeps a pending line in step with an explicit quantity
// change. A line the server already has is handed over to the update call;
// a guest-only line keeps waiting for the merge with its new quantity.
func (s *Store) updatePendingLocked(key string, quantity int) {
	line, ok := s.pending[key]
	if !ok {
		return
	}
	if _, onServer := s.server[key]; quantity <= 0 || onServer {
		delete(s.pending, key)
	} else {
		line.Quantity = quantity
		s.pending[key] = line
	}
	s.persistPendingLocked()
}

func (s *Store) persistPendingLocked() {
	var err error
	if len(s.pending) == 0 {
		err = s.storage.Remove(PendingKey)
	} else {
		err = s.storage.Set(PendingKey, s.pending.Marshal())
	}
	if err != nil {
		s.log.Warn("failed to persist pending guest cart", zap.Error(err))
	}
}

func addQuantities(a, b int) int {
	if a > math.MaxInt32-b {
		return math.MaxInt32
	}
	return a + b
}

func (s *Store) ordinalLocked() uint64 {
	s.nextOrd++
	return s.nextOrd
}
