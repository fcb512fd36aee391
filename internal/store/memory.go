package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xelth-com/centerhub/internal/models"
)

// Op names a MemoryStore operation for failure injection
type Op string

const (
	OpListCenters   Op = "list_centers"
	OpAppendLocal   Op = "append_local"
	OpAppendGlobal  Op = "append_global"
	OpListLocal     Op = "list_local"
	OpListGlobal    Op = "list_global"
	OpCountLocal    Op = "count_local"
	OpActiveSession Op = "active_session"
	OpCreateSession Op = "create_session"
	OpCloseSession  Op = "close_session"
	OpListSessions  Op = "list_sessions"
)

type failure struct {
	op       Op
	centerID string
	err      error
}

// MemoryStore keeps centers, sessions and activities in process memory.
// It enforces the same one-active-session rule as the postgres index.
type MemoryStore struct {
	mu       sync.RWMutex
	centers  map[string]models.Center
	sessions map[string]models.CenterSession
	local    []models.ActivityRecord
	global   []models.GlobalActivity
	failures []failure
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		centers:  make(map[string]models.Center),
		sessions: make(map[string]models.CenterSession),
	}
}

// NewMemory builds a Store backed entirely by memory and returns the MemoryStore so
// callers can inject failures.
func NewMemory() (*Store, *MemoryStore) {
	ms := NewMemoryStore()
	return &Store{
		Centers:     ms,
		Activities:  ms,
		Sessions:    ms,
		Technicians: NewMemoryRecords[models.Technician](),
		Customers:   NewMemoryRecords[models.Customer](),
		Inventory:   NewMemoryInventory(),
		Sales:       NewMemoryRecords[models.Sale](),
		Maintenance: NewMemoryRecords[models.MaintenanceRequest](),
	}, ms
}

// FailOn makes op return err. An empty centerID matches every center.
func (m *MemoryStore) FailOn(op Op, centerID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, failure{op: op, centerID: centerID, err: err})
}

// ClearFailures removes every injected failure
func (m *MemoryStore) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = nil
}

// failFor must be called with m.mu held
func (m *MemoryStore) failFor(op Op, centerID string) error {
	for _, f := range m.failures {
		if f.op == op && (f.centerID == "" || f.centerID == centerID) {
			return f.err
		}
	}
	return nil
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// --- centers ---

func (m *MemoryStore) ListCenters(ctx context.Context) ([]models.Center, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor(OpListCenters, ""); err != nil {
		return nil, err
	}
	out := make([]models.Center, 0, len(m.centers))
	for _, c := range m.centers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) GetCenter(ctx context.Context, id string) (*models.Center, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.centers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *MemoryStore) GetCenterByEmail(ctx context.Context, email string) (*models.Center, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.centers {
		if strings.EqualFold(c.Email, email) {
			c := c
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateCenter(ctx context.Context, c *models.Center) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.UpdatedAt = c.CreatedAt
	m.centers[c.ID] = *c
	return nil
}

func (m *MemoryStore) UpdateCenter(ctx context.Context, c *models.Center) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.centers[c.ID]
	if !ok {
		return ErrNotFound
	}
	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	m.centers[c.ID] = *c
	return nil
}

func (m *MemoryStore) DeleteCenter(ctx context.Context, id string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.centers[id]; !ok {
		return ErrNotFound
	}
	delete(m.centers, id)
	return nil
}

// --- activities ---

func (m *MemoryStore) AppendLocal(ctx context.Context, rec *models.ActivityRecord) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor(OpAppendLocal, rec.CenterID); err != nil {
		return err
	}
	rec.CreatedAt = time.Now().UTC()
	m.local = append(m.local, *rec)
	return nil
}

func (m *MemoryStore) AppendGlobal(ctx context.Context, rec *models.GlobalActivity) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor(OpAppendGlobal, rec.CenterID); err != nil {
		return err
	}
	if rec.LocalID != "" {
		for _, g := range m.global {
			if g.LocalID == rec.LocalID {
				return fmt.Errorf("%w: global copy of %s", ErrDuplicate, rec.LocalID)
			}
		}
	}
	rec.CreatedAt = time.Now().UTC()
	m.global = append(m.global, *rec)
	return nil
}

func matchesWindow(ts time.Time, q ActivityQuery) bool {
	if q.From != nil && ts.Before(*q.From) {
		return false
	}
	if q.To != nil && ts.After(*q.To) {
		return false
	}
	return true
}

func (m *MemoryStore) ListLocal(ctx context.Context, centerID string, q ActivityQuery) ([]models.ActivityRecord, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor(OpListLocal, centerID); err != nil {
		return nil, err
	}
	var out []models.ActivityRecord
	for _, a := range m.local {
		if a.CenterID != centerID || !matchesWindow(a.Timestamp, q) {
			continue
		}
		if q.Category != "" && a.Category != q.Category {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) ListGlobal(ctx context.Context, q ActivityQuery) ([]models.GlobalActivity, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor(OpListGlobal, q.CenterID); err != nil {
		return nil, err
	}
	var out []models.GlobalActivity
	for _, a := range m.global {
		if q.CenterID != "" && a.CenterID != q.CenterID {
			continue
		}
		if q.Category != "" && a.Category != q.Category {
			continue
		}
		if !matchesWindow(a.Timestamp, q) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) CountLocal(ctx context.Context, centerID string, from time.Time, to *time.Time) (int64, error) {
	if err := checkCtx(ctx); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor(OpCountLocal, centerID); err != nil {
		return 0, err
	}
	q := ActivityQuery{From: &from, To: to}
	var n int64
	for _, a := range m.local {
		if a.CenterID == centerID && matchesWindow(a.Timestamp, q) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) HasLocal(ctx context.Context, id string) (bool, error) {
	if err := checkCtx(ctx); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.local {
		if a.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) LocalWithoutMirror(ctx context.Context, limit int) ([]models.ActivityRecord, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	mirrored := make(map[string]bool, len(m.global))
	for _, g := range m.global {
		mirrored[g.LocalID] = true
	}
	var out []models.ActivityRecord
	for _, a := range m.local {
		if !mirrored[a.ID] {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LocalCount and GlobalCount report how many records a center has in each log
func (m *MemoryStore) LocalCount(centerID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.local {
		if a.CenterID == centerID {
			n++
		}
	}
	return n
}

func (m *MemoryStore) GlobalCount(centerID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.global {
		if a.CenterID == centerID {
			n++
		}
	}
	return n
}

// --- sessions ---

func (m *MemoryStore) ActiveSession(ctx context.Context, centerID string) (*models.CenterSession, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor(OpActiveSession, centerID); err != nil {
		return nil, err
	}
	var found *models.CenterSession
	for _, s := range m.sessions {
		if s.CenterID != centerID || !s.IsActive {
			continue
		}
		if found == nil || s.SessionStart.After(found.SessionStart) {
			s := s
			found = &s
		}
	}
	return found, nil
}

func (m *MemoryStore) CreateSession(ctx context.Context, sess *models.CenterSession) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor(OpCreateSession, sess.CenterID); err != nil {
		return err
	}
	if sess.IsActive {
		for _, s := range m.sessions {
			if s.CenterID == sess.CenterID && s.IsActive {
				return ErrActiveSessionExists
			}
		}
	}
	now := time.Now().UTC()
	sess.CreatedAt, sess.UpdatedAt = now, now
	m.sessions[sess.ID] = *sess
	return nil
}

func (m *MemoryStore) CloseSession(ctx context.Context, centerID, id string, end time.Time, endedBy string) (*models.CenterSession, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor(OpCloseSession, centerID); err != nil {
		return nil, err
	}
	s, ok := m.sessions[id]
	if !ok || s.CenterID != centerID {
		return nil, ErrNotFound
	}
	if !s.IsActive {
		return &s, ErrSessionNotOpen
	}
	s.SessionEnd = &end
	s.IsActive = false
	s.EndedBy = endedBy
	s.UpdatedAt = time.Now().UTC()
	m.sessions[id] = s
	return &s, nil
}

func (m *MemoryStore) GetSession(ctx context.Context, centerID, id string) (*models.CenterSession, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok || s.CenterID != centerID {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) ListSessions(ctx context.Context, centerID string, limit int) ([]models.CenterSession, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor(OpListSessions, centerID); err != nil {
		return nil, err
	}
	var out []models.CenterSession
	for _, s := range m.sessions {
		if s.CenterID == centerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionStart.After(out[j].SessionStart) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ListActiveSessions(ctx context.Context) ([]models.CenterSession, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.CenterSession
	for _, s := range m.sessions {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

// ActiveCount returns how many open sessions a center has
func (m *MemoryStore) ActiveCount(centerID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.sessions {
		if s.CenterID == centerID && s.IsActive {
			n++
		}
	}
	return n
}

// MemoryRecords is the in-memory implementation of Records
type MemoryRecords[T models.CenterScoped] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
}

// NewMemoryRecords creates an empty repository for T
func NewMemoryRecords[T models.CenterScoped]() *MemoryRecords[T] {
	return &MemoryRecords[T]{items: make(map[string]T)}
}

func (r *MemoryRecords[T]) List(ctx context.Context, centerID string) ([]T, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []T
	// newest first, matching the postgres ordering
	for i := len(r.order) - 1; i >= 0; i-- {
		rec, ok := r.items[r.order[i]]
		if !ok {
			continue
		}
		if centerID == "" || rec.GetCenterID() == centerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *MemoryRecords[T]) Get(ctx context.Context, centerID, id string) (T, error) {
	var zero T
	if err := checkCtx(ctx); err != nil {
		return zero, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[id]
	if !ok || rec.GetCenterID() != centerID {
		return zero, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRecords[T]) Create(ctx context.Context, rec T) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[rec.GetID()] = rec
	r.order = append(r.order, rec.GetID())
	return nil
}

func (r *MemoryRecords[T]) Update(ctx context.Context, rec T) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.items[rec.GetID()]
	if !ok || old.GetCenterID() != rec.GetCenterID() {
		return ErrNotFound
	}
	r.items[rec.GetID()] = rec
	return nil
}

func (r *MemoryRecords[T]) Delete(ctx context.Context, centerID, id string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.items[id]
	if !ok || rec.GetCenterID() != centerID {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// MemoryInventory is the in-memory inventory repository
type MemoryInventory struct {
	*MemoryRecords[models.InventoryItem]
}

// NewMemoryInventory creates an empty inventory repository
func NewMemoryInventory() *MemoryInventory {
	return &MemoryInventory{NewMemoryRecords[models.InventoryItem]()}
}

// AdjustQuantity checks and applies delta under the repository lock
func (r *MemoryInventory) AdjustQuantity(ctx context.Context, centerID, id string, delta int) (models.InventoryItem, error) {
	if err := checkCtx(ctx); err != nil {
		return models.InventoryItem{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.CenterID != centerID {
		return models.InventoryItem{}, ErrNotFound
	}
	if item.Quantity+delta < 0 {
		return item, ErrInsufficientStock
	}
	item.Quantity += delta
	item.UpdatedAt = time.Now().UTC()
	r.items[id] = item
	return item, nil
}
