package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"reliefledger/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process LedgerStore. Records read with GetByIDForUpdate
// inside RunInTx stay locked until the transaction ends; writes are staged and
// applied together on commit.
type MemoryStore struct {
	mu        sync.RWMutex
	stock     map[uuid.UUID]*models.StockRecord
	movements []*models.MovementRecord
	requests  map[uuid.UUID]*models.StockRequest
	shelters  map[uuid.UUID]*models.Shelter

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

var _ LedgerStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stock:    make(map[uuid.UUID]*models.StockRecord),
		requests: make(map[uuid.UUID]*models.StockRequest),
		shelters: make(map[uuid.UUID]*models.Shelter),
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *MemoryStore) Stock() StockRepository           { return &memStockRepo{s: s} }
func (s *MemoryStore) Movements() MovementRepository    { return &memMovementRepo{s: s} }
func (s *MemoryStore) Requests() StockRequestRepository { return &memRequestRepo{s: s} }
func (s *MemoryStore) Shelters() ShelterRepository      { return &memShelterRepo{s: s} }

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx := &memTx{
		s:        s,
		held:     make(map[uuid.UUID]*sync.Mutex),
		stock:    make(map[uuid.UUID]*stagedStock),
		requests: make(map[uuid.UUID]*stagedRequest),
		shelters: make(map[uuid.UUID]*models.Shelter),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (s *MemoryStore) recordLock(id uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

type stagedStock struct {
	rec   *models.StockRecord
	base  int
	isNew bool
}

type stagedRequest struct {
	req   *models.StockRequest
	base  int
	isNew bool
}

type memTx struct {
	s         *MemoryStore
	held      map[uuid.UUID]*sync.Mutex
	stock     map[uuid.UUID]*stagedStock
	requests  map[uuid.UUID]*stagedRequest
	shelters  map[uuid.UUID]*models.Shelter
	movements []*models.MovementRecord
}

func (t *memTx) Stock() StockRepository           { return &memStockRepo{s: t.s, tx: t} }
func (t *memTx) Movements() MovementRepository    { return &memMovementRepo{s: t.s, tx: t} }
func (t *memTx) Requests() StockRequestRepository { return &memRequestRepo{s: t.s, tx: t} }
func (t *memTx) Shelters() ShelterRepository      { return &memShelterRepo{s: t.s, tx: t} }

func (t *memTx) lock(id uuid.UUID) {
	if _, ok := t.held[id]; ok {
		return
	}
	m := t.s.recordLock(id)
	m.Lock()
	t.held[id] = m
}

func (t *memTx) release() {
	for id, m := range t.held {
		m.Unlock()
		delete(t.held, id)
	}
}

func (t *memTx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id, st := range t.stock {
		cur, exists := t.s.stock[id]
		if st.isNew == exists || (exists && cur.Version != st.base) {
			return ErrConcurrentUpdate
		}
	}
	for id, st := range t.requests {
		cur, exists := t.s.requests[id]
		if st.isNew == exists || (exists && cur.Version != st.base) {
			return ErrConcurrentUpdate
		}
	}

	for id, st := range t.stock {
		t.s.stock[id] = st.rec.Clone()
	}
	for id, st := range t.requests {
		t.s.requests[id] = st.req.Clone()
	}
	for id, sh := range t.shelters {
		c := *sh
		t.s.shelters[id] = &c
	}
	t.s.movements = append(t.s.movements, t.movements...)
	return nil
}

type memStockRepo struct {
	s  *MemoryStore
	tx *memTx
}

func (r *memStockRepo) Create(ctx context.Context, rec *models.StockRecord) error {
	c := rec.Clone()
	if r.tx != nil {
		r.tx.stock[rec.ID] = &stagedStock{rec: c, isNew: true}
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.stock[rec.ID]; exists {
		return ErrConcurrentUpdate
	}
	r.s.stock[rec.ID] = c
	return nil
}

func (r *memStockRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StockRecord, error) {
	if r.tx != nil {
		if st, ok := r.tx.stock[id]; ok {
			return st.rec.Clone(), nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.stock[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *memStockRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.StockRecord, error) {
	if r.tx != nil {
		r.tx.lock(id)
	}
	return r.GetByID(ctx, id)
}

func (r *memStockRepo) Update(ctx context.Context, rec *models.StockRecord) error {
	now := time.Now().UTC()
	if r.tx != nil {
		base := rec.Version
		isNew := false
		if st, ok := r.tx.stock[rec.ID]; ok {
			if st.rec.Version != rec.Version {
				return ErrConcurrentUpdate
			}
			base, isNew = st.base, st.isNew
		} else {
			r.s.mu.RLock()
			cur, exists := r.s.stock[rec.ID]
			r.s.mu.RUnlock()
			if !exists {
				return ErrNotFound
			}
			if cur.Version != rec.Version {
				return ErrConcurrentUpdate
			}
		}
		rec.Version++
		rec.UpdatedAt = now
		r.tx.stock[rec.ID] = &stagedStock{rec: rec.Clone(), base: base, isNew: isNew}
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, exists := r.s.stock[rec.ID]
	if !exists {
		return ErrNotFound
	}
	if cur.Version != rec.Version {
		return ErrConcurrentUpdate
	}
	rec.Version++
	rec.UpdatedAt = now
	r.s.stock[rec.ID] = rec.Clone()
	return nil
}

func (r *memStockRepo) List(ctx context.Context, filter *models.StockFilter) ([]*models.StockRecord, error) {
	if filter == nil {
		filter = &models.StockFilter{}
	}
	q := strings.ToLower(strings.TrimSpace(filter.Query))

	r.s.mu.RLock()
	var out []*models.StockRecord
	for _, rec := range r.s.stock {
		if q != "" && !strings.Contains(strings.ToLower(rec.ItemName), q) {
			continue
		}
		if filter.Category != nil && rec.Category != *filter.Category {
			continue
		}
		if filter.Status != nil && rec.Status() != *filter.Status {
			continue
		}
		if filter.ShelterID != nil {
			if _, ok := rec.ShelterQuantities[*filter.ShelterID]; !ok {
				continue
			}
		}
		if filter.Active != nil && rec.IsActive != *filter.Active {
			continue
		}
		out = append(out, rec.Clone())
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemName == out[j].ItemName {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].ItemName < out[j].ItemName
	})
	return paginate(out, filter.Limit, filter.Offset, 50), nil
}

func (r *memStockRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.stock[id]
	if !ok {
		return ErrNotFound
	}
	c := rec.Clone()
	c.IsActive = active
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	r.s.stock[id] = c
	return nil
}

type memMovementRepo struct {
	s  *MemoryStore
	tx *memTx
}

func (r *memMovementRepo) Append(ctx context.Context, m *models.MovementRecord) error {
	if !m.Valid() {
		return ErrInvalidMovement
	}
	c := *m
	if r.tx != nil {
		r.tx.movements = append(r.tx.movements, &c)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.movements = append(r.s.movements, &c)
	return nil
}

func (r *memMovementRepo) Query(ctx context.Context, filter *models.MovementFilter) ([]*models.MovementRecord, error) {
	r.s.mu.RLock()
	var out []*models.MovementRecord
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		m := r.s.movements[i]
		if filter.Matches(m) {
			c := *m
			out = append(out, &c)
		}
	}
	r.s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PerformedAt.After(out[j].PerformedAt)
	})
	limit, offset := 0, 0
	if filter != nil {
		limit, offset = filter.Limit, filter.Offset
	}
	return paginate(out, limit, offset, 100), nil
}

func (r *memMovementRepo) Totals(ctx context.Context, stockItemID uuid.UUID) (models.MovementTotals, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var totals models.MovementTotals
	for _, m := range r.s.movements {
		if m.StockItemID == stockItemID {
			totals.Add(m)
		}
	}
	return totals, nil
}

type memRequestRepo struct {
	s  *MemoryStore
	tx *memTx
}

func (r *memRequestRepo) Create(ctx context.Context, req *models.StockRequest) error {
	c := req.Clone()
	if r.tx != nil {
		r.tx.requests[req.ID] = &stagedRequest{req: c, isNew: true}
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.requests[req.ID]; exists {
		return ErrConcurrentUpdate
	}
	r.s.requests[req.ID] = c
	return nil
}

func (r *memRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StockRequest, error) {
	if r.tx != nil {
		if st, ok := r.tx.requests[id]; ok {
			return st.req.Clone(), nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return req.Clone(), nil
}

func (r *memRequestRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.StockRequest, error) {
	if r.tx != nil {
		r.tx.lock(id)
	}
	return r.GetByID(ctx, id)
}

func (r *memRequestRepo) Update(ctx context.Context, req *models.StockRequest) error {
	now := time.Now().UTC()
	if r.tx != nil {
		base := req.Version
		isNew := false
		if st, ok := r.tx.requests[req.ID]; ok {
			if st.req.Version != req.Version {
				return ErrConcurrentUpdate
			}
			base, isNew = st.base, st.isNew
		} else {
			r.s.mu.RLock()
			cur, exists := r.s.requests[req.ID]
			r.s.mu.RUnlock()
			if !exists {
				return ErrNotFound
			}
			if cur.Version != req.Version {
				return ErrConcurrentUpdate
			}
		}
		req.Version++
		req.UpdatedAt = now
		r.tx.requests[req.ID] = &stagedRequest{req: req.Clone(), base: base, isNew: isNew}
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, exists := r.s.requests[req.ID]
	if !exists {
		return ErrNotFound
	}
	if cur.Version != req.Version {
		return ErrConcurrentUpdate
	}
	req.Version++
	req.UpdatedAt = now
	r.s.requests[req.ID] = req.Clone()
	return nil
}

func (r *memRequestRepo) List(ctx context.Context, filter *models.RequestFilter) ([]*models.StockRequest, error) {
	r.s.mu.RLock()
	var out []*models.StockRequest
	for _, req := range r.s.requests {
		if filter.Matches(req) {
			out = append(out, req.Clone())
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})
	limit, offset := 0, 0
	if filter != nil {
		limit, offset = filter.Limit, filter.Offset
	}
	return paginate(out, limit, offset, 50), nil
}

type memShelterRepo struct {
	s  *MemoryStore
	tx *memTx
}

func (r *memShelterRepo) Create(ctx context.Context, shelter *models.Shelter) error {
	c := *shelter
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if r.tx != nil {
		r.tx.shelters[c.ID] = &c
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.shelters[c.ID] = &c
	return nil
}

func (r *memShelterRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Shelter, error) {
	if r.tx != nil {
		if sh, ok := r.tx.shelters[id]; ok {
			c := *sh
			return &c, nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sh, ok := r.s.shelters[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *sh
	return &c, nil
}

func (r *memShelterRepo) Update(ctx context.Context, shelter *models.Shelter) error {
	existing, err := r.GetByID(ctx, shelter.ID)
	if err != nil {
		return err
	}
	c := *shelter
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	if r.tx != nil {
		r.tx.shelters[c.ID] = &c
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.shelters[c.ID] = &c
	return nil
}

func (r *memShelterRepo) List(ctx context.Context, limit, offset int) ([]*models.Shelter, error) {
	r.s.mu.RLock()
	out := make([]*models.Shelter, 0, len(r.s.shelters))
	for _, sh := range r.s.shelters {
		c := *sh
		out = append(out, &c)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, limit, offset, 50), nil
}

func paginate[T any](items []T, limit, offset, defaultLimit int) []T {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
