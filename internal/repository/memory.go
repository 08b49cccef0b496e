package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"lavka/internal/domain"
)

// MemoryStore объединённое in-memory хранилище и простой генератор ID.
// Используется в тестах и при запуске без DATABASE_URL.
type MemoryStore struct {
	mu           sync.RWMutex
	nextProdID   int64
	nextOrderID  int64
	nextItemID   int64
	nextUserID   int64
	productsByID map[int64]domain.Product
	ordersByID   map[int64]domain.Order
	itemsByID    map[int64]domain.OrderItem
	usersByID    map[int64]domain.User
	sessions     map[string]domain.Session
	nowFunc      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextProdID:   1,
		nextOrderID:  1,
		nextItemID:   1,
		nextUserID:   1,
		productsByID: make(map[int64]domain.Product),
		ordersByID:   make(map[int64]domain.Order),
		itemsByID:    make(map[int64]domain.OrderItem),
		usersByID:    make(map[int64]domain.User),
		sessions:     make(map[string]domain.Session),
		nowFunc:      func() time.Time { return time.Now().UTC() },
	}
}

// transaction-aware locking helpers
type memTxKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(memTxKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)

// Остальные репозитории реализованы обёртками над тем же стором.

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p.ID = m.nextProdID
	m.nextProdID++
	p.CreatedAt = m.nowFunc()
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	prev, ok := m.productsByID[p.ID]
	if !ok {
		return ErrNotFound
	}
	// CreatedAt неизменяем
	p.CreatedAt = prev.CreatedAt
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[id]; !ok {
		return ErrNotFound
	}
	delete(m.productsByID, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0, len(m.productsByID))
	for _, p := range m.productsByID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o.ID = mo.store.nextOrderID
	mo.store.nextOrderID++
	o.CreatedAt = mo.store.nowFunc()
	mo.store.ordersByID[o.ID] = *o
	return nil
}

func (mo *MemoryOrders) GetByIDForUser(ctx context.Context, id, userID int64) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok || o.UserID != userID {
		// чужой заказ выглядит как отсутствующий
		return nil, ErrNotFound
	}
	cp := o
	return &cp, nil
}

func (mo *MemoryOrders) UpdateStatus(ctx context.Context, id, userID int64, status domain.OrderStatus) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok || o.UserID != userID {
		return ErrNotFound
	}
	o.Status = status
	mo.store.ordersByID[id] = o
	return nil
}

func (mo *MemoryOrders) Delete(ctx context.Context, id, userID int64) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok || o.UserID != userID {
		return ErrNotFound
	}
	delete(mo.store.ordersByID, id)
	return nil
}

func (mo *MemoryOrders) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range mo.store.ordersByID {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// OrderItemRepository implementation on wrapper type
type MemoryItems struct{ store *MemoryStore }

func NewMemoryItems(store *MemoryStore) *MemoryItems { return &MemoryItems{store: store} }

var _ OrderItemRepository = (*MemoryItems)(nil)

func (mi *MemoryItems) Create(ctx context.Context, it *domain.OrderItem) error {
	mi.store.wlock(ctx)
	defer mi.store.wunlock(ctx)
	it.ID = mi.store.nextItemID
	mi.store.nextItemID++
	mi.store.itemsByID[it.ID] = *it
	return nil
}

func (mi *MemoryItems) GetByID(ctx context.Context, id int64) (*domain.OrderItem, error) {
	mi.store.rlock(ctx)
	defer mi.store.runlock(ctx)
	it, ok := mi.store.itemsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := it
	return &cp, nil
}

func (mi *MemoryItems) Update(ctx context.Context, it *domain.OrderItem) error {
	mi.store.wlock(ctx)
	defer mi.store.wunlock(ctx)
	prev, ok := mi.store.itemsByID[it.ID]
	if !ok {
		return ErrNotFound
	}
	// OrderID и Price неизменяемы: позиция не переезжает между заказами,
	// снимок цены не пересчитывается
	it.OrderID = prev.OrderID
	it.Price = prev.Price
	mi.store.itemsByID[it.ID] = *it
	return nil
}

func (mi *MemoryItems) Delete(ctx context.Context, id int64) error {
	mi.store.wlock(ctx)
	defer mi.store.wunlock(ctx)
	if _, ok := mi.store.itemsByID[id]; !ok {
		return ErrNotFound
	}
	delete(mi.store.itemsByID, id)
	return nil
}

func (mi *MemoryItems) ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	mi.store.rlock(ctx)
	defer mi.store.runlock(ctx)
	out := make([]domain.OrderItem, 0)
	for _, it := range mi.store.itemsByID {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (mi *MemoryItems) DeleteByOrder(ctx context.Context, orderID int64) error {
	mi.store.wlock(ctx)
	defer mi.store.wunlock(ctx)
	for id, it := range mi.store.itemsByID {
		if it.OrderID == orderID {
			delete(mi.store.itemsByID, id)
		}
	}
	return nil
}

func (mi *MemoryItems) DeleteByProduct(ctx context.Context, productID int64) error {
	mi.store.wlock(ctx)
	defer mi.store.wunlock(ctx)
	for id, it := range mi.store.itemsByID {
		if it.ProductID == productID {
			delete(mi.store.itemsByID, id)
		}
	}
	return nil
}

// UserRepository implementation on wrapper type
type MemoryUsers struct{ store *MemoryStore }

func NewMemoryUsers(store *MemoryStore) *MemoryUsers { return &MemoryUsers{store: store} }

var _ UserRepository = (*MemoryUsers)(nil)

func (mu *MemoryUsers) Create(ctx context.Context, u *domain.User) error {
	mu.store.wlock(ctx)
	defer mu.store.wunlock(ctx)
	for _, existing := range mu.store.usersByID {
		if existing.Username == u.Username {
			return ErrConflict
		}
	}
	u.ID = mu.store.nextUserID
	mu.store.nextUserID++
	u.CreatedAt = mu.store.nowFunc()
	mu.store.usersByID[u.ID] = *u
	return nil
}

func (mu *MemoryUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	u, ok := mu.store.usersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (mu *MemoryUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	for _, u := range mu.store.usersByID {
		if u.Username == username {
			cp := u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// SessionRepository implementation on wrapper type
type MemorySessions struct{ store *MemoryStore }

func NewMemorySessions(store *MemoryStore) *MemorySessions { return &MemorySessions{store: store} }

var _ SessionRepository = (*MemorySessions)(nil)

func (ms *MemorySessions) Create(ctx context.Context, s *domain.Session) error {
	ms.store.wlock(ctx)
	defer ms.store.wunlock(ctx)
	ms.store.sessions[s.Token] = *s
	return nil
}

func (ms *MemorySessions) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	ms.store.rlock(ctx)
	defer ms.store.runlock(ctx)
	s, ok := ms.store.sessions[token]
	if !ok || ms.store.nowFunc().After(s.ExpiresAt) {
		// просроченная сессия равнозначна отсутствующей
		return nil, ErrNotFound
	}
	cp := s
	return &cp, nil
}

func (ms *MemorySessions) Delete(ctx context.Context, token string) error {
	ms.store.wlock(ctx)
	defer ms.store.wunlock(ctx)
	delete(ms.store.sessions, token)
	return nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

var _ TxManager = (*MemoryTx)(nil)

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Для in-memory берём блокировку записи и помечаем контекст, чтобы
	// репозитории пропускали внутренние локи
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, memTxKey{}, true)
	return fn(ctx)
}
