package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flicky/farm-market-api/internal/model"
	"github.com/flicky/farm-market-api/internal/repository"
)

// memStore backs every repository interface with maps guarded by one mutex.
type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*model.User
	products map[uuid.UUID]*model.Product
	carts    map[uuid.UUID]*model.Cart
	orders   map[uuid.UUID]*model.Order
	chats    map[string]*model.Chat
	messages map[uuid.UUID][]model.Message
	farmers  []model.FarmerLocation
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uuid.UUID]*model.User),
		products: make(map[uuid.UUID]*model.Product),
		carts:    make(map[uuid.UUID]*model.Cart),
		orders:   make(map[uuid.UUID]*model.Order),
		chats:    make(map[string]*model.Chat),
		messages: make(map[uuid.UUID][]model.Message),
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	r.users[u.ID] = u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

type memProducts struct{ *memStore }

func (r memProducts) Create(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r memProducts) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r memProducts) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]*model.Product)
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (r memProducts) List(_ context.Context) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memProducts) Update(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r memProducts) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
	return nil
}

type memCarts struct{ *memStore }

func (r memCarts) cartByID(id uuid.UUID) *model.Cart {
	for _, c := range r.carts {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (r memCarts) LockOrCreate(_ context.Context, customerID uuid.UUID) (*model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[customerID]
	if !ok {
		c = &model.Cart{ID: uuid.New(), CustomerID: customerID}
		r.carts[customerID] = c
	}
	return &model.Cart{ID: c.ID, CustomerID: customerID}, nil
}

func (r memCarts) Find(_ context.Context, customerID uuid.UUID, _ bool) (*model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[customerID]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Items = append([]model.CartItem(nil), c.Items...)
	return &cp, nil
}

func (r memCarts) IncrementItem(_ context.Context, cartID, productID uuid.UUID, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.cartByID(cartID)
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += delta
			return nil
		}
	}
	c.Items = append(c.Items, model.CartItem{ProductID: productID, Quantity: delta})
	return nil
}

func (r memCarts) RemoveItem(_ context.Context, cartID, productID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.cartByID(cartID)
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
	return nil
}

func (r memCarts) Delete(_ context.Context, cartID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, c := range r.carts {
		if c.ID == cartID {
			delete(r.carts, k)
		}
	}
	return nil
}

type memOrders struct{ *memStore }

func (r memOrders) Create(_ context.Context, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r memOrders) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id], nil
}

func (r memOrders) ListByCustomerID(_ context.Context, customerID uuid.UUID) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

type memChats struct{ *memStore }

func (r memChats) GetOrCreate(_ context.Context, a, b uuid.UUID) (*model.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, pair := repository.PairKey(a, b)
	c, ok := r.chats[key]
	if !ok {
		c = &model.Chat{ID: uuid.New(), Participants: pair, CreatedAt: time.Now()}
		r.chats[key] = c
	}
	return c, nil
}

func (r memChats) GetByID(_ context.Context, id uuid.UUID) (*model.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chats {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (r memChats) ListByParticipant(_ context.Context, userID uuid.UUID) ([]model.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Chat
	for _, c := range r.chats {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r memChats) AppendMessage(_ context.Context, m *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	r.messages[m.ChatID] = append(r.messages[m.ChatID], *m)
	return nil
}

func (r memChats) ListMessages(_ context.Context, chatID uuid.UUID) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Message(nil), r.messages[chatID]...), nil
}

type memFarmers struct{ *memStore }

func (r memFarmers) ReplaceAll(_ context.Context, locs []model.FarmerLocation) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.farmers = append([]model.FarmerLocation(nil), locs...)
	return len(locs), nil
}

func (r memFarmers) List(_ context.Context) ([]model.FarmerLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.FarmerLocation(nil), r.farmers...), nil
}
