package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/farm-market-api/internal/model"
)

type fakeAck struct {
	acked, nacked, requeued int
}

func (f *fakeAck) Ack(uint64, bool) error { f.acked++; return nil }

func (f *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked++
	if requeue {
		f.requeued++
	}
	return nil
}

func (f *fakeAck) Reject(_ uint64, requeue bool) error { return f.Nack(0, false, requeue) }

type fakeKeys struct {
	mu     sync.Mutex
	keys   map[string]bool
	setErr error
}

func (f *fakeKeys) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return redis.NewBoolResult(false, f.setErr)
	}
	if f.keys[key] {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = true
	return redis.NewBoolResult(true, nil)
}

func (f *fakeKeys) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if f.keys[k] {
			delete(f.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type fakeOrders struct{ orders map[uuid.UUID]*model.Order }

func (f *fakeOrders) Create(context.Context, *model.Order) error { return nil }
func (f *fakeOrders) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	return f.orders[id], nil
}
func (f *fakeOrders) ListByCustomerID(context.Context, uuid.UUID) ([]model.Order, error) {
	return nil, nil
}

type fakeProducts struct{ products map[uuid.UUID]*model.Product }

func (f *fakeProducts) Create(context.Context, *model.Product) error { return nil }
func (f *fakeProducts) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	return f.products[id], nil
}
func (f *fakeProducts) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	out := make(map[uuid.UUID]*model.Product)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
func (f *fakeProducts) List(context.Context) ([]model.Product, error) { return nil, nil }
func (f *fakeProducts) Update(context.Context, *model.Product) error { return nil }
func (f *fakeProducts) Delete(context.Context, uuid.UUID) error { return nil }

type notice struct {
	customerID, farmerID uuid.UUID
	content              string
}

type fakeNotices struct {
	posted []notice
	err    error
}

func (f *fakeNotices) PostOrderNotice(_ context.Context, customerID, farmerID uuid.UUID, content string) (*model.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.posted = append(f.posted, notice{customerID, farmerID, content})
	return &model.Message{Kind: model.MessageKindOrder, Content: content}, nil
}

type workerFixture struct {
	worker   *OrderWorker
	keys     *fakeKeys
	notices  *fakeNotices
	order    *model.Order
	farmerA  uuid.UUID
	farmerB  uuid.UUID
	products *fakeProducts
}

func newWorkerFixture() *workerFixture {
	farmerA, farmerB := uuid.New(), uuid.New()
	tomato := &model.Product{ID: uuid.New(), Title: "Tomatoes", CreatedBy: farmerA, SellingPrice: decimal.NewFromInt(10)}
	onion := &model.Product{ID: uuid.New(), Title: "Onions", CreatedBy: farmerA, SellingPrice: decimal.NewFromInt(4)}
	rice := &model.Product{ID: uuid.New(), Title: "Rice", CreatedBy: farmerB, SellingPrice: decimal.NewFromInt(50)}

	order := &model.Order{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		Items: []model.OrderItem{
			{ProductID: tomato.ID, Quantity: 2},
			{ProductID: rice.ID, Quantity: 1},
			{ProductID: onion.ID, Quantity: 3},
		},
	}

	f := &workerFixture{
		keys:    &fakeKeys{keys: make(map[string]bool)},
		notices: &fakeNotices{},
		order:   order,
		farmerA: farmerA,
		farmerB: farmerB,
		products: &fakeProducts{products: map[uuid.UUID]*model.Product{
			tomato.ID: tomato, onion.ID: onion, rice.ID: rice,
		}},
	}
	orders := &fakeOrders{orders: map[uuid.UUID]*model.Order{order.ID: order}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.worker = NewOrderWorker(nil, orders, f.products, f.notices, f.keys, log)
	return f
}

func (f *workerFixture) delivery(t *testing.T, ack *fakeAck, orderID uuid.UUID) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(model.OrderPlacedMessage{OrderID: orderID, CustomerID: f.order.CustomerID})
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestOrderWorker_PostsOneNoticePerFarmer(t *testing.T) {
	f := newWorkerFixture()
	ack := &fakeAck{}

	f.worker.processMessage(context.Background(), f.delivery(t, ack, f.order.ID))

	assert.Equal(t, 1, ack.acked)
	require.Len(t, f.notices.posted, 2)

	first := f.notices.posted[0]
	assert.Equal(t, f.farmerA, first.farmerID)
	assert.Equal(t, f.order.CustomerID, first.customerID)
	assert.Contains(t, first.content, "2 x Tomatoes, 3 x Onions")
	assert.Contains(t, first.content, "subtotal 32.00")

	second := f.notices.posted[1]
	assert.Equal(t, f.farmerB, second.farmerID)
	assert.Contains(t, second.content, "1 x Rice")
}

func TestOrderWorker_DuplicateDeliveryIsAcked(t *testing.T) {
	f := newWorkerFixture()

	f.worker.processMessage(context.Background(), f.delivery(t, &fakeAck{}, f.order.ID))
	ack := &fakeAck{}
	f.worker.processMessage(context.Background(), f.delivery(t, ack, f.order.ID))

	assert.Equal(t, 1, ack.acked)
	assert.Len(t, f.notices.posted, 2)
}

func TestOrderWorker_SkipsDeletedProducts(t *testing.T) {
	f := newWorkerFixture()
	for id, p := range f.products.products {
		if p.CreatedBy == f.farmerB {
			delete(f.products.products, id)
		}
	}

	f.worker.processMessage(context.Background(), f.delivery(t, &fakeAck{}, f.order.ID))
	require.Len(t, f.notices.posted, 1)
	assert.Equal(t, f.farmerA, f.notices.posted[0].farmerID)
}

func TestOrderWorker_FailureReleasesKeyAndDeadLetters(t *testing.T) {
	f := newWorkerFixture()
	f.notices.err = errors.New("mongo down")
	ack := &fakeAck{}

	f.worker.processMessage(context.Background(), f.delivery(t, ack, f.order.ID))

	assert.Equal(t, 1, ack.nacked)
	assert.Equal(t, 0, ack.requeued)
	assert.Empty(t, f.keys.keys)
}

func TestOrderWorker_UnknownOrder(t *testing.T) {
	f := newWorkerFixture()
	ack := &fakeAck{}

	f.worker.processMessage(context.Background(), f.delivery(t, ack, uuid.New()))
	assert.Equal(t, 1, ack.nacked)
	assert.Empty(t, f.notices.posted)
}

func TestOrderWorker_RedisErrorRequeues(t *testing.T) {
	f := newWorkerFixture()
	f.keys.setErr = errors.New("connection refused")
	ack := &fakeAck{}

	f.worker.processMessage(context.Background(), f.delivery(t, ack, f.order.ID))
	assert.Equal(t, 1, ack.requeued)
	assert.Empty(t, f.notices.posted)
}

func TestOrderWorker_MalformedBody(t *testing.T) {
	f := newWorkerFixture()
	ack := &fakeAck{}

	f.worker.processMessage(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{")})
	assert.Equal(t, 1, ack.nacked)
	assert.Equal(t, 0, ack.requeued)
}
