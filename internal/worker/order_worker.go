package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/flicky/farm-market-api/internal/model"
	"github.com/flicky/farm-market-api/internal/repository"
)

const (
	orderQueueName = "orders"
	dlxExchange    = "orders.dlx"
	dlqQueueName   = "orders.dlq"
	idempotencyTTL = 24 * time.Hour
)

// IdempotencyStore is the subset of the Redis client used to claim an order
// before it is processed.
type IdempotencyStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// OrderNoticePoster appends order-kind messages to customer/farmer chats.
type OrderNoticePoster interface {
	PostOrderNotice(ctx context.Context, customerID, farmerID uuid.UUID, content string) (*model.Message, error)
}

// OrderWorker tells each farmer about newly placed orders containing their
// products by posting a notice into the farmer/customer chat.
type OrderWorker struct {
	channel     *amqp.Channel
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	notices     OrderNoticePoster
	keys        IdempotencyStore
	log         *slog.Logger
	done        chan struct{}
}

func NewOrderWorker(
	ch *amqp.Channel,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	notices OrderNoticePoster,
	keys IdempotencyStore,
	log *slog.Logger,
) *OrderWorker {
	return &OrderWorker{
		channel:     ch,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		notices:     notices,
		keys:        keys,
		log:         log,
		done:        make(chan struct{}),
	}
}

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, orderQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(orderQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": orderQueueName,
	}); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *OrderWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(orderQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("order worker started")
	return nil
}

func (w *OrderWorker) Stop() { close(w.done) }

func (w *OrderWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var placed model.OrderPlacedMessage
	if err := json.Unmarshal(msg.Body, &placed); err != nil {
		w.log.Error("unmarshal order message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", placed.OrderID, "customer_id", placed.CustomerID)

	key := "order_notified:" + placed.OrderID.String()
	claimed, err := w.keys.SetNX(ctx, key, "1", idempotencyTTL).Result()
	if err != nil {
		log.Error("claim idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if !claimed {
		log.Info("order already processed, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.notifyFarmers(ctx, placed.OrderID); err != nil {
		log.Error("process order failed", "error", err)
		if err := w.keys.Del(ctx, key).Err(); err != nil {
			log.Error("release idempotency key", "error", err)
		}
		_ = msg.Nack(false, false) // → DLQ
		return
	}

	_ = msg.Ack(false)
	log.Info("order processed successfully")
}

type farmerLines struct {
	farmerID uuid.UUID
	lines    []string
	subtotal decimal.Decimal
}

func (w *OrderWorker) notifyFarmers(ctx context.Context, orderID uuid.UUID) error {
	order, err := w.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("order not found: %s", orderID)
	}

	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := w.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve products: %w", err)
	}

	// Products deleted since checkout can no longer be attributed to a farmer.
	var groups []*farmerLines
	byFarmer := make(map[uuid.UUID]*farmerLines)
	for _, item := range order.Items {
		p, ok := products[item.ProductID]
		if !ok {
			continue
		}
		g, ok := byFarmer[p.CreatedBy]
		if !ok {
			g = &farmerLines{farmerID: p.CreatedBy, subtotal: decimal.Zero}
			byFarmer[p.CreatedBy] = g
			groups = append(groups, g)
		}
		g.lines = append(g.lines, fmt.Sprintf("%d x %s", item.Quantity, p.Title))
		g.subtotal = g.subtotal.Add(p.SellingPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	for _, g := range groups {
		content := fmt.Sprintf("Order %s placed: %s (subtotal %s)",
			shortID(order.ID), strings.Join(g.lines, ", "), g.subtotal.StringFixed(2))
		if _, err := w.notices.PostOrderNotice(ctx, order.CustomerID, g.farmerID, content); err != nil {
			return fmt.Errorf("post notice to farmer %s: %w", g.farmerID, err)
		}
	}
	return nil
}

func shortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}
