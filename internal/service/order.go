package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/farm-market-api/internal/model"
	"github.com/flicky/farm-market-api/internal/repository"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductUnavailable = errors.New("none of the products in the cart are available")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAccessDenied  = errors.New("access denied")
)

// OrderEvents receives a notification after an order is committed.
type OrderEvents interface {
	OrderPlaced(ctx context.Context, msg model.OrderPlacedMessage) error
}

type CheckoutResult struct {
	Order *model.Order
	// Skipped lists cart lines whose product no longer exists; they are not
	// part of the order or its total.
	Skipped []uuid.UUID
}

type OrderService struct {
	tx          repository.Transactor
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	events      OrderEvents
	log         *slog.Logger
}

func NewOrderService(
	tx repository.Transactor,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	events OrderEvents,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		tx:          tx,
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		events:      events,
		log:         log,
	}
}

// Checkout turns the customer's cart into an order priced at current selling
// prices and deletes the cart. Both writes commit together or not at all,
// and the cart row stays locked so no concurrent add can slip in between.
func (s *OrderService) Checkout(ctx context.Context, customerID uuid.UUID) (*CheckoutResult, error) {
	var result CheckoutResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cart, err := s.cartRepo.Find(ctx, customerID, true)
		if err != nil {
			return fmt.Errorf("get cart: %w", err)
		}
		if cart == nil || len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		products, err := s.productRepo.GetByIDs(ctx, productIDs(cart.Items))
		if err != nil {
			return fmt.Errorf("resolve products: %w", err)
		}

		order := &model.Order{CustomerID: customerID, TotalAmount: decimal.Zero}
		var skipped []uuid.UUID
		for _, item := range cart.Items {
			product, ok := products[item.ProductID]
			if !ok {
				skipped = append(skipped, item.ProductID)
				continue
			}
			order.TotalAmount = order.TotalAmount.Add(lineTotal(product, item.Quantity))
			order.Items = append(order.Items, model.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		if len(order.Items) == 0 {
			return ErrProductUnavailable
		}

		if err := s.orderRepo.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := s.cartRepo.Delete(ctx, cart.ID); err != nil {
			return fmt.Errorf("delete cart: %w", err)
		}

		result = CheckoutResult{Order: order, Skipped: skipped}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := s.log.With("order_id", result.Order.ID, "customer_id", customerID)
	if len(result.Skipped) > 0 {
		log.Warn("checkout skipped unavailable products", "product_ids", result.Skipped)
	}
	if s.events != nil {
		msg := model.OrderPlacedMessage{OrderID: result.Order.ID, CustomerID: customerID}
		if err := s.events.OrderPlaced(ctx, msg); err != nil {
			log.Error("publish order placed", "error", err)
		}
	}
	return &result, nil
}

func (s *OrderService) GetByID(ctx context.Context, orderID, customerID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.CustomerID != customerID {
		return nil, ErrOrderAccessDenied
	}
	return order, nil
}

func (s *OrderService) ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
