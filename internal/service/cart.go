package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/farm-market-api/internal/dto"
	"github.com/flicky/farm-market-api/internal/model"
	"github.com/flicky/farm-market-api/internal/repository"
)

type CartService struct {
	tx          repository.Transactor
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(tx repository.Transactor, cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{tx: tx, cartRepo: cartRepo, productRepo: productRepo}
}

// Add puts one unit of productID in the customer's cart, creating the cart
// on first use and merging with an existing line for the same product.
func (s *CartService) Add(ctx context.Context, customerID, productID uuid.UUID) error {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cart, err := s.cartRepo.LockOrCreate(ctx, customerID)
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}
		return s.cartRepo.IncrementItem(ctx, cart.ID, productID, 1)
	})
}

// Remove drops the line for productID. A missing cart or line is a no-op.
func (s *CartService) Remove(ctx context.Context, customerID, productID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cart, err := s.cartRepo.Find(ctx, customerID, true)
		if err != nil {
			return fmt.Errorf("get cart: %w", err)
		}
		if cart == nil {
			return nil
		}
		return s.cartRepo.RemoveItem(ctx, cart.ID, productID)
	})
}

// View resolves every line against the live catalog.
func (s *CartService) View(ctx context.Context, customerID uuid.UUID) (*dto.CartResponse, error) {
	cart, err := s.cartRepo.Find(ctx, customerID, false)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	resp := &dto.CartResponse{Items: []dto.CartItemResponse{}, Subtotal: decimal.Zero}
	if cart == nil || len(cart.Items) == 0 {
		return resp, nil
	}

	products, err := s.productRepo.GetByIDs(ctx, productIDs(cart.Items))
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}

	for _, item := range cart.Items {
		line := dto.CartItemResponse{ProductID: item.ProductID, Quantity: item.Quantity, LineTotal: decimal.Zero}
		if p, ok := products[item.ProductID]; ok {
			pr := ToProductResponse(p)
			line.Product = &pr
			line.Available = true
			line.LineTotal = lineTotal(p, item.Quantity)
			resp.Subtotal = resp.Subtotal.Add(line.LineTotal)
		}
		resp.Items = append(resp.Items, line)
	}
	return resp, nil
}

func productIDs(items []model.CartItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func lineTotal(p *model.Product, quantity int) decimal.Decimal {
	return p.SellingPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
