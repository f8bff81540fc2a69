package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/farm-market-api/internal/dto"
	"github.com/flicky/farm-market-api/internal/model"
	"github.com/flicky/farm-market-api/internal/repository"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrNotProductOwner = errors.New("product belongs to another farmer")
	ErrInvalidPrice    = errors.New("selling price must be positive and market price not negative")
)

const productCacheTTL = 60 * time.Second

type ProductService struct {
	productRepo repository.ProductRepository
	redisClient *redis.Client
}

func NewProductService(productRepo repository.ProductRepository, redisClient *redis.Client) *ProductService {
	return &ProductService{productRepo: productRepo, redisClient: redisClient}
}

func (s *ProductService) Create(ctx context.Context, farmerID uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error) {
	req, err := normalizePrices(req)
	if err != nil {
		return nil, err
	}
	product := &model.Product{CreatedBy: farmerID}
	applyProductRequest(product, req)
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	cacheKey := productCacheKey(id)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	resp := ToProductResponse(product)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}

	return &resp, nil
}

func (s *ProductService) List(ctx context.Context) (*dto.ProductListResponse, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, ToProductResponse(&products[i]))
	}
	return &dto.ProductListResponse{Products: items, Total: len(items)}, nil
}

// Update replaces the editable fields of a product owned by farmerID.
func (s *ProductService) Update(ctx context.Context, farmerID, id uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error) {
	req, err := normalizePrices(req)
	if err != nil {
		return nil, err
	}
	product, err := s.ownedProduct(ctx, farmerID, id)
	if err != nil {
		return nil, err
	}

	applyProductRequest(product, req)
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateCache(ctx, id)
	resp := ToProductResponse(product)
	return &resp, nil
}

func (s *ProductService) Delete(ctx context.Context, farmerID, id uuid.UUID) error {
	if _, err := s.ownedProduct(ctx, farmerID, id); err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidateCache(ctx, id)
	return nil
}

func (s *ProductService) ownedProduct(ctx context.Context, farmerID, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if product.CreatedBy != farmerID {
		return nil, ErrNotProductOwner
	}
	return product, nil
}

func (s *ProductService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, productCacheKey(id))
	}
}

func productCacheKey(id uuid.UUID) string {
	return "product:" + id.String()
}

// normalizePrices rounds prices to the stored scale of two decimals. A selling
// price that rounds to zero is rejected, since checkout totals it as given.
func normalizePrices(req dto.ProductRequest) (dto.ProductRequest, error) {
	req.SellingPrice = req.SellingPrice.Round(2)
	req.CurrentMarketPrice = req.CurrentMarketPrice.Round(2)
	if !req.SellingPrice.IsPositive() || req.CurrentMarketPrice.IsNegative() {
		return req, ErrInvalidPrice
	}
	return req, nil
}

func applyProductRequest(p *model.Product, req dto.ProductRequest) {
	p.Title = req.Title
	p.Description = req.Description
	p.ImageURL = req.ImageURL
	p.CurrentMarketPrice = req.CurrentMarketPrice
	p.SellingPrice = req.SellingPrice
}

func ToProductResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:                 p.ID,
		Title:              p.Title,
		Description:        p.Description,
		ImageURL:           p.ImageURL,
		CurrentMarketPrice: p.CurrentMarketPrice,
		SellingPrice:       p.SellingPrice,
		CreatedBy:          p.CreatedBy,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}
