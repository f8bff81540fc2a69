package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/farm-market-api/internal/dto"
	"github.com/flicky/farm-market-api/internal/model"
)

type mockProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepo) put(farmerID uuid.UUID, price int64) *model.Product {
	p := &model.Product{
		ID: uuid.New(), Title: "Onions", CreatedBy: farmerID,
		SellingPrice: decimal.NewFromInt(price), CurrentMarketPrice: decimal.NewFromInt(price + 1),
	}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	out := make(map[uuid.UUID]*model.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *mockProductRepo) List(_ context.Context) ([]model.Product, error) {
	var all []model.Product
	for _, p := range m.products {
		all = append(all, *p)
	}
	return all, nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.products, id)
	return nil
}

func TestProductService_Create(t *testing.T) {
	repo := newMockProductRepo()
	svc := NewProductService(repo, nil)
	farmerID := uuid.New()

	resp, err := svc.Create(context.Background(), farmerID, dto.ProductRequest{
		Title: "Basmati rice", Description: "5kg bag", ImageURL: "/img/rice.png",
		CurrentMarketPrice: decimal.NewFromInt(600), SellingPrice: decimal.NewFromInt(550),
	})
	require.NoError(t, err)
	assert.Equal(t, "Basmati rice", resp.Title)
	assert.Equal(t, farmerID, resp.CreatedBy)
	assert.True(t, resp.SellingPrice.Equal(decimal.NewFromInt(550)))
	assert.Len(t, repo.products, 1)
}

func TestProductService_Create_NegativePrice(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)

	_, err := svc.Create(context.Background(), uuid.New(), dto.ProductRequest{
		Title: "Bad", SellingPrice: decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestProductService_Create_ZeroSellingPrice(t *testing.T) {
	repo := newMockProductRepo()
	svc := NewProductService(repo, nil)

	for _, price := range []decimal.Decimal{decimal.Zero, decimal.RequireFromString("0.004")} {
		_, err := svc.Create(context.Background(), uuid.New(), dto.ProductRequest{Title: "Free", SellingPrice: price})
		assert.ErrorIs(t, err, ErrInvalidPrice, price.String())
	}
	assert.Empty(t, repo.products)
}

func TestProductService_RoundsToStoredScale(t *testing.T) {
	repo := newMockProductRepo()
	farmerID := uuid.New()
	svc := NewProductService(repo, nil)

	resp, err := svc.Create(context.Background(), farmerID, dto.ProductRequest{
		Title:              "Chillies",
		SellingPrice:       decimal.RequireFromString("12.345"),
		CurrentMarketPrice: decimal.RequireFromString("14.999"),
	})
	require.NoError(t, err)
	assert.Equal(t, "12.35", resp.SellingPrice.StringFixed(2))
	assert.True(t, resp.SellingPrice.Equal(decimal.RequireFromString("12.35")))
	assert.True(t, resp.CurrentMarketPrice.Equal(decimal.NewFromInt(15)))
	assert.True(t, repo.products[resp.ID].SellingPrice.Equal(resp.SellingPrice))

	resp, err = svc.Update(context.Background(), farmerID, resp.ID, dto.ProductRequest{
		Title: "Chillies", SellingPrice: decimal.RequireFromString("9.991"),
	})
	require.NoError(t, err)
	assert.True(t, resp.SellingPrice.Equal(decimal.RequireFromString("9.99")))
}

func TestProductService_GetByID_NotFound(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)
	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_Update_Owner(t *testing.T) {
	repo := newMockProductRepo()
	farmerID := uuid.New()
	p := repo.put(farmerID, 20)
	svc := NewProductService(repo, nil)

	resp, err := svc.Update(context.Background(), farmerID, p.ID, dto.ProductRequest{
		Title: "Red onions", SellingPrice: decimal.NewFromInt(18), CurrentMarketPrice: decimal.NewFromInt(22),
	})
	require.NoError(t, err)
	assert.Equal(t, "Red onions", resp.Title)
	assert.True(t, repo.products[p.ID].SellingPrice.Equal(decimal.NewFromInt(18)))
}

func TestProductService_Update_NonOwnerLeavesProductUnchanged(t *testing.T) {
	repo := newMockProductRepo()
	p := repo.put(uuid.New(), 20)
	svc := NewProductService(repo, nil)

	_, err := svc.Update(context.Background(), uuid.New(), p.ID, dto.ProductRequest{
		Title: "Hijacked", SellingPrice: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, ErrNotProductOwner)
	assert.Equal(t, "Onions", repo.products[p.ID].Title)
	assert.True(t, repo.products[p.ID].SellingPrice.Equal(decimal.NewFromInt(20)))
}

func TestProductService_Update_NotFound(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)
	_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), dto.ProductRequest{
		Title: "x", SellingPrice: decimal.NewFromInt(5),
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_Delete(t *testing.T) {
	repo := newMockProductRepo()
	farmerID := uuid.New()
	p := repo.put(farmerID, 10)
	svc := NewProductService(repo, nil)

	require.NoError(t, svc.Delete(context.Background(), farmerID, p.ID))
	assert.Empty(t, repo.products)
}

func TestProductService_Delete_NonOwner(t *testing.T) {
	repo := newMockProductRepo()
	p := repo.put(uuid.New(), 10)
	svc := NewProductService(repo, nil)

	err := svc.Delete(context.Background(), uuid.New(), p.ID)
	assert.ErrorIs(t, err, ErrNotProductOwner)
	assert.Contains(t, repo.products, p.ID)
}

func TestProductService_List(t *testing.T) {
	repo := newMockProductRepo()
	repo.put(uuid.New(), 1)
	repo.put(uuid.New(), 2)
	svc := NewProductService(repo, nil)

	resp, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Products, 2)
}
