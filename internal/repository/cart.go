package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/farm-market-api/internal/model"
)

// CartRepository stores at most one cart per customer. The locking methods
// must run inside Transactor.WithinTx; outside a transaction the row lock is
// released as soon as the statement finishes.
type CartRepository interface {
	// LockOrCreate returns the customer's cart row locked for update,
	// creating an empty cart first if none exists. Items are not loaded.
	LockOrCreate(ctx context.Context, customerID uuid.UUID) (*model.Cart, error)
	// Find returns the cart with its items, or nil if the customer has none.
	// With forUpdate the cart row is locked until the transaction ends.
	Find(ctx context.Context, customerID uuid.UUID, forUpdate bool) (*model.Cart, error)
	IncrementItem(ctx context.Context, cartID, productID uuid.UUID, delta int) error
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error
	Delete(ctx context.Context, cartID uuid.UUID) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

func (r *pgCartRepo) LockOrCreate(ctx context.Context, customerID uuid.UUID) (*model.Cart, error) {
	q := conn(ctx, r.pool)
	_, err := q.Exec(ctx,
		`INSERT INTO carts (id, customer_id, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())
		 ON CONFLICT (customer_id) DO NOTHING`,
		uuid.New(), customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	cart := &model.Cart{}
	err = q.QueryRow(ctx,
		`SELECT id, customer_id, created_at, updated_at FROM carts WHERE customer_id = $1 FOR UPDATE`, customerID,
	).Scan(&cart.ID, &cart.CustomerID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("lock cart: %w", err)
	}
	return cart, nil
}

func (r *pgCartRepo) Find(ctx context.Context, customerID uuid.UUID, forUpdate bool) (*model.Cart, error) {
	q := conn(ctx, r.pool)
	query := `SELECT id, customer_id, created_at, updated_at FROM carts WHERE customer_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	cart := &model.Cart{}
	err := q.QueryRow(ctx, query, customerID).Scan(&cart.ID, &cart.CustomerID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := q.Query(ctx,
		`SELECT product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY added_at, product_id`, cart.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	return cart, nil
}

// IncrementItem adds delta to the line for productID, creating it when absent.
func (r *pgCartRepo) IncrementItem(ctx context.Context, cartID, productID uuid.UUID, delta int) error {
	q := conn(ctx, r.pool)
	_, err := q.Exec(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity, added_at) VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		cartID, productID, delta,
	)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	if _, err := q.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

func (r *pgCartRepo) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	q := conn(ctx, r.pool)
	ct, err := q.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if ct.RowsAffected() > 0 {
		if _, err := q.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
			return fmt.Errorf("touch cart: %w", err)
		}
	}
	return nil
}

func (r *pgCartRepo) Delete(ctx context.Context, cartID uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
