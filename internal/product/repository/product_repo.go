package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mzholdas/order-saga/internal/product/domain"
	"github.com/mzholdas/order-saga/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindBySKU(ctx context.Context, sku string) (*domain.Product, error)
	List(ctx context.Context, limit, offset int64) ([]domain.Product, error)
	UpdatePrice(ctx context.Context, id string, price int64) error
	Deactivate(ctx context.Context, id string) error

	// ReserveStock and ReleaseStock run inside the caller's transaction so
	// the stock mutation commits together with the outbox event and the
	// dedup marker.
	ReserveStock(ctx context.Context, tx pgx.Tx, sku string, quantity int32) error
	ReleaseStock(ctx context.Context, tx pgx.Tx, sku string, quantity int32) error
}

type productRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewProductRepository(pool *pgxpool.Pool, logger *zap.Logger) ProductRepository {
	return &productRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("product_repository"),
	}
}

func (r *productRepo) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("sku", product.SKU),
	)

	query := `
		INSERT INTO products (id, sku, name, description, price, stock_quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		product.ID,
		product.SKU,
		product.Name,
		product.Description,
		product.Price,
		product.StockQuantity,
		string(product.Status),
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateSKU
		}

		span.RecordError(err)

		return fmt.Errorf("failed to insert product: %w", err)
	}

	return nil
}

func (r *productRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByID")
	defer span.End()

	return r.findOne(ctx, "id", id)
}

func (r *productRepo) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindBySKU")
	defer span.End()

	return r.findOne(ctx, "sku", sku)
}

func (r *productRepo) findOne(ctx context.Context, column, value string) (*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT id, sku, name, description, price, stock_quantity, status, created_at, updated_at
		FROM products
		WHERE %s = $1
	`, column)

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&p.ID,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.StockQuantity,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

func (r *productRepo) List(ctx context.Context, limit, offset int64) ([]domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.List")
	defer span.End()

	query := `
		SELECT id, sku, name, description, price, stock_quantity, status, created_at, updated_at
		FROM products
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.SKU,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.StockQuantity,
			&p.Status,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning product: %w", err)
		}

		result = append(result, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

func (r *productRepo) UpdatePrice(ctx context.Context, id string, price int64) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.UpdatePrice")
	defer span.End()

	query := `
		UPDATE products
		SET price = $1, updated_at = NOW()
		WHERE id = $2
	`

	commandTag, err := r.pool.Exec(ctx, query, price, id)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to update price: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (r *productRepo) Deactivate(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Deactivate")
	defer span.End()

	query := `
		UPDATE products
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	commandTag, err := r.pool.Exec(ctx, query, string(domain.ProductStatusInactive), id)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to deactivate product: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

// ReserveStock decrements conditionally: the WHERE clause refuses to drive
// stock below zero, so concurrent reservations cannot oversell.
func (r *productRepo) ReserveStock(ctx context.Context, tx pgx.Tx, sku string, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.ReserveStock")
	defer span.End()

	span.SetAttributes(
		attribute.String("sku", sku),
		attribute.Int("quantity", int(quantity)),
	)

	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $1, updated_at = NOW()
		WHERE sku = $2 AND stock_quantity >= $1
	`

	commandTag, err := tx.Exec(ctx, query, quantity, sku)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)`, sku).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check product existence: %w", err)
		}

		if !exists {
			return ErrProductNotFound
		}

		logging.Warn(
			ctx,
			r.logger,
			"Reservation rejected, insufficient stock",
			zap.String("sku", sku),
			zap.Int32("quantity", quantity),
		)

		return ErrInsufficientStock
	}

	return nil
}

func (r *productRepo) ReleaseStock(ctx context.Context, tx pgx.Tx, sku string, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.ReleaseStock")
	defer span.End()

	span.SetAttributes(
		attribute.String("sku", sku),
		attribute.Int("quantity", int(quantity)),
	)

	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		WHERE sku = $2
	`

	commandTag, err := tx.Exec(ctx, query, quantity, sku)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to release stock: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}
