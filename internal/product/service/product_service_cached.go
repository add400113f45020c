package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mzholdas/order-saga/internal/product/domain"
	"github.com/redis/go-redis/v9"
)

// cachedProductService caches reads in Redis and invalidates on any write
// that touches the cached product.
type cachedProductService struct {
	next        ProductService
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewCachedProductService(next ProductService, redisClient *redis.Client) ProductService {
	return &cachedProductService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    10 * time.Minute,
	}
}

func (s *cachedProductService) key(id string) string {
	return fmt.Sprintf("product:%s", id)
}

func (s *cachedProductService) Create(ctx context.Context, req *CreateProductRequest) (*domain.Product, error) {
	return s.next.Create(ctx, req)
}

func (s *cachedProductService) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	val, err := s.redisClient.Get(ctx, s.key(id)).Result()
	if err == nil {
		var product domain.Product
		if err := json.Unmarshal([]byte(val), &product); err == nil {
			return &product, nil
		}
	}

	product, err := s.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		s.redisClient.Set(ctx, s.key(id), data, s.cacheTTL)
	}

	return product, nil
}

func (s *cachedProductService) List(ctx context.Context, limit, offset int64) ([]domain.Product, error) {
	return s.next.List(ctx, limit, offset)
}

func (s *cachedProductService) UpdatePrice(ctx context.Context, id string, price int64) error {
	if err := s.next.UpdatePrice(ctx, id, price); err != nil {
		return err
	}

	s.redisClient.Del(ctx, s.key(id))
	return nil
}

func (s *cachedProductService) Deactivate(ctx context.Context, id string) error {
	if err := s.next.Deactivate(ctx, id); err != nil {
		return err
	}

	s.redisClient.Del(ctx, s.key(id))
	return nil
}
