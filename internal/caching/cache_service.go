package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"vitrina/internal/models"

	"github.com/redis/go-redis/v9"
)

type CacheService interface {
	// Catalog snapshot caching
	GetCatalog(ctx context.Context, accountKey string) ([]*models.Product, error)
	SetCatalog(ctx context.Context, accountKey string, products []*models.Product, ttl time.Duration) error
	DeleteCatalog(ctx context.Context, accountKey string) error

	// Wizard session snapshots
	GetSession(ctx context.Context, sessionID string) (*models.SessionContext, error)
	SetSession(ctx context.Context, sessionID string, session *models.SessionContext, ttl time.Duration) error
	DeleteSession(ctx context.Context, sessionID string) error

	// Generic string operations
	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	// Accept redis://host:port as well as bare host:port
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func (r *redisCacheService) GetCatalog(ctx context.Context, accountKey string) ([]*models.Product, error) {
	key := fmt.Sprintf("vitrina:catalog:%s", accountKey)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var products []*models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *redisCacheService) SetCatalog(ctx context.Context, accountKey string, products []*models.Product, ttl time.Duration) error {
	key := fmt.Sprintf("vitrina:catalog:%s", accountKey)
	data, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) DeleteCatalog(ctx context.Context, accountKey string) error {
	key := fmt.Sprintf("vitrina:catalog:%s", accountKey)
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) GetSession(ctx context.Context, sessionID string) (*models.SessionContext, error) {
	key := fmt.Sprintf("vitrina:session:%s", sessionID)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // not found
		}
		return nil, err
	}

	var session models.SessionContext
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *redisCacheService) SetSession(ctx context.Context, sessionID string, session *models.SessionContext, ttl time.Duration) error {
	key := fmt.Sprintf("vitrina:session:%s", sessionID)
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) DeleteSession(ctx context.Context, sessionID string) error {
	key := fmt.Sprintf("vitrina:session:%s", sessionID)
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // cache miss
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
