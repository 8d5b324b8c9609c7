// Package search maintains the catalog search index for federated resources.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Indexer is the search surface the pipelines write to.
type Indexer interface {
	IndexApi(ctx context.Context, api models.FederatedApi) error
	IndexPage(ctx context.Context, page models.DocumentationPage) error
	RemoveApi(ctx context.Context, apiID string) error
	RemovePage(ctx context.Context, pageID string) error
}

// ApiDocument is the indexed projection of a federated API.
type ApiDocument struct {
	ID            string    `json:"id"`
	EnvironmentID string    `json:"environment_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Version       string    `json:"version"`
	Labels        []string  `json:"labels,omitempty"`
	Categories    []string  `json:"categories,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PageDocument is the indexed projection of a documentation page.
type PageDocument struct {
	ID          string    `json:"id"`
	ReferenceID string    `json:"reference_id"`
	Name        string    `json:"name"`
	Content     string    `json:"content"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RedisIndexer stores search documents as redis hash members keyed under a
// configurable keyspace.
type RedisIndexer struct {
	rdb      *redis.Client
	keyspace string
	logger   ectologger.Logger
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Keyspace string
}

// NewRedisIndexer creates a redis-backed indexer and verifies the connection.
func NewRedisIndexer(cfg RedisConfig, logger ectologger.Logger) (*RedisIndexer, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Infof("Connected to Redis at %s", addr)

	return &RedisIndexer{
		rdb:      rdb,
		keyspace: cfg.Keyspace,
		logger:   logger,
	}, nil
}

// Close closes the redis connection.
func (i *RedisIndexer) Close() error {
	return i.rdb.Close()
}

// Ping checks whether redis is reachable.
func (i *RedisIndexer) Ping(ctx context.Context) error {
	return i.rdb.Ping(ctx).Err()
}

func (i *RedisIndexer) apiKey() string {
	return i.keyspace + ":apis"
}

func (i *RedisIndexer) pageKey() string {
	return i.keyspace + ":pages"
}

// IndexApi writes the API's search document, replacing any prior version.
func (i *RedisIndexer) IndexApi(ctx context.Context, api models.FederatedApi) error {
	ctx, span := tracing.StartSpan(ctx, "RedisIndexer.IndexApi")
	defer span.End()

	doc := ApiDocument{
		ID:            api.ID,
		EnvironmentID: api.EnvironmentID,
		Name:          api.Name,
		Description:   api.Description,
		Version:       api.Version,
		Labels:        api.Labels,
		Categories:    api.Categories,
		UpdatedAt:     api.UpdatedAt,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal api document: %w", err)
	}

	if err := i.rdb.HSet(ctx, i.apiKey(), api.ID, data).Err(); err != nil {
		i.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"api_id": api.ID,
		}).Error("failed to index api")
		return err
	}

	return nil
}

// IndexPage writes the page's search document, replacing any prior version.
func (i *RedisIndexer) IndexPage(ctx context.Context, page models.DocumentationPage) error {
	ctx, span := tracing.StartSpan(ctx, "RedisIndexer.IndexPage")
	defer span.End()

	doc := PageDocument{
		ID:          page.ID,
		ReferenceID: page.ReferenceID,
		Name:        page.Name,
		Content:     page.Content,
		UpdatedAt:   page.UpdatedAt,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal page document: %w", err)
	}

	if err := i.rdb.HSet(ctx, i.pageKey(), page.ID, data).Err(); err != nil {
		i.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"page_id": page.ID,
		}).Error("failed to index page")
		return err
	}

	return nil
}

// RemoveApi drops the API's search document.
func (i *RedisIndexer) RemoveApi(ctx context.Context, apiID string) error {
	ctx, span := tracing.StartSpan(ctx, "RedisIndexer.RemoveApi")
	defer span.End()

	if err := i.rdb.HDel(ctx, i.apiKey(), apiID).Err(); err != nil {
		i.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"api_id": apiID,
		}).Error("failed to remove api from index")
		return err
	}

	return nil
}

// RemovePage drops the page's search document.
func (i *RedisIndexer) RemovePage(ctx context.Context, pageID string) error {
	ctx, span := tracing.StartSpan(ctx, "RedisIndexer.RemovePage")
	defer span.End()

	if err := i.rdb.HDel(ctx, i.pageKey(), pageID).Err(); err != nil {
		i.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"page_id": pageID,
		}).Error("failed to remove page from index")
		return err
	}

	return nil
}
