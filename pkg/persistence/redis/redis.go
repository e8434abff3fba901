// Package redis provides a Redis persistence for workflows and playbooks.
//
// Every record is a JSON document under its own key. Sorted sets scored by
// creation time index the records per kind so listings come back newest first.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/playbook/pkg/models"
	"github.com/dukex/playbook/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "playbook"
	maxTxRetries     = 10
)

// Persistence implements the persistence layer on top of Redis.
type Persistence struct {
	client       *redis.Client
	logger       *slog.Logger
	workflowRepo *WorkflowRepository
}

// NewPersistence connects to the server described by a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return &Persistence{
		client:       client,
		logger:       logger,
		workflowRepo: NewWorkflowRepository(client, logger, defaultKeyPrefix),
	}, nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	return nil
}

// Close closes the client connection pool.
func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	return nil
}

// WorkflowRepository handles workflow-related Redis operations.
type WorkflowRepository struct {
	client redis.UniversalClient
	logger *slog.Logger
	prefix string
}

// NewWorkflowRepository creates a repository storing keys under prefix.
func NewWorkflowRepository(client redis.UniversalClient, logger *slog.Logger, prefix string) *WorkflowRepository {
	return &WorkflowRepository{client: client, logger: logger, prefix: prefix}
}

func (r *WorkflowRepository) recordKey(id string) string {
	return r.prefix + ":record:" + id
}

func (r *WorkflowRepository) indexKey(kind models.Kind) string {
	if kind == "" {
		return r.prefix + ":index:all"
	}

	return r.prefix + ":index:" + string(kind)
}

// Save stores the document and moves its id into the index of its kind.
func (r *WorkflowRepository) Save(ctx context.Context, record *models.Record) error {
	data, err := encode(record)
	if err != nil {
		return persistence.NewWorkflowError("Save", record.ID, err)
	}

	member := redis.Z{Score: score(record.CreatedAt), Member: record.ID}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.recordKey(record.ID), data, 0)
		pipe.ZRem(ctx, r.indexKey(models.KindWorkflow), record.ID)
		pipe.ZRem(ctx, r.indexKey(models.KindPlaybook), record.ID)
		pipe.ZAdd(ctx, r.indexKey(record.Kind()), member)
		pipe.ZAdd(ctx, r.indexKey(""), member)

		return nil
	})
	if err != nil {
		return persistence.NewWorkflowError("Save", record.ID, fmt.Errorf("failed to save workflow: %w", err))
	}

	return nil
}

// GetByID returns the record with the given id, or nil when there is none.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Record, error) {
	data, err := r.client.Get(ctx, r.recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, persistence.NewWorkflowError("GetByID", id, fmt.Errorf("failed to fetch workflow: %w", err))
	}

	record, err := decode(data)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return record, nil
}

// List reads the kind index newest first and loads the documents in one round trip.
func (r *WorkflowRepository) List(ctx context.Context, opts persistence.ListOptions) ([]*models.Record, error) {
	ids, err := r.client.ZRevRange(ctx, r.indexKey(opts.Kind), 0, -1).Result()
	if err != nil {
		return nil, persistence.NewWorkflowError("List", "", fmt.Errorf("failed to read index: %w", err))
	}

	records := make([]*models.Record, 0, len(ids))

	if len(ids) == 0 {
		return records, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.recordKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, persistence.NewWorkflowError("List", "", fmt.Errorf("failed to fetch workflows: %w", err))
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// index entry without a document, left behind by an interrupted delete
			r.logger.WarnContext(ctx, "Skipping dangling index entry", "workflow_id", ids[i])

			continue
		}

		record, err := decode([]byte(raw))
		if err != nil {
			return nil, persistence.NewWorkflowError("List", ids[i], err)
		}

		if opts.Matches(record) {
			records = append(records, record)
		}
	}

	return records, nil
}

// Update applies the patch inside a WATCH transaction, so a concurrent
// delete or status change is never overwritten with a stale copy.
func (r *WorkflowRepository) Update(
	ctx context.Context,
	id string,
	patch models.Patch,
	updatedAt time.Time,
) (*models.Record, error) {
	key := r.recordKey(id)

	var updated *models.Record

	update := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return persistence.ErrWorkflowNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to fetch workflow: %w", err)
		}

		record, err := decode(data)
		if err != nil {
			return err
		}

		record.Apply(patch)
		record.UpdatedAt = updatedAt.UTC()

		encoded, err := encode(record)
		if err != nil {
			return err
		}

		member := redis.Z{Score: score(record.CreatedAt), Member: id}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			pipe.ZRem(ctx, r.indexKey(models.KindWorkflow), id)
			pipe.ZRem(ctx, r.indexKey(models.KindPlaybook), id)
			pipe.ZAdd(ctx, r.indexKey(record.Kind()), member)

			return nil
		})
		if err != nil {
			return err
		}

		updated = record

		return nil
	}

	for range maxTxRetries {
		err := r.client.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, persistence.NewWorkflowError("Update", id, err)
		}

		return updated, nil
	}

	return nil, persistence.NewWorkflowError("Update", id, redis.TxFailedErr)
}

// UpdateStatus rewrites only the running flag and timestamp, retrying when
// another writer touches the document in between.
func (r *WorkflowRepository) UpdateStatus(ctx context.Context, id string, running bool, updatedAt time.Time) error {
	key := r.recordKey(id)

	update := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return persistence.ErrWorkflowNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to fetch workflow: %w", err)
		}

		record, err := decode(data)
		if err != nil {
			return err
		}

		record.IsRunning = running
		record.UpdatedAt = updatedAt.UTC()

		updated, err := encode(record)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)

			return nil
		})

		return err
	}

	for range maxTxRetries {
		err := r.client.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return persistence.NewWorkflowError("UpdateStatus", id, err)
		}

		return nil
	}

	return persistence.NewWorkflowError("UpdateStatus", id, redis.TxFailedErr)
}

// Delete removes the document and its index entries.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	var deleted *redis.IntCmd

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, r.recordKey(id))
		pipe.ZRem(ctx, r.indexKey(models.KindWorkflow), id)
		pipe.ZRem(ctx, r.indexKey(models.KindPlaybook), id)
		pipe.ZRem(ctx, r.indexKey(""), id)

		return nil
	})
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, fmt.Errorf("failed to delete workflow: %w", err))
	}

	if deleted.Val() == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

func encode(record *models.Record) ([]byte, error) {
	data, err := record.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow: %w", err)
	}

	return data, nil
}

func decode(data []byte) (*models.Record, error) {
	var record models.Record

	err := record.UnmarshalJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
	}

	if record.Steps == nil {
		record.Steps = make([]models.Step, 0)
	}

	return &record, nil
}
