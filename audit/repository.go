package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository appends to and reads the audit log.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record appends one entry. Metadata is stored as jsonb.
func (r *Repository) Record(ctx context.Context, entry Entry) error {
	if entry.EntityID == "" || entry.Action == "" {
		return fmt.Errorf("audit: entity id and action required")
	}

	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("audit: marshal metadata: %w", err)
	}

	const insertSQL = `
		INSERT INTO audit_logs (id, entity_type, entity_id, action, actor_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.pool.Exec(ctx, insertSQL,
		entry.ID,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		entry.ActorID,
		payload,
	); err != nil {
		return fmt.Errorf("audit: insert entry: %w", err)
	}

	return nil
}

// ListForEntity returns the newest entries for one entity, for the manager
// console.
func (r *Repository) ListForEntity(ctx context.Context, entityType, entityID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	const selectSQL = `
		SELECT id, entity_type, entity_id, action, actor_id, metadata, created_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, selectSQL, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			entry   Entry
			payload []byte
		)
		if err := rows.Scan(&entry.ID, &entry.EntityType, &entry.EntityID, &entry.Action, &entry.ActorID, &payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("audit: decode metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate entries: %w", err)
	}

	return entries, nil
}
