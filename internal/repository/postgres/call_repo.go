package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/repository"
)

type CallRepo struct {
	pool *pgxpool.Pool
}

func NewCallRepo(pool *pgxpool.Pool) *CallRepo {
	return &CallRepo{pool: pool}
}

const callColumns = `id, conversation_id, caller_id, type, active, ended, answered, declined, cancelled, created_at, updated_at`

func scanCall(row pgx.Row) (*domain.Call, error) {
	var c domain.Call
	err := row.Scan(&c.ID, &c.ConversationID, &c.CallerID, &c.Type,
		&c.Active, &c.Ended, &c.Answered, &c.Declined, &c.Cancelled,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create relies on idx_calls_one_open to refuse a second open call.
func (r *CallRepo) Create(ctx context.Context, c *domain.Call) error {
	query := `
		INSERT INTO calls (` + callColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.pool.Exec(ctx, query, c.ID, c.ConversationID, c.CallerID, c.Type,
		c.Active, c.Ended, c.Answered, c.Declined, c.Cancelled, c.CreatedAt, c.UpdatedAt)
	return translate(err)
}

func (r *CallRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Call, error) {
	return scanCall(r.pool.QueryRow(ctx, `SELECT `+callColumns+` FROM calls WHERE id = $1`, id))
}

func (r *CallRepo) GetOpenByConversation(ctx context.Context, conversationID uuid.UUID) (*domain.Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls
		WHERE conversation_id = $1 AND NOT ended AND NOT declined AND NOT cancelled`
	return scanCall(r.pool.QueryRow(ctx, query, conversationID))
}

func (r *CallRepo) Update(ctx context.Context, c *domain.Call, prevUpdatedAt time.Time) error {
	query := `
		UPDATE calls
		SET active = $1, ended = $2, answered = $3, declined = $4, cancelled = $5, updated_at = $6
		WHERE id = $7 AND updated_at = $8`
	tag, err := r.pool.Exec(ctx, query, c.Active, c.Ended, c.Answered, c.Declined, c.Cancelled,
		c.UpdatedAt, c.ID, prevUpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrStale
	}
	return nil
}
