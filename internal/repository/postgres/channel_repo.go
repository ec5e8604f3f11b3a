package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/chord/internal/domain"
)

type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

func (r *ChannelRepo) Create(ctx context.Context, ch *domain.Channel) error {
	query := `
		INSERT INTO channels (id, server_id, profile_id, name, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, ch.ID, ch.ServerID, ch.ProfileID, ch.Name, ch.Type, ch.CreatedAt)
	return translate(err)
}

func (r *ChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	query := `SELECT id, server_id, profile_id, name, type, created_at FROM channels WHERE id = $1`
	var ch domain.Channel
	err := r.pool.QueryRow(ctx, query, id).Scan(&ch.ID, &ch.ServerID, &ch.ProfileID, &ch.Name, &ch.Type, &ch.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &ch, err
}

func (r *ChannelRepo) ListByServer(ctx context.Context, serverID uuid.UUID) ([]domain.Channel, error) {
	query := `SELECT id, server_id, profile_id, name, type, created_at
		FROM channels WHERE server_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.ServerID, &ch.ProfileID, &ch.Name, &ch.Type, &ch.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (r *ChannelRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	return err
}
