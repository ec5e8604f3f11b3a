package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/chord/internal/domain"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	query := `
		INSERT INTO conversations (id, server_id, member_one_id, member_two_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, conv.ID, conv.ServerID, conv.MemberOneID, conv.MemberTwoID, conv.CreatedAt)
	return translate(err)
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, server_id, member_one_id, member_two_id, created_at
		FROM conversations
		WHERE id = $1`
	return scanConversation(r.pool.QueryRow(ctx, query, id))
}

func (r *ConversationRepo) GetByMembers(ctx context.Context, memberOneID, memberTwoID uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, server_id, member_one_id, member_two_id, created_at
		FROM conversations
		WHERE member_one_id = $1 AND member_two_id = $2`
	return scanConversation(r.pool.QueryRow(ctx, query, memberOneID, memberTwoID))
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := row.Scan(&conv.ID, &conv.ServerID, &conv.MemberOneID, &conv.MemberTwoID, &conv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}
