package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/chord/internal/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const messageColumns = `id, channel_id, conversation_id, member_id, content, file_url,
	COALESCE(client_id, ''), deleted, created_at, updated_at`

func scanMessage(row pgx.Row, msg *domain.Message) error {
	return row.Scan(
		&msg.ID, &msg.ChannelID, &msg.ConversationID, &msg.MemberID,
		&msg.ContentSealed, &msg.FileURLSealed, &msg.ClientID,
		&msg.Deleted, &msg.CreatedAt, &msg.UpdatedAt,
	)
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, channel_id, conversation_id, member_id, content, file_url, client_id, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ChannelID, msg.ConversationID, msg.MemberID,
		msg.ContentSealed, msg.FileURLSealed, msg.ClientID,
		msg.Deleted, msg.CreatedAt, msg.UpdatedAt,
	)
	return translate(err)
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	err := scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id), &msg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepo) ListByChat(ctx context.Context, chat domain.ChatRef, cursor string, limit int) ([]domain.Message, error) {
	column := "channel_id"
	if chat.Kind == domain.ChatConversation {
		column = "conversation_id"
	}

	var query string
	var args []any
	if cursor != "" {
		query = fmt.Sprintf(`
			SELECT %s FROM messages
			WHERE %s = $1
				AND (created_at, id) < (SELECT created_at, id FROM messages WHERE id = $2)
			ORDER BY created_at DESC, id DESC
			LIMIT %d`, messageColumns, column, limit)
		args = []any{chat.ID, cursor}
	} else {
		query = fmt.Sprintf(`
			SELECT %s FROM messages
			WHERE %s = $1
			ORDER BY created_at DESC, id DESC
			LIMIT %d`, messageColumns, column, limit)
		args = []any{chat.ID}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := scanMessage(rows, &msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *MessageRepo) Update(ctx context.Context, msg *domain.Message) error {
	query := `UPDATE messages SET content = $1, file_url = $2, deleted = $3, updated_at = $4 WHERE id = $5`
	_, err := r.pool.Exec(ctx, query, msg.ContentSealed, msg.FileURLSealed, msg.Deleted, msg.UpdatedAt, msg.ID)
	return err
}
