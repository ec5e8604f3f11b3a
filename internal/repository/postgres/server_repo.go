package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/chord/internal/domain"
)

type ServerRepo struct {
	pool *pgxpool.Pool
}

func NewServerRepo(pool *pgxpool.Pool) *ServerRepo {
	return &ServerRepo{pool: pool}
}

func (r *ServerRepo) Create(ctx context.Context, s *domain.Server) error {
	query := `INSERT INTO servers (id, name, profile_id, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, s.ID, s.Name, s.ProfileID, s.CreatedAt)
	return translate(err)
}

func (r *ServerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Server, error) {
	query := `SELECT id, name, profile_id, created_at FROM servers WHERE id = $1`
	var s domain.Server
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.ProfileID, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &s, err
}

type MemberRepo struct {
	pool *pgxpool.Pool
}

func NewMemberRepo(pool *pgxpool.Pool) *MemberRepo {
	return &MemberRepo{pool: pool}
}

const memberColumns = `id, profile_id, server_id, role, created_at, updated_at`

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m domain.Member
	err := row.Scan(&m.ID, &m.ProfileID, &m.ServerID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepo) Create(ctx context.Context, m *domain.Member) error {
	query := `
		INSERT INTO members (id, profile_id, server_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, m.ID, m.ProfileID, m.ServerID, m.Role, m.CreatedAt, m.UpdatedAt)
	return translate(err)
}

func (r *MemberRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	return scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
}

func (r *MemberRepo) GetByProfile(ctx context.Context, serverID, profileID uuid.UUID) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE server_id = $1 AND profile_id = $2`
	return scanMember(r.pool.QueryRow(ctx, query, serverID, profileID))
}

func (r *MemberRepo) ListByServer(ctx context.Context, serverID uuid.UUID) ([]domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE server_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.ProfileID, &m.ServerID, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *MemberRepo) UpdateRole(ctx context.Context, m *domain.Member) error {
	_, err := r.pool.Exec(ctx, `UPDATE members SET role = $1, updated_at = $2 WHERE id = $3`, m.Role, m.UpdatedAt, m.ID)
	return err
}

func (r *MemberRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	return err
}
