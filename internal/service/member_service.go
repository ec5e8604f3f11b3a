package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/repository"
)

// MemberService handles role changes and kicks. Only admins moderate
// membership, and never their own.
type MemberService struct {
	access
}

func NewMemberService(memberRepo repository.MemberRepository) *MemberService {
	return &MemberService{access{members: memberRepo}}
}

type UpdateRoleInput struct {
	Role domain.Role `json:"role"`
}

func (s *MemberService) List(ctx context.Context, profileID, serverID uuid.UUID) ([]domain.Member, error) {
	if _, err := s.member(ctx, serverID, profileID); err != nil {
		return nil, err
	}
	members, err := s.members.ListByServer(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []domain.Member{}
	}
	return members, nil
}

func (s *MemberService) UpdateRole(ctx context.Context, profileID, memberID uuid.UUID, input UpdateRoleInput) (*domain.Member, error) {
	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}
	target, err := s.moderate(ctx, profileID, memberID)
	if err != nil {
		return nil, err
	}

	target.Role = input.Role
	target.UpdatedAt = now()
	if err := s.members.UpdateRole(ctx, target); err != nil {
		return nil, fmt.Errorf("updating role: %w", err)
	}
	return target, nil
}

func (s *MemberService) Kick(ctx context.Context, profileID, memberID uuid.UUID) error {
	target, err := s.moderate(ctx, profileID, memberID)
	if err != nil {
		return err
	}
	if err := s.members.Delete(ctx, target.ID); err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	return nil
}

// moderate loads memberID and checks profileID is an admin of the same
// server acting on someone else.
func (s *MemberService) moderate(ctx context.Context, profileID, memberID uuid.UUID) (*domain.Member, error) {
	target, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrMemberNotFound
	}
	actor, err := s.member(ctx, target.ServerID, profileID)
	if err != nil {
		return nil, err
	}
	if actor.ID == target.ID {
		return nil, ErrSelfModeration
	}
	if !actor.Role.AtLeast(domain.RoleAdmin) {
		return nil, ErrInsufficientRole
	}
	return target, nil
}
