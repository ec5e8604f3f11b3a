// Package memory implements the repositories in process memory. It backs
// tests and single-node development runs without PostgreSQL.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/repository"
)

type ServerRepo struct {
	mu      sync.RWMutex
	servers map[uuid.UUID]domain.Server
}

func NewServerRepo() *ServerRepo {
	return &ServerRepo{servers: make(map[uuid.UUID]domain.Server)}
}

func (r *ServerRepo) Create(_ context.Context, s *domain.Server) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.servers[s.ID]; ok {
		return repository.ErrDuplicate
	}
	r.servers[s.ID] = *s
	return nil
}

func (r *ServerRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Server, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.servers[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

type MemberRepo struct {
	mu      sync.RWMutex
	members map[uuid.UUID]domain.Member
}

func NewMemberRepo() *MemberRepo {
	return &MemberRepo{members: make(map[uuid.UUID]domain.Member)}
}

func (r *MemberRepo) Create(_ context.Context, m *domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.members {
		if existing.ID == m.ID || (existing.ServerID == m.ServerID && existing.ProfileID == m.ProfileID) {
			return repository.ErrDuplicate
		}
	}
	r.members[m.ID] = *m
	return nil
}

func (r *MemberRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *MemberRepo) GetByProfile(_ context.Context, serverID, profileID uuid.UUID) (*domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if m.ServerID == serverID && m.ProfileID == profileID {
			return &m, nil
		}
	}
	return nil, nil
}

func (r *MemberRepo) ListByServer(_ context.Context, serverID uuid.UUID) ([]domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Member
	for _, m := range r.members {
		if m.ServerID == serverID {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b domain.Member) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (r *MemberRepo) UpdateRole(_ context.Context, m *domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.members[m.ID]
	if !ok {
		return nil
	}
	existing.Role = m.Role
	existing.UpdatedAt = m.UpdatedAt
	r.members[m.ID] = existing
	return nil
}

func (r *MemberRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, id)
	return nil
}

type ChannelRepo struct {
	mu       sync.RWMutex
	channels map[uuid.UUID]domain.Channel
}

func NewChannelRepo() *ChannelRepo {
	return &ChannelRepo{channels: make(map[uuid.UUID]domain.Channel)}
}

func (r *ChannelRepo) Create(_ context.Context, ch *domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.channels {
		if existing.ID == ch.ID || (existing.ServerID == ch.ServerID && existing.Name == ch.Name) {
			return repository.ErrDuplicate
		}
	}
	r.channels[ch.ID] = *ch
	return nil
}

func (r *ChannelRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

func (r *ChannelRepo) ListByServer(_ context.Context, serverID uuid.UUID) ([]domain.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Channel
	for _, ch := range r.channels {
		if ch.ServerID == serverID {
			out = append(out, ch)
		}
	}
	slices.SortFunc(out, func(a, b domain.Channel) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (r *ChannelRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, id)
	return nil
}

type ConversationRepo struct {
	mu    sync.RWMutex
	convs map[uuid.UUID]domain.Conversation
}

func NewConversationRepo() *ConversationRepo {
	return &ConversationRepo{convs: make(map[uuid.UUID]domain.Conversation)}
}

func (r *ConversationRepo) Create(_ context.Context, conv *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.convs {
		if existing.ID == conv.ID ||
			(existing.MemberOneID == conv.MemberOneID && existing.MemberTwoID == conv.MemberTwoID) {
			return repository.ErrDuplicate
		}
	}
	r.convs[conv.ID] = *conv
	return nil
}

func (r *ConversationRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.convs[id]
	if !ok {
		return nil, nil
	}
	return &conv, nil
}

func (r *ConversationRepo) GetByMembers(_ context.Context, memberOneID, memberTwoID uuid.UUID) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conv := range r.convs {
		if conv.MemberOneID == memberOneID && conv.MemberTwoID == memberTwoID {
			return &conv, nil
		}
	}
	return nil, nil
}

// MessageRepo keeps only the sealed columns, like the database does.
type MessageRepo struct {
	mu       sync.RWMutex
	messages map[string]domain.Message
}

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{messages: make(map[string]domain.Message)}
}

func stored(m domain.Message) domain.Message {
	m.Content = ""
	m.FileURL = nil
	m.Sent = false
	m.ContentSealed = slices.Clone(m.ContentSealed)
	m.FileURLSealed = slices.Clone(m.FileURLSealed)
	return m
}

func (r *MessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[msg.ID]; ok {
		return repository.ErrDuplicate
	}
	r.messages[msg.ID] = stored(*msg)
	return nil
}

func (r *MessageRepo) GetByID(_ context.Context, id string) (*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, nil
	}
	m = stored(m)
	return &m, nil
}

func (r *MessageRepo) ListByChat(_ context.Context, chat domain.ChatRef, cursor string, limit int) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []domain.Message
	for _, m := range r.messages {
		if m.Chat() == chat {
			all = append(all, stored(m))
		}
	}
	slices.SortFunc(all, func(a, b domain.Message) int {
		if a.Newer(&b) {
			return -1
		}
		if b.Newer(&a) {
			return 1
		}
		return 0
	})

	start := 0
	if cursor != "" {
		start = len(all)
		if ref, ok := r.messages[cursor]; ok {
			for i := range all {
				if ref.Newer(&all[i]) {
					start = i
					break
				}
			}
		}
	}
	end := min(start+limit, len(all))
	return all[start:end], nil
}

func (r *MessageRepo) Update(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.messages[msg.ID]
	if !ok {
		return nil
	}
	existing.ContentSealed = slices.Clone(msg.ContentSealed)
	existing.FileURLSealed = slices.Clone(msg.FileURLSealed)
	existing.Deleted = msg.Deleted
	existing.UpdatedAt = msg.UpdatedAt
	r.messages[msg.ID] = existing
	return nil
}

type CallRepo struct {
	mu    sync.Mutex
	calls map[uuid.UUID]domain.Call
}

func NewCallRepo() *CallRepo {
	return &CallRepo{calls: make(map[uuid.UUID]domain.Call)}
}

// Create enforces the single open call per conversation under one lock,
// mirroring the partial unique index.
func (r *CallRepo) Create(_ context.Context, c *domain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.calls {
		if existing.ID == c.ID {
			return repository.ErrDuplicate
		}
		if existing.ConversationID == c.ConversationID && unsettled(&existing) {
			return repository.ErrDuplicate
		}
	}
	r.calls[c.ID] = *c
	return nil
}

// unsettled matches the index predicate: not ended, declined or cancelled.
func unsettled(c *domain.Call) bool {
	return !c.Ended && !c.Declined && !c.Cancelled
}

func (r *CallRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *CallRepo) GetOpenByConversation(_ context.Context, conversationID uuid.UUID) (*domain.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c.ConversationID == conversationID && unsettled(&c) {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *CallRepo) Update(_ context.Context, c *domain.Call, prevUpdatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.calls[c.ID]
	if !ok || !existing.UpdatedAt.Equal(prevUpdatedAt) {
		return repository.ErrStale
	}
	existing.Active = c.Active
	existing.Ended = c.Ended
	existing.Answered = c.Answered
	existing.Declined = c.Declined
	existing.Cancelled = c.Cancelled
	existing.UpdatedAt = c.UpdatedAt
	r.calls[c.ID] = existing
	return nil
}
