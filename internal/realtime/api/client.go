// Package api is the HTTP client for the chord REST endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/vedran77/chord/internal/apperr"
	"github.com/vedran77/chord/internal/domain"
)

// Client talks to the chord API on behalf of one authenticated profile.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SendMessageRequest is the body of a message create.
type SendMessageRequest struct {
	Content  string  `json:"content"`
	FileURL  *string `json:"fileUrl,omitempty"`
	ClientID string  `json:"clientId,omitempty"`
}

type createCallRequest struct {
	ConversationID uuid.UUID       `json:"conversationId"`
	Type           domain.CallType `json:"type"`
}

type conversationRequest struct {
	ServerID uuid.UUID `json:"serverId"`
	MemberID uuid.UUID `json:"memberId"`
}

// do performs a request and decodes a successful JSON response into out.
// Failed requests come back as *apperr.Error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return apperr.Decode(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// messagesPath maps a chat to its collection path and scope query.
func messagesPath(chat domain.ChatRef) (string, url.Values) {
	q := url.Values{}
	if chat.Kind == domain.ChatConversation {
		q.Set("conversationId", chat.ID.String())
		return "/api/direct-messages", q
	}
	q.Set("channelId", chat.ID.String())
	return "/api/messages", q
}

// FetchMessages loads one page of history, newest first. An empty cursor
// requests the latest page.
func (c *Client) FetchMessages(ctx context.Context, chat domain.ChatRef, cursor string) (domain.MessagePage, error) {
	path, q := messagesPath(chat)
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var page domain.MessagePage
	err := c.do(ctx, http.MethodGet, path, q, nil, &page)
	return page, err
}

func (c *Client) SendMessage(ctx context.Context, chat domain.ChatRef, req SendMessageRequest) (*domain.Message, error) {
	path, q := messagesPath(chat)
	var msg domain.Message
	if err := c.do(ctx, http.MethodPost, path, q, req, &msg); err != nil {
		return nil, err
	}
	msg.Sent = true
	return &msg, nil
}

func (c *Client) EditMessage(ctx context.Context, chat domain.ChatRef, id, content string) (*domain.Message, error) {
	path, _ := messagesPath(chat)
	var msg domain.Message
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPatch, path+"/"+url.PathEscape(id), nil, body, &msg); err != nil {
		return nil, err
	}
	msg.Sent = true
	return &msg, nil
}

func (c *Client) DeleteMessage(ctx context.Context, chat domain.ChatRef, id string) (*domain.Message, error) {
	path, _ := messagesPath(chat)
	var msg domain.Message
	if err := c.do(ctx, http.MethodDelete, path+"/"+url.PathEscape(id), nil, nil, &msg); err != nil {
		return nil, err
	}
	msg.Sent = true
	return &msg, nil
}

func (c *Client) CreateCall(ctx context.Context, conversationID uuid.UUID, typ domain.CallType) (*domain.Call, error) {
	var call domain.Call
	err := c.do(ctx, http.MethodPost, "/api/calls", nil, createCallRequest{ConversationID: conversationID, Type: typ}, &call)
	if err != nil {
		return nil, err
	}
	return &call, nil
}

func (c *Client) PatchCall(ctx context.Context, callID uuid.UUID, patch domain.CallPatch) (*domain.Call, error) {
	var call domain.Call
	if err := c.do(ctx, http.MethodPatch, "/api/calls/"+callID.String(), nil, patch, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

func (c *Client) EndCall(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	var call domain.Call
	if err := c.do(ctx, http.MethodDelete, "/api/calls/"+callID.String(), nil, nil, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

// Conversation returns the conversation between the caller and memberID in
// the given server, creating it on first use.
func (c *Client) Conversation(ctx context.Context, serverID, memberID uuid.UUID) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := c.do(ctx, http.MethodPost, "/api/conversations", nil, conversationRequest{ServerID: serverID, MemberID: memberID}, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}
