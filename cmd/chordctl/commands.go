package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/vedran77/chord/internal/config"
	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/logging"
	"github.com/vedran77/chord/internal/realtime/api"
	"github.com/vedran77/chord/internal/realtime/msgcache"
	"github.com/vedran77/chord/internal/service"
)

var chatFlags = []cli.Flag{
	&cli.StringFlag{Name: "channel", Usage: "Channel ID"},
	&cli.StringFlag{Name: "conversation", Usage: "Conversation ID"},
}

// chatFrom reads the chat reference from --channel or --conversation.
func chatFrom(c *cli.Command) (domain.ChatRef, error) {
	channel, conversation := c.String("channel"), c.String("conversation")
	switch {
	case channel != "" && conversation != "":
		return domain.ChatRef{}, errors.New("use either --channel or --conversation, not both")
	case channel != "":
		id, err := uuid.Parse(channel)
		if err != nil {
			return domain.ChatRef{}, fmt.Errorf("invalid channel id: %w", err)
		}
		return domain.ChatRef{Kind: domain.ChatChannel, ID: id}, nil
	case conversation != "":
		id, err := uuid.Parse(conversation)
		if err != nil {
			return domain.ChatRef{}, fmt.Errorf("invalid conversation id: %w", err)
		}
		return domain.ChatRef{Kind: domain.ChatConversation, ID: id}, nil
	}
	return domain.ChatRef{}, errors.New("--channel or --conversation is required")
}

func apiClient(c *cli.Command) (*api.Client, error) {
	token := c.String("token")
	if token == "" {
		return nil, errors.New("--token (or CHORD_TOKEN) is required")
	}
	return api.NewClient(strings.TrimRight(c.String("api"), "/"), token), nil
}

func cliLogger(c *cli.Command) zerolog.Logger {
	if c.Bool("debug") {
		return logging.New(true)
	}
	return zerolog.Nop()
}

func tokenCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a bearer token for a profile (uses JWT_SECRET)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "profile", Usage: "Profile ID, random when empty"},
			&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime", Value: 24 * time.Hour},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			profileID := uuid.New()
			if p := c.String("profile"); p != "" {
				var err error
				if profileID, err = uuid.Parse(p); err != nil {
					return fmt.Errorf("invalid profile id: %w", err)
				}
			}
			token, err := service.NewTokenService(cfg.JWTSecret).Issue(profileID, c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "profile %s\n", profileID)
			fmt.Println(token)
			return nil
		},
	}
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send a message to a channel or conversation",
		ArgsUsage: "<content>",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "file-url", Usage: "Attachment URL"},
		}, chatFlags...),
		Action: func(ctx context.Context, c *cli.Command) error {
			chat, err := chatFrom(c)
			if err != nil {
				return err
			}
			client, err := apiClient(c)
			if err != nil {
				return err
			}

			req := api.SendMessageRequest{
				Content:  strings.Join(c.Args().Slice(), " "),
				ClientID: uuid.NewString(),
			}
			if u := c.String("file-url"); u != "" {
				req.FileURL = &u
			}
			msg, err := client.SendMessage(ctx, chat, req)
			if err != nil {
				return err
			}
			fmt.Println(msg.ID)
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Print message history, oldest first",
		Flags: append([]cli.Flag{
			&cli.IntFlag{Name: "pages", Usage: "Pages to load, 0 for all", Value: 1},
		}, chatFlags...),
		Action: func(ctx context.Context, c *cli.Command) error {
			chat, err := chatFrom(c)
			if err != nil {
				return err
			}
			client, err := apiClient(c)
			if err != nil {
				return err
			}

			cache, err := loadHistory(ctx, client, chat, int(c.Int("pages")))
			if err != nil {
				return err
			}
			for _, m := range cache.Display() {
				printMessage(os.Stdout, m)
			}
			if cache.HasMore() {
				fmt.Fprintln(os.Stderr, "(older messages available, raise --pages)")
			}
			return nil
		},
	}
}

type pageFetcher interface {
	FetchMessages(ctx context.Context, chat domain.ChatRef, cursor string) (domain.MessagePage, error)
}

// loadHistory pages through chat into a cache. pages <= 0 loads everything.
func loadHistory(ctx context.Context, api pageFetcher, chat domain.ChatRef, pages int) (*msgcache.Cache, error) {
	cache := msgcache.New(chat)
	first, err := api.FetchMessages(ctx, chat, "")
	if err != nil {
		return nil, err
	}
	cache.Rebuild(first)

	for loaded := 1; cache.HasMore() && (pages <= 0 || loaded < pages); loaded++ {
		page, err := api.FetchMessages(ctx, chat, cache.Cursor())
		if err != nil {
			return nil, err
		}
		cache.PageAppend(page)
	}
	return cache, nil
}

func printMessage(w io.Writer, m domain.Message) {
	marker := ""
	if !m.Sent {
		marker = " (sending)"
	}
	fmt.Fprintf(w, "%s  %s  %s%s\n",
		m.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		m.MemberID.String()[:8],
		m.Content,
		marker)
}
