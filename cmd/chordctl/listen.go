package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/vedran77/chord/internal/config"
	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/realtime/bus"
	"github.com/vedran77/chord/internal/realtime/call"
	"github.com/vedran77/chord/internal/realtime/clock"
	"github.com/vedran77/chord/internal/realtime/notify"
	"github.com/vedran77/chord/internal/realtime/surface"
)

func optionalID(c *cli.Command, flag string) (uuid.UUID, error) {
	v := c.String(flag)
	if v == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s: %w", flag, err)
	}
	return id, nil
}

// printNavigator reports call room transitions instead of opening media.
type printNavigator struct {
	out      io.Writer
	mediaURL string
}

func (n printNavigator) OpenRoom(callID uuid.UUID) {
	room, err := call.RoomURL(n.mediaURL, callID)
	if err != nil {
		fmt.Fprintf(n.out, "-- joining call %s (bad media url: %v)\n", callID, err)
		return
	}
	fmt.Fprintf(n.out, "-- joining call room %s\n", room)
}

func (n printNavigator) ReturnToConversation(conversationID uuid.UUID) {
	fmt.Fprintf(n.out, "-- back in conversation %s\n", conversationID)
}

func listenCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Follow a chat live: messages, typing, notifications and calls",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "member", Usage: "Your member ID in this chat, hides your own typing"},
			&cli.StringFlag{Name: "profile", Usage: "Your profile ID, for notifications and call signals"},
			&cli.StringFlag{Name: "server", Usage: "Server ID to receive notifications for"},
			&cli.StringFlag{
				Name:    "media",
				Usage:   "Media server URL call rooms are opened on",
				Value:   cfg.MediaURL,
				Sources: cli.EnvVars("CHORD_MEDIA_URL"),
			},
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
			self, err := optionalID(c, "member")
			if err != nil {
				return err
			}
			profileID, err := optionalID(c, "profile")
			if err != nil {
				return err
			}
			serverID, err := optionalID(c, "server")
			if err != nil {
				return err
			}

			logger := cliLogger(c)
			signaling := bus.New(bus.Config{URL: c.String("signaling"), Token: c.String("token")}, logger)
			signaling.OnState(func(s bus.State) {
				fmt.Fprintf(os.Stderr, "-- signaling %s\n", s)
			})

			view := surface.New(chat, self, client, signaling, surface.Options{TypingIdle: cfg.TypingIdle}, logger)
			defer view.Close()

			var mu sync.Mutex
			printed := make(map[string]bool)
			view.Cache().OnChange(func() {
				mu.Lock()
				defer mu.Unlock()
				for _, m := range view.Cache().Display() {
					if m.ID == "" || printed[m.ID] || !m.Sent {
						continue
					}
					printed[m.ID] = true
					printMessage(os.Stdout, m)
				}
			})
			view.Typing().OnChange(func(typing bool) {
				if typing {
					fmt.Printf("-- %s is typing\n", view.Typing().Who().String()[:8])
				}
			})

			if serverID != uuid.Nil && profileID != uuid.Nil {
				queue := notify.New(clock.Real, notify.Options{Dwell: cfg.NotificationDwell})
				defer queue.Stop()
				queue.OnChange(func(items []notify.Notification) {
					if len(items) > 0 {
						n := items[len(items)-1]
						fmt.Printf("-- [%s] %s\n", n.Title, n.Body)
					}
				})
				defer notify.Feed(signaling, queue, serverID, profileID)()
			}

			if chat.Kind == domain.ChatConversation && profileID != uuid.Nil {
				session := call.NewSession(chat.ID, self, client, printNavigator{out: os.Stdout, mediaURL: c.String("media")}, logger)
				session.OnChange(func(s call.State, _ *domain.Call) {
					fmt.Printf("-- call %s\n", s)
				})
				defer session.Watch(signaling, profileID)()
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return signaling.Run(gctx) })
			g.Go(func() error {
				if err := view.Open(gctx); err != nil {
					return err
				}
				view.RunPolling(gctx)
				return nil
			})

			if err := g.Wait(); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}
