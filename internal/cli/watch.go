package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"channel-service/internal/broadcast"
	"channel-service/internal/client"
	"channel-service/internal/config"
	"channel-service/internal/identity"
	"channel-service/internal/models"
)

// NewWatchCommand opens a channel as a client, prints it as it changes and
// sends each stdin line as a message. "/older" loads more history.
func NewWatchCommand(opts *RootOptions) *cobra.Command {
	var server, userID, name, signature string
	cmd := &cobra.Command{
		Use:   "watch <channel-id>",
		Short: "Follow a channel from the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			channelID, err := uuid.Parse(args[0])
			if err != nil {
				return errors.Wrap(err, "channel id")
			}
			if signature == "" {
				keys := config.SigningKeys(opts.viper)
				if len(keys) == 0 {
					return errors.New("no signature: pass --signature or set SIGNING_KEYS")
				}
				signature = identity.Sign(userID, keys[0])
			}
			if name == "" {
				name = userID
			}

			api, err := client.NewHTTPAPI(server, userID, signature)
			if err != nil {
				return err
			}
			gateway, err := client.NewWSTransport(server, userID, signature)
			if err != nil {
				return err
			}

			out := &printer{w: cmd.OutOrStdout(), seen: map[uuid.UUID]bool{}}
			var session *client.Session
			session = client.NewSession(api, gateway, models.User{ID: userID, Username: &name}, client.Options{
				TypingInterval: opts.viper.GetDuration("TYPING_INTERVAL"),
				TypingTimeout:  opts.viper.GetDuration("TYPING_TIMEOUT"),
				OnChange:       func() { out.render(session) },
			})

			ctx := cmd.Context()
			if err := session.Open(ctx, channelID); err != nil {
				return err
			}
			defer session.Close()

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				switch {
				case line == "":
				case line == "/older":
					added, more, err := session.LoadOlder(ctx)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "load older: %v\n", err)
						continue
					}
					fmt.Fprintf(out.w, "-- %d older messages, more=%t\n", added, more)
				default:
					session.Typing(ctx)
					if _, err := session.Send(ctx, line, nil); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "send failed: %v\n", err)
					}
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8083", "service base url")
	cmd.Flags().StringVar(&userID, "user", "", "user id to act as")
	cmd.Flags().StringVar(&name, "name", "", "display name hidden from the typing list (defaults to the user id)")
	cmd.Flags().StringVar(&signature, "signature", "", "X-User-Signature value (computed from SIGNING_KEYS when empty)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// printer writes confirmed messages once and typing changes as they occur.
type printer struct {
	mu     sync.Mutex
	w      io.Writer
	seen   map[uuid.UUID]bool
	typing string
}

func (p *printer) render(s *client.Session) {
	if s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range s.Entries() {
		switch e.State {
		case broadcast.StateConfirmed:
			if p.seen[e.Message.ID] {
				continue
			}
			p.seen[e.Message.ID] = true
			fmt.Fprintf(p.w, "[%s] %s: %s\n", e.Message.CreatedAt.Format("15:04:05"), e.Message.AuthorName, e.Message.Content)
		case broadcast.StateFailed:
			if p.seen[e.LocalID] {
				continue
			}
			p.seen[e.LocalID] = true
			fmt.Fprintf(p.w, "[failed] %s\n", e.Message.Content)
		}
	}

	typing := strings.Join(s.TypingNames(), ", ")
	if typing != p.typing {
		p.typing = typing
		if typing != "" {
			fmt.Fprintf(p.w, "-- %s typing\n", typing)
		}
	}
}
