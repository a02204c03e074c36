package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/skillgate-go/internal/cli/output"
	"github.com/yndnr/skillgate-go/internal/core/domain"
	"github.com/yndnr/skillgate-go/internal/core/service"
	"github.com/yndnr/skillgate-go/internal/server/config"
	"github.com/yndnr/skillgate-go/internal/storage"
)

type tokenView struct {
	ID         string     `json:"id" yaml:"id"`
	UserID     string     `json:"user_id" yaml:"user_id"`
	Name       string     `json:"name" yaml:"name"`
	Active     bool       `json:"active" yaml:"active"`
	ExpiresAt  *time.Time `json:"expires_at" yaml:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at" yaml:"last_used_at" table:"wide"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at" table:"wide"`
}

func newTokenView(t *domain.APIToken) tokenView {
	return tokenView{
		ID:         t.ID,
		UserID:     t.UserID,
		Name:       t.Name,
		Active:     t.IsActive,
		ExpiresAt:  t.ExpiresAt,
		LastUsedAt: t.LastUsedAt,
		CreatedAt:  t.CreatedAt,
	}
}

// issuedView adds the plaintext, which is only ever shown at issue time.
type issuedView struct {
	tokenView `yaml:",inline"`
	Token     string `json:"token" yaml:"token"`
}

// TokenCommand returns the token subcommand group.
func TokenCommand() *cli.Command {
	userFlag := &cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Owner user ID", Required: true}
	return &cli.Command{
		Name:  "token",
		Usage: "Manage API tokens",
		Subcommands: []*cli.Command{
			{
				Name:  "issue",
				Usage: "Issue a token; the plaintext is printed once",
				Flags: []cli.Flag{
					userFlag,
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Token label"},
					&cli.StringFlag{
						Name:  "expires",
						Usage: "Lifetime (720h, 30d) or RFC 3339 instant; empty never expires",
					},
				},
				Action: tokenIssue,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List a user's tokens",
				Flags:   []cli.Flag{userFlag},
				Action:  tokenList,
			},
			{
				Name:      "revoke",
				Usage:     "Revoke a token",
				ArgsUsage: "TOKEN_ID",
				Flags:     []cli.Flag{userFlag},
				Action:    tokenRevoke,
			},
		},
	}
}

func tokenIssue(c *cli.Context) error {
	expiresAt, err := parseExpiry(c.String("expires"), time.Now())
	if err != nil {
		return err
	}
	return withStore(c, func(ctx context.Context, h *storage.Handle, cfg *config.ServerConfig) error {
		svc := service.NewTokenService(h.Repository, cfg.Auth.TokenPrefix)
		issued, err := svc.Issue(ctx, c.String("user"), c.String("name"), expiresAt)
		if err != nil {
			return err
		}

		view := issuedView{tokenView: newTokenView(issued.Token), Token: issued.Plaintext}
		if ParseGlobalFlags(c).Output == output.FormatTable {
			if err := render(c, view.tokenView); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "\ntoken: %s\n", issued.Plaintext)
			fmt.Fprintln(c.App.ErrWriter, "Store this token now. It cannot be shown again.")
			return nil
		}
		return render(c, view)
	})
}

func tokenList(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, h *storage.Handle, cfg *config.ServerConfig) error {
		tokens, err := service.NewTokenService(h.Repository, cfg.Auth.TokenPrefix).List(ctx, c.String("user"))
		if err != nil {
			return err
		}
		views := make([]tokenView, 0, len(tokens))
		for _, t := range tokens {
			views = append(views, newTokenView(t))
		}
		return render(c, views)
	})
}

func tokenRevoke(c *cli.Context) error {
	id, err := requireArg(c, "TOKEN_ID")
	if err != nil {
		return err
	}
	return withStore(c, func(ctx context.Context, h *storage.Handle, cfg *config.ServerConfig) error {
		tok, err := service.NewTokenService(h.Repository, cfg.Auth.TokenPrefix).Revoke(ctx, c.String("user"), id)
		if err != nil {
			return err
		}
		return render(c, newTokenView(tok))
	})
}

// parseExpiry accepts a Go duration, a whole number of days ("30d") or an
// RFC 3339 instant. An empty string means no expiry.
func parseExpiry(s string, now time.Time) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var d time.Duration
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return nil, fmt.Errorf("invalid expiry %q", s)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else if dur, err := time.ParseDuration(s); err == nil {
		d = dur
	} else {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid expiry %q: want a duration or RFC 3339 time", s)
		}
		t = t.UTC()
		return &t, nil
	}

	if d <= 0 {
		return nil, fmt.Errorf("invalid expiry %q: must be positive", s)
	}
	t := now.Add(d).UTC()
	return &t, nil
}
