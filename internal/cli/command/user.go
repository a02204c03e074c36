package command

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/skillgate-go/internal/core/domain"
	"github.com/yndnr/skillgate-go/internal/core/service"
	"github.com/yndnr/skillgate-go/internal/server/config"
	"github.com/yndnr/skillgate-go/internal/storage"
)

type userView struct {
	ID        string    `json:"id" yaml:"id"`
	Email     string    `json:"email" yaml:"email"`
	Username  string    `json:"username" yaml:"username"`
	Active    bool      `json:"active" yaml:"active"`
	Superuser bool      `json:"superuser" yaml:"superuser" table:"wide"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

func newUserView(u *domain.User) userView {
	return userView{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Active:    u.IsActive,
		Superuser: u.IsSuperuser,
		CreatedAt: u.CreatedAt,
	}
}

// UserCommand returns the user subcommand group.
func UserCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage token owners",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an active user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "username", Required: true},
				},
				Action: userCreate,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List users",
				Action:  userList,
			},
			{
				Name:      "disable",
				Usage:     "Deactivate a user; their tokens stop authenticating",
				ArgsUsage: "USER_ID",
				Action:    userSetActive(false),
			},
			{
				Name:      "enable",
				Usage:     "Reactivate a user",
				ArgsUsage: "USER_ID",
				Action:    userSetActive(true),
			},
		},
	}
}

func userCreate(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, h *storage.Handle, _ *config.ServerConfig) error {
		u, err := service.NewUserService(h.Repository).Create(ctx, c.String("email"), c.String("username"))
		if err != nil {
			return err
		}
		return render(c, newUserView(u))
	})
}

func userList(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, h *storage.Handle, _ *config.ServerConfig) error {
		users, err := service.NewUserService(h.Repository).List(ctx)
		if err != nil {
			return err
		}
		views := make([]userView, 0, len(users))
		for _, u := range users {
			views = append(views, newUserView(u))
		}
		return render(c, views)
	})
}

func userSetActive(active bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		id, err := requireArg(c, "USER_ID")
		if err != nil {
			return err
		}
		return withStore(c, func(ctx context.Context, h *storage.Handle, _ *config.ServerConfig) error {
			u, err := service.NewUserService(h.Repository).SetActive(ctx, id, active)
			if err != nil {
				return err
			}
			return render(c, newUserView(u))
		})
	}
}
