package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/skillgate-go/internal/cli/connection"
	"github.com/yndnr/skillgate-go/internal/cli/output"
	"github.com/yndnr/skillgate-go/internal/infra/buildinfo"
	"github.com/yndnr/skillgate-go/internal/infra/tlsroots"
	"github.com/yndnr/skillgate-go/internal/server/httpserver/handler"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server status and version",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check server liveness",
				Action: systemHealth,
			},
			{
				Name:   "ready",
				Usage:  "Check whether the tool backend is serving",
				Action: systemReady,
			},
			{
				Name:   "version",
				Usage:  "Show CLI build information",
				Action: systemVersion,
			},
		},
	}
}

func newClient(c *cli.Context) (*connection.HTTPClient, error) {
	flags := ParseGlobalFlags(c)
	tlsCfg, err := tlsroots.ClientConfig(flags.CAFile)
	if err != nil {
		return nil, err
	}
	return connection.NewHTTPClient(flags.Server, appName+"/"+buildinfo.Get().Version,
		connection.WithTLSConfig(tlsCfg)), nil
}

func systemHealth(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}

	var result handler.HealthResponse
	if err := client.GetJSON(c.Context, "/health", &result); err != nil {
		return fmt.Errorf("health check against %s failed: %w", client.BaseURL(), err)
	}

	if ParseGlobalFlags(c).Output != output.FormatTable {
		return render(c, result)
	}
	fmt.Fprintf(c.App.Writer, "Server is %s\n  Target: %s\n", result.Status, client.BaseURL())
	return nil
}

func systemReady(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}

	var result handler.ReadyResponse
	err = client.GetJSON(c.Context, "/ready", &result)
	var apiErr *connection.APIError
	if err != nil && !errors.As(err, &apiErr) {
		return fmt.Errorf("readiness check against %s failed: %w", client.BaseURL(), err)
	}

	if ParseGlobalFlags(c).Output != output.FormatTable {
		if rerr := render(c, result); rerr != nil {
			return rerr
		}
	} else {
		fmt.Fprintf(c.App.Writer, "Backend is %s (state: %s)\n  Target: %s\n", result.Status, result.State, client.BaseURL())
	}
	if apiErr != nil {
		return fmt.Errorf("server not ready: %w", apiErr)
	}
	return nil
}

func systemVersion(c *cli.Context) error {
	info := buildinfo.Get()
	if ParseGlobalFlags(c).Output != output.FormatTable {
		return render(c, info)
	}
	fmt.Fprintln(c.App.Writer, buildinfo.String(appName))
	return nil
}
