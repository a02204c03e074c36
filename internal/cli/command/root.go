package command

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/skillgate-go/internal/cli/output"
	"github.com/yndnr/skillgate-go/internal/core/domain"
	"github.com/yndnr/skillgate-go/internal/infra/buildinfo"
	"github.com/yndnr/skillgate-go/internal/server/config"
	"github.com/yndnr/skillgate-go/internal/storage"
	"github.com/yndnr/skillgate-go/internal/telemetry/logger"
)

const appName = "skillgate-cli"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    appName,
		Usage:   "SkillGate administration tool",
		Version: buildinfo.Get().Version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			UserCommand(),
			TokenCommand(),
			SystemCommand(),
			BackupCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Server configuration file to read store settings from",
			EnvVars: []string{"SKILLGATE_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "store-driver",
			Usage: "Credential store driver: memory, sqlite, badger",
		},
		&cli.StringFlag{
			Name:  "store-path",
			Usage: "SQLite database file or Badger directory",
		},
		&cli.StringFlag{
			Name:  "token-prefix",
			Usage: "Prefix for issued tokens",
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Server address for system commands",
			EnvVars: []string{"SKILLGATE_SERVER"},
			Value:   "http://localhost:8000",
		},
		&cli.StringFlag{
			Name:    "ca-file",
			Usage:   "Extra CA certificate for an https server",
			EnvVars: []string{"SKILLGATE_CA_FILE"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show more columns",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log store activity to stderr",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config      string
	StoreDriver string
	StorePath   string
	TokenPrefix string
	Server      string
	CAFile      string
	Output      output.Format
	Wide        bool
	Verbose     bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:      c.String("config"),
		StoreDriver: c.String("store-driver"),
		StorePath:   c.String("store-path"),
		TokenPrefix: c.String("token-prefix"),
		Server:      c.String("server"),
		CAFile:      c.String("ca-file"),
		Output:      output.Format(c.String("output")),
		Wide:        c.Bool("wide"),
		Verbose:     c.Bool("verbose"),
	}
}

// loadConfig resolves the server configuration the CLI acts on. Flags win
// over the file and the environment.
func loadConfig(flags *GlobalFlags) (*config.ServerConfig, error) {
	cfg := config.Default()
	if flags.Config != "" {
		var err error
		if cfg, err = config.Load(flags.Config); err != nil {
			return nil, err
		}
	}
	if flags.StoreDriver != "" {
		cfg.Store.Driver = flags.StoreDriver
	}
	if flags.StorePath != "" {
		cfg.Store.SetPath(flags.StorePath)
	}
	if flags.TokenPrefix != "" {
		if !domain.ValidTokenPrefix(flags.TokenPrefix) {
			return nil, fmt.Errorf("invalid token prefix %q", flags.TokenPrefix)
		}
		cfg.Auth.TokenPrefix = flags.TokenPrefix
	}
	return cfg, nil
}

// withStore opens the configured credential store for the duration of fn.
func withStore(c *cli.Context, fn func(ctx context.Context, h *storage.Handle, cfg *config.ServerConfig) error) error {
	flags := ParseGlobalFlags(c)
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	level := "warn"
	if flags.Verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Format: "text", Output: c.App.ErrWriter})
	if err != nil {
		return err
	}

	ctx := c.Context
	h, err := storage.Open(ctx, cfg.Store.OpenOptions(log.Slog()))
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer h.Close()

	return fn(ctx, h, cfg)
}

func render(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	return output.NewFormatter(flags.Output, flags.Wide).Format(c.App.Writer, data)
}

func requireArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one argument: %s", name)
	}
	return c.Args().First(), nil
}

// PrintError writes err to w. Domain errors already carry their code.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}
