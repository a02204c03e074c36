package command

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/skillgate-go/internal/server/config"
	"github.com/yndnr/skillgate-go/internal/storage"
	"github.com/yndnr/skillgate-go/pkg/crypto/adaptive"
)

var passphraseFlag = &cli.StringFlag{
	Name:    "passphrase-file",
	Usage:   "file holding the backup passphrase; the backup is encrypted when set",
	EnvVars: []string{"SKILLGATE_BACKUP_PASSPHRASE_FILE"},
}

// BackupCommand returns the backup subcommand group. Backups are only
// available for the badger store driver; SQLite files can be copied with
// the sqlite3 tooling.
func BackupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Back up and restore a badger credential store",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Write a full backup to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true},
					&cli.StringFlag{
						Name:  "cipher",
						Usage: "aes-gcm or chacha20-poly1305 (default: chosen for this host)",
					},
					passphraseFlag,
				},
				Action: backupCreate,
			},
			{
				Name:      "restore",
				Usage:     "Load a backup into the store; existing keys are overwritten",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{passphraseFlag},
				Action:    backupRestore,
			},
		},
	}
}

// readPassphrase returns the trimmed content of the passphrase file, or nil
// when no file was given.
func readPassphrase(c *cli.Context) ([]byte, error) {
	path := c.String("passphrase-file")
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return []byte(strings.TrimRight(string(data), "\r\n")), nil
}

func backupCreate(c *cli.Context) error {
	path := c.String("file")
	pass, err := readPassphrase(c)
	if err != nil {
		return err
	}
	return withStore(c, func(ctx context.Context, h *storage.Handle, _ *config.ServerConfig) error {
		engine, err := h.Badger()
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := engine.Backup(ctx, &buf); err != nil {
			return err
		}
		data := buf.Bytes()
		if pass != nil {
			if data, err = adaptive.Seal(data, pass, adaptive.CipherType(c.String("cipher"))); err != nil {
				return fmt.Errorf("encrypt backup: %w", err)
			}
		}

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			return fmt.Errorf("create backup file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return fmt.Errorf("write backup file: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close backup file: %w", err)
		}

		if pass != nil {
			fmt.Fprintf(c.App.Writer, "Encrypted backup written to %s\n", path)
		} else {
			fmt.Fprintf(c.App.Writer, "Backup written to %s\n", path)
		}
		return nil
	})
}

func backupRestore(c *cli.Context) error {
	path, err := requireArg(c, "FILE")
	if err != nil {
		return err
	}
	pass, err := readPassphrase(c)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	if adaptive.IsSealed(data) {
		if pass == nil {
			return fmt.Errorf("%s is encrypted: --passphrase-file is required", path)
		}
		if data, err = adaptive.Open(data, pass); err != nil {
			return fmt.Errorf("decrypt backup: %w", err)
		}
	}

	return withStore(c, func(ctx context.Context, h *storage.Handle, _ *config.ServerConfig) error {
		engine, err := h.Badger()
		if err != nil {
			return err
		}
		if err := engine.Restore(ctx, bytes.NewReader(data)); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Restored %s\n", path)
		return nil
	})
}
