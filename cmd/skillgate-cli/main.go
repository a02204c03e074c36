// Command skillgate-cli administers SkillGate users and API tokens.
package main

import (
	"os"

	"github.com/yndnr/skillgate-go/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		command.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
