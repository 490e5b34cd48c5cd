package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/user"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Travis-Britz/cfddns"
)

const helpMenu = `  setup        Enter and validate the API token, zone ID and record ID.
  update       Point the default record at the current public IP address.
  reset        Forget all settings.
  get records  List the records of the configured zone.
  get ip       Show the current public IP address.
  clear        Clear the screen.
  help         Show this menu.
  exit         Quit.`

const unknownCommand = "Command unknown or invalid, use help to get more information."

type shell struct {
	workflow *cfddns.Workflow
	ui       *consoleUI
	prompter *linePrompter
	logger   log.FieldLogger

	// afterCommand runs once every command has finished.
	afterCommand func()
}

// interactive reads and executes commands until "exit" or the end of input.
// When updateFailed is set, reaching the end of input exits with 1
// unless an update succeeded in the meantime.
func (sh *shell) interactive(ctx context.Context, updateFailed bool) int {
	for {
		line, err := sh.prompter.Prompt(false)
		if errors.Is(err, io.EOF) {
			if updateFailed {
				return 1
			}
			return 0
		}
		if err != nil {
			sh.logger.WithError(err).Error("unable to read command")
			return 1
		}

		command := strings.ToLower(strings.TrimSpace(line))
		if command == "" {
			continue
		}
		if command == "exit" {
			return 0
		}
		if res, ran := sh.execute(ctx, command); ran && res.OK() {
			updateFailed = false
		}
		sh.afterCommand()
	}
}

// execute runs a single command.
// The update result is returned only for the update command.
func (sh *shell) execute(ctx context.Context, command string) (res cfddns.UpdateResult, updated bool) {
	sh.logger.WithField("command", command).Debug("executing command")
	switch command {
	case "setup":
		sh.workflow.Setup(ctx, sh.prompter)
	case "update":
		return sh.workflow.Update(ctx), true
	case "reset":
		if err := sh.workflow.Reset(); err != nil {
			sh.logger.WithError(err).Debug("reset failed")
		}
	case "get records":
		sh.workflow.ShowRecords(ctx)
	case "get ip":
		sh.workflow.ShowPublicIP(ctx)
	case "help":
		sh.ui.Info("Help menu:\n" + helpMenu)
	case "clear":
		sh.ui.Clear()
	default:
		sh.ui.Error(unknownCommand)
	}
	return cfddns.UpdateResult{}, false
}

// autoupdate performs a single update.
// On failure the shell stays open so the problem can be fixed interactively.
func (sh *shell) autoupdate(ctx context.Context) int {
	sh.ui.Success("Argument autoupdate processed successfully.")
	res := sh.workflow.Update(ctx)
	sh.afterCommand()
	if res.OK() {
		return 0
	}
	return sh.interactive(ctx, true)
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "cfddns"
}
