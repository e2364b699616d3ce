package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/sipeed/cinebot/pkg/app"
	"github.com/sipeed/cinebot/pkg/bot"
	"github.com/sipeed/cinebot/pkg/config"
	"github.com/sipeed/cinebot/pkg/conversation"
	"github.com/sipeed/cinebot/pkg/logger"
)

const usage = `Usage: cinebot [command]

Commands:
  run       connect to Discord and serve slash commands (default)
  console   chat with the configured backend from the terminal
  help      show this message

Configuration is read from the environment and, when CINEBOT_CONFIG is
set, from that YAML file.
`

func main() {
	cmd := "run"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "run":
		exit(runBot())
	case "console":
		exit(runConsole())
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
}

func exit(err error) {
	if err == nil {
		return
	}
	logger.ErrorCF("main", "Exiting", map[string]interface{}{"error": err.Error()})
	os.Exit(1)
}

func setup() (*app.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Configure(os.Stderr, logger.Level(cfg.Log.Level), cfg.Log.Format)
	return app.NewContainer(cfg)
}

func runBot() error {
	c, err := setup()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = c.RunBot(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ---------------------------------------------------------------------------
// Console
// ---------------------------------------------------------------------------

const consoleHelp = `/reset   forget the conversation
/help    show this message
/exit    leave the console`

func runConsole() error {
	c, err := setup()
	if err != nil {
		return err
	}
	defer c.Close()

	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".cinebot_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryFile:     history,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("start console: %w", err)
	}
	defer rl.Close()

	if !c.Chat.Configured() {
		fmt.Fprintln(rl.Stdout(), bot.UserMessage(conversation.ErrNotConfigured))
	}
	id := conversation.Identity{UserID: "console"}
	ctx := context.Background()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "/exit", "/quit", "exit":
			return nil
		case "/help":
			fmt.Fprintln(rl.Stdout(), consoleHelp)
			continue
		case "/reset":
			c.Chat.Forget(id)
			fmt.Fprintln(rl.Stdout(), "Conversation forgotten.")
			continue
		}

		reply, err := c.Chat.Respond(ctx, id, line)
		if err != nil {
			reply = bot.UserMessage(err)
		}
		fmt.Fprintf(rl.Stdout(), "bot> %s\n", reply)
	}
}
