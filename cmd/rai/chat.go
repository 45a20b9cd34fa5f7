package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/rai/internal/agent"
	"github.com/samcharles93/rai/internal/logger"
)

var (
	streamMode string
	rawOutput  bool
)

func chatFlags() []cli.Flag {
	flags := commonModelFlags()
	flags = append(flags, generationFlags()...)
	flags = append(flags, conversationFlags()...)
	flags = append(flags, loggingFlags()...)
	return append(flags,
		&cli.StringFlag{
			Name:        "stream-mode",
			Usage:       "reply output (instant, smooth, typewriter, quiet)",
			Value:       string(StreamInstant),
			Local:       true,
			Destination: &streamMode,
		},
		&cli.BoolFlag{
			Name:        "raw-output",
			Usage:       "escape control characters in replies",
			Local:       true,
			Destination: &rawOutput,
		},
	)
}

// chatSession is the part of *agent.Session the chat loop drives.
type chatSession interface {
	Greet(ctx context.Context, onDelta agent.DeltaFunc) (string, error)
	Prompt(ctx context.Context, text string, onDelta agent.DeltaFunc) (string, error)
}

type chatIO struct {
	readLine func(prompt string) (string, error)
	out      io.Writer
	errOut   io.Writer
	mode     StreamMode
	raw      bool
}

func runChat(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadCommandConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	applyModelConfig(cmd, cfg)
	applyChatConfig(cmd, cfg, &streamMode)
	ctx, log := setupLogger(ctx)

	mode, err := parseStreamMode(streamMode)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	purpose := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if purpose == "" {
		purpose = cfg.Purpose
	}

	session, err := openSession(ctx, cmd, cfg, purpose)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("close session", "error", err)
		}
	}()

	_, _ = fmt.Fprintln(os.Stdout, "Ready.")
	return chatLoop(ctx, session, chatIO{
		readLine: readInteractiveLine,
		out:      os.Stdout,
		errOut:   os.Stderr,
		mode:     mode,
		raw:      rawOutput,
	})
}

// chatLoop greets, then alternates between the agent's reply ("< ...") and
// a line of user input ("> "). A failed turn is reported on errOut and the
// loop goes on with the conversation as it was. /exit or end of input stops.
func chatLoop(ctx context.Context, s chatSession, cio chatIO) error {
	log := logger.FromContext(ctx)

	turn := func(run func(agent.DeltaFunc) (string, error)) {
		_, _ = fmt.Fprint(cio.out, "< ")
		w := NewStreamWriter(cio.out, cio.mode, cio.raw)
		_, err := run(w.Write)
		w.Close()
		_, _ = fmt.Fprintln(cio.out)
		if err != nil {
			log.Debug("turn failed", "error", err)
			_, _ = fmt.Fprintln(cio.errOut, "error:", err)
		}
	}

	turn(func(onDelta agent.DeltaFunc) (string, error) {
		return s.Greet(ctx, onDelta)
	})

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := cio.readLine("> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "/exit" {
			return nil
		}
		if input == "" {
			continue
		}
		turn(func(onDelta agent.DeltaFunc) (string, error) {
			return s.Prompt(ctx, line, onDelta)
		})
	}
}
