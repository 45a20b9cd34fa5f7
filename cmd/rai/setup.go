package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/rai/internal/agent"
	"github.com/samcharles93/rai/internal/conversation"
	"github.com/samcharles93/rai/internal/inference"
	"github.com/samcharles93/rai/internal/logger"
)

func setupLogger(ctx context.Context) (context.Context, logger.Logger) {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	log := logger.FromConfig(os.Stderr, logFormat, level)
	return logger.WithContext(ctx, log), log
}

func transcriptLabels() conversation.Labels {
	return conversation.Labels{
		User:    userLabel,
		Agent:   agentLabel,
		Persona: persona,
	}
}

// openSession loads the engine named by the resolved model path and wraps
// it in a session for purpose. Load failures are fatal to the caller.
func openSession(ctx context.Context, c *cli.Command, cfg Config, purpose string) (*agent.Session, error) {
	log := logger.FromContext(ctx)

	path, err := resolveModelPath(modelPath, cfg)
	if err != nil {
		return nil, err
	}
	loader := inference.Loader{
		Order:       int(order),
		RemoteModel: remoteModel,
		Logger:      log,
	}
	engine, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	opts := []agent.Option{
		agent.WithPurpose(purpose),
		agent.WithLabels(transcriptLabels()),
		agent.WithOptions(generationOptions(c, cfg)),
		agent.WithLogger(log),
	}
	if c.IsSet("stop-marker") || cfg.StopMarker != nil {
		opts = append(opts, agent.WithStopMarker(stopMarker))
	}
	if s, ok := configuredSeed(c, cfg); ok {
		opts = append(opts, agent.WithSeed(s))
	}
	session := agent.New(engine, opts...)
	log.Debug("session ready", "session", session.ID(), "stop_marker", session.StopMarker())
	return session, nil
}
