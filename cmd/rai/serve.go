package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/rai/internal/api"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		noGreet     bool
	)

	flags := commonModelFlags()
	flags = append(flags, generationFlags()...)
	flags = append(flags, conversationFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve a single conversation over HTTP",
		Flags: append(flags,
			&cli.StringFlag{
				Name:        "purpose",
				Usage:       "purpose line of the conversation",
				Destination: &purpose,
			},
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.BoolFlag{
				Name:        "no-greet",
				Usage:       "start with an empty conversation instead of the opening message",
				Destination: &noGreet,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadCommandConfig(cmd)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			applyModelConfig(cmd, cfg)
			applyServeConfig(cmd, cfg, &addr)
			ctx, log := setupLogger(ctx)

			session, err := openSession(ctx, cmd, cfg, purpose)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			defer func() { _ = session.Close() }()

			if !noGreet {
				if _, err := session.Greet(ctx, nil); err != nil {
					log.Warn("opening message failed", "error", err)
				}
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := api.NewServer(session, log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "session", session.ID())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
