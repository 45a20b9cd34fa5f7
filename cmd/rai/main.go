package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:      "rai",
		Usage:     "Chat with a text model from the terminal",
		ArgsUsage: "[purpose]",
		Flags:     chatFlags(),
		Action:    runChat,
		Commands: []*cli.Command{
			serveCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
