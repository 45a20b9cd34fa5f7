package main

import "github.com/urfave/cli/v3"

var (
	modelPath   string
	remoteModel string
	order       int64
	configFile  string

	maxTokens     int64
	temperature   float64
	topK          int64
	topP          float64
	minP          float64
	repeatPenalty float64
	repeatLastN   int64
	seed          int64

	purpose    string
	userLabel  string
	agentLabel string
	persona    string
	stopMarker string

	logLevel  string
	logFormat string
	debug     bool
)

// Flags are marked Local so the root chat flags do not leak into serve,
// which declares its own copies.

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "corpus file for the local model, or http(s) URL of a completions server (falls back to $MODEL_PATH)",
			Local:       true,
			Destination: &modelPath,
		},
		&cli.StringFlag{
			Name:        "remote-model",
			Usage:       "model name sent to a remote completions server",
			Local:       true,
			Destination: &remoteModel,
		},
		&cli.Int64Flag{
			Name:        "order",
			Usage:       "n-gram order of the local model",
			Value:       3,
			Local:       true,
			Destination: &order,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "config file (default $XDG_CONFIG_HOME/rai/config.yaml)",
			Local:       true,
			Destination: &configFile,
		},
	}
}

func generationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "max-tokens",
			Aliases:     []string{"n"},
			Usage:       "maximum tokens per reply (-1 for no limit)",
			Value:       256,
			Local:       true,
			Destination: &maxTokens,
		},
		&cli.Float64Flag{
			Name:        "temperature",
			Aliases:     []string{"temp", "t"},
			Usage:       "sampling temperature (0 for greedy)",
			Value:       0.8,
			Local:       true,
			Destination: &temperature,
		},
		&cli.Int64Flag{
			Name:        "top-k",
			Usage:       "top-k sampling",
			Value:       40,
			Local:       true,
			Destination: &topK,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Usage:       "top-p sampling",
			Value:       0.95,
			Local:       true,
			Destination: &topP,
		},
		&cli.Float64Flag{
			Name:        "min-p",
			Usage:       "min-p sampling",
			Value:       0.05,
			Local:       true,
			Destination: &minP,
		},
		&cli.Float64Flag{
			Name:        "repeat-penalty",
			Usage:       "repetition penalty",
			Value:       1.1,
			Local:       true,
			Destination: &repeatPenalty,
		},
		&cli.Int64Flag{
			Name:        "repeat-last-n",
			Usage:       "tokens considered by the repetition penalty",
			Value:       64,
			Local:       true,
			Destination: &repeatLastN,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "random seed (default: time based)",
			Local:       true,
			Destination: &seed,
		},
	}
}

func conversationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "user-label",
			Usage:       "transcript label for the human side",
			Value:       "Human",
			Local:       true,
			Destination: &userLabel,
		},
		&cli.StringFlag{
			Name:        "agent-label",
			Usage:       "transcript label for the model side",
			Value:       "AI",
			Local:       true,
			Destination: &agentLabel,
		},
		&cli.StringFlag{
			Name:        "persona",
			Usage:       "first line of every transcript",
			Value:       "A chat between a Human and an AI.",
			Local:       true,
			Destination: &persona,
		},
		&cli.StringFlag{
			Name:        "stop-marker",
			Usage:       "text that ends a reply (default: the user label)",
			Local:       true,
			Destination: &stopMarker,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "warn",
			Local:       true,
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Local:       true,
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Local:       true,
			Destination: &debug,
		},
	}
}
