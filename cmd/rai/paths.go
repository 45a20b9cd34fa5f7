package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/samcharles93/rai/internal/inference"
)

const envModelPath = "MODEL_PATH"

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

// resolveModelPath picks the model location: the --model flag, then
// $MODEL_PATH, then model_path from the config file.
func resolveModelPath(modelFlag string, cfg Config) (string, error) {
	candidates := []string{
		modelFlag,
		os.Getenv(envModelPath),
		cfg.ModelPath,
	}
	for _, p := range candidates {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if isURL(p) {
			return p, nil
		}
		return filepath.Clean(expandHome(p)), nil
	}
	return "", fmt.Errorf("%w: set --model, $%s or model_path in %s",
		inference.ErrNoModelPath, envModelPath, configPath())
}

func isURL(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
