package inference

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/samcharles93/rai/internal/logger"
	"github.com/samcharles93/rai/internal/toy"
)

// ErrNoModelPath is returned when no model location was configured.
var ErrNoModelPath = errors.New("model path is required")

// Loader opens the engine named by a model location: an http(s) URL selects
// the remote engine, anything else is read as a text corpus for the local
// n-gram model.
type Loader struct {
	// Order is the n-gram order for local models; zero means toy.DefaultOrder.
	Order int
	// RemoteModel is sent as the model name to remote servers.
	RemoteModel string
	HTTPClient  *http.Client
	Logger      logger.Logger
}

func (l Loader) Load(modelPath string) (Engine, error) {
	modelPath = strings.TrimSpace(modelPath)
	if modelPath == "" {
		return nil, ErrNoModelPath
	}
	log := l.Logger
	if log == nil {
		log = logger.Discard()
	}

	if isRemote(modelPath) {
		e := NewRemoteEngine(modelPath, l.RemoteModel, l.HTTPClient, log)
		log.Info("using remote model", "endpoint", e.Endpoint(), "model", l.RemoteModel)
		return e, nil
	}

	raw, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", modelPath, err)
	}
	m, err := toy.Train(string(raw), l.Order)
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", modelPath, err)
	}
	log.Info("loaded local model", "path", modelPath, "vocab", m.Vocab.Size(), "order", m.Order)
	return NewLocalEngine(m, log), nil
}

func isRemote(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
