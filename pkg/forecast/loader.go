package forecast

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/cardia-ai/platform/pkg/common/config"
	"github.com/cardia-ai/platform/pkg/common/httpclient"
	"github.com/cardia-ai/platform/pkg/common/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	engineOnce   sync.Once
	engineHandle Engine
	engineErr    error
)

// LoadEngine resolves the forecasting engine once per process. The first
// successful load wins and is never invalidated. Mode "remote" and "legacy"
// force a flavour; "auto" tries the modern serving API first and falls back
// to the legacy one.
func LoadEngine(cfg *config.Config) (Engine, error) {
	engineOnce.Do(func() {
		engineHandle, engineErr = buildEngine(cfg)
	})
	return engineHandle, engineErr
}

func buildEngine(cfg *config.Config) (Engine, error) {
	client := engineClient(cfg)

	switch cfg.EngineMode {
	case "remote":
		return NewRemoteEngine(cfg.EngineBaseURL, client)
	case "legacy":
		return NewLegacyEngine(cfg.EngineBaseURL, client)
	case "auto", "":
		engine, err := NewRemoteEngine(cfg.EngineBaseURL, client)
		if err == nil {
			logger.Log.WithField("model", engine.Name()).Info("Using modern forecasting engine API")
			return engine, nil
		}
		logger.Log.WithError(err).Warn("Modern engine API not available, probing legacy API")

		legacy, legacyErr := NewLegacyEngine(cfg.EngineBaseURL, client)
		if legacyErr == nil {
			logger.Log.Info("Using legacy forecasting engine API")
			return legacy, nil
		}
		return nil, fmt.Errorf("%w: neither modern nor legacy API responded", ErrEngineUnavailable)
	default:
		return nil, fmt.Errorf("unknown engine mode %q", cfg.EngineMode)
	}
}

func engineClient(cfg *config.Config) *http.Client {
	base := httpclient.New(cfg.EngineTimeout)
	if cfg.EngineTokenURL == "" {
		return base
	}

	creds := clientcredentials.Config{
		ClientID:     cfg.EngineClientID,
		ClientSecret: cfg.EngineClientSecret,
		TokenURL:     cfg.EngineTokenURL,
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := creds.Client(ctx)
	client.Timeout = cfg.EngineTimeout
	return client
}
