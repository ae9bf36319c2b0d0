package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/swiftbasket/swiftbasket-backend/api/responses"
	"github.com/swiftbasket/swiftbasket-backend/pkg/config"
	pkgerrors "github.com/swiftbasket/swiftbasket-backend/pkg/errors"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is any dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SwiftBasket-Env", cfg.App.Env)
		responses.WriteSuccess(w, "", map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SwiftBasket-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var unavailable error
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				unavailable = multierr.Append(unavailable, fmt.Errorf("%s: %w", name, err))
			}
		}
		if unavailable != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, unavailable, "dependencies unavailable"))
			return
		}

		responses.WriteSuccess(w, "", map[string]string{"status": "ready"})
	}
}
