// Package api mounts the plain HTTP ops endpoints a device exposes next to
// its wire socket: a liveness probe and an operational status document.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/logging"
	"github.com/sensemesh/iot-control-loop/internal/pkg/infrastructure/tracing"
	"github.com/sensemesh/iot-control-loop/pkg/types"
)

var tracer = otel.Tracer("iot-control-loop/api")

// StatusFunc reports the current operational snapshot of a running device.
type StatusFunc func() types.DeviceStatus

func RegisterHandlers(ctx context.Context, router *chi.Mux, status StatusFunc) *chi.Mux {
	log := logging.GetLoggerFromContext(ctx)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v0", func(r chi.Router) {
		r.Get("/status", getStatusHandler(log, status))
	})

	return router
}

func getStatusHandler(log zerolog.Logger, status StatusFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		_, span := tracer.Start(r.Context(), "get-status")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		b, err := json.Marshal(status())
		if err != nil {
			log.Error().Err(err).Msg("unable to marshal device status")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	}
}
