package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/keymint/keymint/internal/metrics"
	"github.com/keymint/keymint/internal/model"
)

// JWKSProvider builds the published key set.
type JWKSProvider interface {
	BuildJWKS(ctx context.Context, now time.Time) (model.JWKS, error)
}

// JWKSHandler serves the public signing keys.
type JWKSHandler struct {
	provider JWKSProvider
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewJWKSHandler creates a JWKSHandler. A nil recorder falls back to
// no-op metrics.
func NewJWKSHandler(provider JWKSProvider, logger *slog.Logger, recorder metrics.Recorder) *JWKSHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &JWKSHandler{provider: provider, logger: logger, metrics: recorder}
}

// Get serves the key set. A build failure means a corrupted or
// mis-sealed key record, which is an internal error; no partial key
// set is ever returned.
//
// GET /.well-known/jwks.json
func (h *JWKSHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncJWKSRequest()

	jwks, err := h.provider.BuildJWKS(r.Context(), time.Now())
	if err != nil {
		h.logger.Error("failed to build JWKS", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, jwks)
}
