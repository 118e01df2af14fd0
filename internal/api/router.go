package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sporelabs/sporeverse/internal/api/handler"
	"github.com/sporelabs/sporeverse/internal/api/response"
	"github.com/sporelabs/sporeverse/internal/middleware"
	"github.com/sporelabs/sporeverse/internal/services/credential"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Credentials *credential.Service
	// Socket handles GET /ws upgrades; nil disables the route
	Socket http.Handler
}

// NewRouter creates a new router with all routes configured. The login
// endpoints live at the root so existing clients keep working.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(cfg.Credentials)

	r.Use(middleware.Recovery(cfg.Logger, panicHandler))
	r.Use(middleware.Logging(cfg.Logger))

	r.HandleFunc("/nonce/{address}", authHandler.Nonce).Methods(http.MethodGet)
	r.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/keycheck", authHandler.Keycheck).Methods(http.MethodGet)
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	if cfg.Socket != nil {
		r.Handle("/ws", cfg.Socket).Methods(http.MethodGet)
	}

	return r
}

func panicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	response.Error(w, http.StatusInternalServerError, "internal error")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
}
