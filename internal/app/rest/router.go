package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/christmas-fire/nexus-push/internal/log"
	"github.com/christmas-fire/nexus-push/internal/metrics"
	chatService "github.com/christmas-fire/nexus-push/internal/service/chat"
	userService "github.com/christmas-fire/nexus-push/internal/service/user"
)

const maxBodySize = 64 * 1024

func NewRouter(logger zerolog.Logger, chats *chatService.ChatService, users *userService.UserService) *chi.Mux {
	validate := validator.New()
	chatHandler := NewChatHandler(chats, validate)
	userHandler := NewUserHandler(users, validate)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(limitBody)

		r.Post("/users", userHandler.Register)
		r.Get("/users/{userID}", userHandler.Get)
		r.Post("/users/{userID}/fcm-tokens", userHandler.RegisterDeviceToken)

		r.Post("/chats", chatHandler.OpenChat)
		r.Post("/chats/{chatID}/messages", chatHandler.SendMessage)
	})

	return r
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		next.ServeHTTP(w, r)
	})
}

// requestLogger attaches a request-scoped logger to the context and logs
// one line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			l := logger.With().Str("request_id", chimw.GetReqID(r.Context())).Logger()
			r = r.WithContext(log.WithLogger(r.Context(), l))

			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()

			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("latency", time.Since(start)).
				Msg("http request")
		})
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
