package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mirrorpond/internal/manager"
	"mirrorpond/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *manager.Manager implements it.
type Service interface {
	Reflect(ctx context.Context, req manager.ReflectionRequest) (manager.ReflectionResult, error)
	Stream(ctx context.Context, req manager.ReflectionRequest, onChunk func(manager.Chunk) error) (manager.ReflectionResult, error)
	Scroll(ctx context.Context, n int) (manager.ReflectionResult, error)
	FormatPreview(req manager.ReflectionRequest) (types.FormatPreviewResponse, error)
	Modes() []types.ModeInfo
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled() {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: corsMethods,
			AllowedHeaders: corsHeaders,
			MaxAge:         300,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	// Compression only for the buffered JSON endpoints; streams flush per token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5, "application/json"))
		r.Get("/modes", handleModes(svc))
		r.Get("/status", handleStatus(svc))
		r.Post("/reflect", handleReflect(svc))
		r.Get("/scroll/{n}", handleScroll(svc))
		r.Get("/encryption/{code}", handleEncryption)
		r.Post("/debug/format", handleFormatPreview(svc))
	})
	r.Post("/reflect/stream", handleReflectStream(svc))
	r.Get("/ws", handleWebSocket(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountUI(r)
	MountSwagger(r)
	return r
}

func handleModes(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ModesResponse{Modes: svc.Modes()})
	}
}

func handleStatus(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	}
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
