package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"article-reader/internal/config"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(container *config.Container) http.Handler {
	router := mux.NewRouter()

	// API prefix
	api := router.PathPrefix("/api/v1").Subrouter()

	// Health check endpoint
	router.HandleFunc("/health", healthCheck(container)).Methods("GET")

	// Initialize handlers
	highlightHandler := NewHighlightHandler(container, container.Logger)
	articleHandler := NewArticleHandler(container, container.Logger)
	wsHandler := NewWSHandler(container, container.Logger)

	// Highlight routes. The export route is registered before the {id}
	// routes so "export" is never taken for a stable id.
	api.HandleFunc("/highlights/export", highlightHandler.ExportHighlights).Methods("GET")
	api.HandleFunc("/highlights", highlightHandler.OpenArticle).Methods("GET")
	api.HandleFunc("/highlights", highlightHandler.CreateHighlight).Methods("POST")
	api.HandleFunc("/highlights/{id}", highlightHandler.UpdateHighlight).Methods("PATCH")
	api.HandleFunc("/highlights/{id}", highlightHandler.DeleteHighlight).Methods("DELETE")
	api.HandleFunc("/sync/retry", highlightHandler.RetrySync).Methods("POST")

	// Article and overview routes
	api.HandleFunc("/articles", articleHandler.GetArticle).Methods("GET")
	api.HandleFunc("/annotated", highlightHandler.ListAnnotated).Methods("GET")

	// State stream
	router.HandleFunc("/ws", wsHandler.Stream).Methods("GET")

	router.Use(LoggingMiddleware(container.Logger))

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: container.Config.GetAllowedOrigins(),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
		},
		MaxAge: 300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}

// healthCheck reports liveness plus whether the local store answers.
func healthCheck(container *config.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if container.DB != nil {
			if err := container.DB.PingContext(r.Context()); err != nil {
				container.Logger.Error("store unreachable", err)
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		w.Write([]byte(`{"status":"` + status + `","service":"article-reader"}`))
	}
}
