package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arcade-catalog/internal/domain"
	"github.com/arcade-catalog/internal/service"
	"github.com/arcade-catalog/internal/websocket"
)

// maxBodyBytes bounds request bodies; backups are the largest payload
const maxBodyBytes = 32 << 20

// Handler provides HTTP handlers for the catalog API
type Handler struct {
	service *service.CatalogService
	hub     *websocket.Hub
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.CatalogService, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

// APIResponse is the envelope around every JSON API response
type APIResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Route("/games", func(r chi.Router) {
			r.Get("/", h.ListGames)
			r.Post("/", h.CreateGame)
			r.Delete("/", h.DeleteAllGames)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetGame)
				r.Put("/", h.UpdateGame)
				r.Delete("/", h.DeleteGame)
			})
		})

		r.Route("/genres", func(r chi.Router) {
			r.Get("/", h.ListGenreMappings)
			r.Post("/", h.CreateGenreMapping)
			r.Get("/counts", h.GenreCounts)
			r.Put("/{id}", h.PutGenreMapping)
			r.Delete("/{id}", h.DeleteGenreMapping)
		})

		r.Route("/settings/{key}", func(r chi.Router) {
			r.Get("/", h.GetSetting)
			r.Put("/", h.PutSetting)
		})

		r.Route("/redirects", func(r chi.Router) {
			r.Get("/", h.ListRedirects)
			r.Post("/backfill", h.BackfillRedirects)
			r.Get("/resolve/{slug}", h.ResolveRedirect)
			r.Delete("/{oldSlug}", h.DeleteRedirect)
		})

		r.Get("/backup", h.ExportBackup)
		r.Post("/backup", h.RestoreBackup)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		OK:   true,
		Data: data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		OK:    false,
		Error: err.Error(),
	})
}

// writeServiceError maps a service error onto a status code. Unexpected
// errors are logged and reported with a generic message.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case domain.IsValidationError(err):
		h.writeError(w, http.StatusBadRequest, err)
	default:
		h.logger.Error("failed to "+action, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// decodeBody decodes a JSON request body into v
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

// readBody returns the raw request body
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: body too large", domain.ErrInvalidRequest)
		}
		return nil, err
	}
	return data, nil
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	topics := map[string]int{}
	for _, topic := range []string{domain.TopicGames, domain.TopicGenres, domain.TopicRedirects, domain.TopicSettings} {
		topics[topic] = h.hub.SubscriberCount(topic)
	}
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.TotalConnections(),
		"subscribers":       topics,
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck reports whether storage is reachable
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, errors.New("storage unavailable"))
		return
	}
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// ---------- games ----------

// ListGames returns the catalog; playable=1 limits it to playable games
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	var (
		games []domain.Game
		err   error
	)
	if q := r.URL.Query().Get("playable"); q == "1" || q == "true" {
		games, err = h.service.ListPlayableGames(r.Context())
	} else {
		games, err = h.service.ListGames(r.Context())
	}
	if err != nil {
		h.writeServiceError(w, err, "list games")
		return
	}
	h.writeSuccess(w, games)
}

// CreateGame adds a game to the catalog
func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateGameRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	game, err := h.service.CreateGame(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "create game")
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		OK:   true,
		Data: game,
	})
}

// GetGame looks a game up by id, slug or historical slug
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.service.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "get game")
		return
	}
	h.writeSuccess(w, resolved)
}

// UpdateGame applies a partial update
func (h *Handler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	var patch domain.GamePatch
	if err := decodeBody(w, r, &patch); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	game, err := h.service.UpdateGame(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeServiceError(w, err, "update game")
		return
	}
	h.writeSuccess(w, game)
}

// DeleteGame removes a game
func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.DeleteGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "delete game")
		return
	}
	h.writeSuccess(w, game)
}

// DeleteAllGames wipes the catalog
func (h *Handler) DeleteAllGames(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.DeleteAllGames(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "delete all games")
		return
	}
	h.writeSuccess(w, map[string]int{"deleted": n})
}

// ---------- genres ----------

// ListGenreMappings returns every genre mapping
func (h *Handler) ListGenreMappings(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListGenreMappings(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "list genre mappings")
		return
	}
	h.writeSuccess(w, items)
}

// CreateGenreMapping adds a genre mapping
func (h *Handler) CreateGenreMapping(w http.ResponseWriter, r *http.Request) {
	var req domain.GenreMappingRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	item, err := h.service.CreateGenreMapping(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "create genre mapping")
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		OK:   true,
		Data: item,
	})
}

// PutGenreMapping creates or replaces the mapping with the given id
func (h *Handler) PutGenreMapping(w http.ResponseWriter, r *http.Request) {
	var req domain.GenreMappingRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	item, err := h.service.PutGenreMapping(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, err, "save genre mapping")
		return
	}
	h.writeSuccess(w, item)
}

// DeleteGenreMapping removes a genre mapping
func (h *Handler) DeleteGenreMapping(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteGenreMapping(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "delete genre mapping")
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}

// GenreCounts returns canonical genres with their game counts
func (h *Handler) GenreCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.GenreCounts(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "count genres")
		return
	}
	h.writeSuccess(w, counts)
}

// ---------- settings ----------

// GetSetting returns a setting. Choice settings answer with their default
// when unset; other keys return the stored JSON value.
func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if choice, ok := service.LookupChoiceSetting(key); ok {
		h.writeSuccess(w, map[string]string{choice.Field: h.service.GetChoice(r.Context(), choice)})
		return
	}

	value, err := h.service.GetSetting(r.Context(), key)
	if err != nil {
		h.writeServiceError(w, err, "get setting")
		return
	}
	h.writeSuccess(w, domain.Setting{Key: key, Value: value})
}

// PutSetting stores a setting. Choice settings take {"<field>": "<value>"};
// other keys store the request body verbatim.
func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	body, err := readBody(w, r)
	if err != nil {
		h.writeServiceError(w, err, "read setting")
		return
	}

	if choice, ok := service.LookupChoiceSetting(key); ok {
		var req map[string]interface{}
		if err := json.Unmarshal(body, &req); err != nil {
			h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
			return
		}
		value, _ := req[choice.Field].(string)
		if err := h.service.SetChoice(r.Context(), choice, strings.TrimSpace(value)); err != nil {
			h.writeServiceError(w, err, "save setting")
			return
		}
		h.writeSuccess(w, map[string]string{choice.Field: strings.TrimSpace(value)})
		return
	}

	if err := h.service.SetSetting(r.Context(), key, body); err != nil {
		h.writeServiceError(w, err, "save setting")
		return
	}
	h.writeSuccess(w, domain.Setting{Key: key, Value: body})
}

// ---------- redirects ----------

// ListRedirects returns every slug redirect with its target's current state
func (h *Handler) ListRedirects(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListRedirects(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "list redirects")
		return
	}
	h.writeSuccess(w, items)
}

// ResolveRedirect returns the game id a historical slug points at
func (h *Handler) ResolveRedirect(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	id, err := h.service.ResolveRedirect(r.Context(), slug)
	if err != nil {
		h.writeServiceError(w, err, "resolve redirect")
		return
	}
	h.writeSuccess(w, domain.SlugRedirect{OldSlug: slug, GameID: id})
}

// DeleteRedirect removes one redirect
func (h *Handler) DeleteRedirect(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRedirect(r.Context(), chi.URLParam(r, "oldSlug")); err != nil {
		h.writeServiceError(w, err, "delete redirect")
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}

// BackfillRedirects creates redirects from an older backup's slugs
func (h *Handler) BackfillRedirects(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.writeServiceError(w, err, "read backfill")
		return
	}

	games, err := service.ParseBackup(body)
	if err != nil {
		h.writeServiceError(w, err, "parse backfill")
		return
	}

	result, err := h.service.BackfillRedirects(r.Context(), games)
	if err != nil {
		h.writeServiceError(w, err, "backfill redirects")
		return
	}
	h.writeSuccess(w, result)
}

// ---------- backup ----------

// ExportBackup returns the catalog as a pretty-printed backup document,
// served as a download unless download=0
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	backup, err := h.service.ExportBackup(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "export backup")
		return
	}

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		h.writeServiceError(w, err, "encode backup")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if r.URL.Query().Get("download") != "0" {
		name := "arcade-backup-" + time.Now().UTC().Format("20060102-150405") + ".json"
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(append(data, '\n'))
}

// RestoreBackup upserts every game in an uploaded backup
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.writeServiceError(w, err, "read backup")
		return
	}

	games, err := service.ParseBackup(body)
	if err != nil {
		h.writeServiceError(w, err, "parse backup")
		return
	}

	n, err := h.service.RestoreBackup(r.Context(), games)
	if err != nil {
		h.writeServiceError(w, err, "restore backup")
		return
	}
	h.writeSuccess(w, map[string]int{"count": n})
}
