// Package handler exposes the directory over a small JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pecadir/internal/domain"
	"pecadir/internal/logger"
	"pecadir/internal/repository"
	"pecadir/internal/service"
	"pecadir/internal/task"
)

// APIHandler serves the JSON API
type APIHandler struct {
	engine       *service.FilterEngine
	favoriteRepo repository.FavoriteRepository
	ypRepo       repository.YellowPageRepository
	liveRepo     repository.LiveChannelRepository
	playback     *service.PlaybackService
	tester       *service.SpeedTester
	pipeline     *task.Pipeline
	log          *logger.Logger
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(
	engine *service.FilterEngine,
	favoriteRepo repository.FavoriteRepository,
	ypRepo repository.YellowPageRepository,
	liveRepo repository.LiveChannelRepository,
	playback *service.PlaybackService,
	tester *service.SpeedTester,
	pipeline *task.Pipeline,
	log *logger.Logger,
) *APIHandler {
	return &APIHandler{
		engine:       engine,
		favoriteRepo: favoriteRepo,
		ypRepo:       ypRepo,
		liveRepo:     liveRepo,
		playback:     playback,
		tester:       tester,
		pipeline:     pipeline,
		log:          log,
	}
}

// RegisterRoutes attaches every API route to mux
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.HandleFunc("GET /api/channels", h.HandleChannels)
	mux.HandleFunc("GET /api/yellowpages", h.HandleListYellowPages)
	mux.HandleFunc("POST /api/yellowpages", h.HandleUpsertYellowPage)
	mux.HandleFunc("DELETE /api/yellowpages/{name}", h.HandleDeleteYellowPage)
	mux.HandleFunc("GET /api/favorites", h.HandleListFavorites)
	mux.HandleFunc("POST /api/favorites", h.HandleUpsertFavorite)
	mux.HandleFunc("DELETE /api/favorites/{name}", h.HandleDeleteFavorite)
	mux.HandleFunc("POST /api/sync", h.HandleSync)
	mux.HandleFunc("POST /api/play", h.HandlePlay)
	mux.HandleFunc("POST /api/speedtest", h.HandleSpeedTest)
}

// channelJSON is the wire shape of one directory entry
type channelJSON struct {
	Name         string `json:"name"`
	ID           string `json:"id"`
	Genre        string `json:"genre,omitempty"`
	Description  string `json:"description,omitempty"`
	Comment      string `json:"comment,omitempty"`
	ContactURL   string `json:"contactUrl,omitempty"`
	Listeners    int    `json:"listeners"`
	Relays       int    `json:"relays"`
	Bitrate      int    `json:"bitrate"`
	Type         string `json:"type,omitempty"`
	Age          string `json:"age,omitempty"`
	YpName       string `json:"yp"`
	Kind         string `json:"kind"`
	NumLoaded    int    `json:"numLoaded,omitempty"`
	Playable     bool   `json:"playable"`
	LastPlayedAt string `json:"lastPlayedAt,omitempty"`
}

func entryJSON(e *domain.DirectoryEntry) channelJSON {
	kind := "live"
	if e.Kind == domain.KindHistory {
		kind = "history"
	}
	out := channelJSON{
		Name:        e.Name,
		ID:          e.ID,
		Genre:       e.Genre,
		Description: e.Description,
		Comment:     e.Comment,
		ContactURL:  e.URL,
		Listeners:   e.Listeners,
		Relays:      e.Relays,
		Bitrate:     e.Bitrate,
		Type:        e.Type,
		Age:         e.Age,
		YpName:      e.YpName,
		Kind:        kind,
		NumLoaded:   e.NumLoaded,
		Playable:    e.Playable,
	}
	if !e.LastPlayedAt.IsZero() {
		out.LastPlayedAt = e.LastPlayedAt.UTC().Format(time.RFC3339)
	}
	return out
}

// HandleHealth reports liveness
// GET /healthz
func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleChannels serves a filtered, ordered channel view
// GET /api/channels?source=live|history&q=...&order=...&view=all|favorites
func (h *APIHandler) HandleChannels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := domain.FilterParams{
		Order:       domain.OrderFromString(q.Get("order")),
		SearchQuery: q.Get("q"),
	}
	if q.Get("source") == "history" {
		params.Source = domain.SourceHistory
		if q.Get("order") == "" {
			params.Order = domain.OrderNone
		}
	}

	favorites, err := h.favoriteRepo.GetAll(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	switch q.Get("view") {
	case "favorites":
		params.Selector = service.SelectorFromFavorites(favorites, h.log)
	default:
		params.Selector = service.NGFilter(favorites, h.log)
	}

	list, err := h.engine.Compute(r.Context(), params)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	channels := make([]channelJSON, 0, len(list.Channels))
	for i := range list.Channels {
		channels = append(channels, entryJSON(&list.Channels[i]))
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"source":   params.Source.String(),
		"order":    params.Order.String(),
		"query":    params.SearchQuery,
		"channels": channels,
	})
}

type yellowPageJSON struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

// HandleListYellowPages lists configured yellow pages
// GET /api/yellowpages
func (h *APIHandler) HandleListYellowPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.ypRepo.GetAll(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]yellowPageJSON, 0, len(pages))
	for _, yp := range pages {
		out = append(out, yellowPageJSON{Name: yp.Name, URL: yp.URL, Enabled: yp.Enabled})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// HandleUpsertYellowPage creates or replaces a yellow page
// POST /api/yellowpages
func (h *APIHandler) HandleUpsertYellowPage(w http.ResponseWriter, r *http.Request) {
	var in yellowPageJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if in.Name == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}

	yp := &domain.YellowPage{Name: in.Name, URL: in.URL, Enabled: in.Enabled}
	if err := h.ypRepo.Upsert(r.Context(), yp); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, in)
}

// HandleDeleteYellowPage removes a yellow page
// DELETE /api/yellowpages/{name}
func (h *APIHandler) HandleDeleteYellowPage(w http.ResponseWriter, r *http.Request) {
	if err := h.ypRepo.Delete(r.Context(), r.PathValue("name")); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type favoriteJSON struct {
	Name    string               `json:"name"`
	Pattern string               `json:"pattern"`
	Flags   domain.FavoriteFlags `json:"flags"`
	Enabled bool                 `json:"enabled"`
}

// HandleListFavorites lists favorite rules
// GET /api/favorites
func (h *APIHandler) HandleListFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.favoriteRepo.GetAll(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]favoriteJSON, 0, len(favorites))
	for _, fav := range favorites {
		out = append(out, favoriteJSON{
			Name:    fav.Name,
			Pattern: fav.Pattern,
			Flags:   fav.Flags,
			Enabled: fav.Enabled,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// HandleUpsertFavorite creates or replaces a favorite rule
// POST /api/favorites
func (h *APIHandler) HandleUpsertFavorite(w http.ResponseWriter, r *http.Request) {
	var in favoriteJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if in.Name == "" || in.Pattern == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("name and pattern are required"))
		return
	}

	fav := &domain.Favorite{
		Name:    in.Name,
		Pattern: in.Pattern,
		Flags:   in.Flags,
		Enabled: in.Enabled,
	}
	// Reject patterns that could never match.
	if _, err := fav.Matches(&domain.Channel{}); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.favoriteRepo.Upsert(r.Context(), fav); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, in)
}

// HandleDeleteFavorite removes a favorite rule
// DELETE /api/favorites/{name}
func (h *APIHandler) HandleDeleteFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.favoriteRepo.Delete(r.Context(), r.PathValue("name")); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSync runs one sync cycle and reports the outcome
// POST /api/sync?force=1
func (h *APIHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "1"

	result, err := h.pipeline.Run(r.Context(), force)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runId":    result.RunID,
		"forced":   result.Forced,
		"skipped":  result.Skipped,
		"channels": result.Channels,
		"notified": result.Notified,
		"errors":   len(result.SourceErrs),
	})
}

// HandlePlay records a playback and returns the local stream URL
// POST /api/play
func (h *APIHandler) HandlePlay(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	live, err := h.liveRepo.GetByNameAndID(r.Context(), in.Name, in.ID)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	streamURL, err := h.playback.StreamURL(&live.Channel)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	if err := h.playback.RecordPlay(r.Context(), &live.Channel, time.Now().UTC()); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"streamUrl": streamURL})
}

// HandleSpeedTest runs a bandwidth check against one yellow page
// POST /api/speedtest?yp=NAME
func (h *APIHandler) HandleSpeedTest(w http.ResponseWriter, r *http.Request) {
	ypName := r.URL.Query().Get("yp")
	if ypName == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("yp parameter is required"))
		return
	}

	result, err := h.tester.Run(r.Context(), ypName, nil)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"yp":        result.YpName,
		"status":    result.Status(),
		"speedKbps": result.Config.Host.SpeedKbps,
		"portOpen":  result.Config.Host.IsPortOpen,
		"over":      result.Config.Host.IsOver,
	})
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", map[string]interface{}{"error": err.Error()})
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSourceFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
