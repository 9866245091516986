package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/maxpert/modjournal/coordinator"
	"github.com/rs/zerolog/log"
)

// AdminHandlers serves read-only folder and subscription stats.
// Journal entries themselves are never exposed here.
type AdminHandlers struct {
	coord *coordinator.Coordinator
}

// NewAdminHandlers creates a new AdminHandlers instance
func NewAdminHandlers(coord *coordinator.Coordinator) *AdminHandlers {
	return &AdminHandlers{coord: coord}
}

// writeJSONResponse writes a successful JSON response
func writeJSONResponse(w http.ResponseWriter, data interface{}, hasMore bool, lastKey string) {
	response := map[string]interface{}{
		"data": data,
	}

	if hasMore || lastKey != "" {
		response["has_more"] = hasMore
		if lastKey != "" {
			response["last_key"] = lastKey
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error JSON response
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := map[string]interface{}{
		"error": message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}

// parseLimit parses limit parameter with defaults
func parseLimit(r *http.Request) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 256, nil // default
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %w", err)
	}

	if limit < 1 {
		return 0, fmt.Errorf("limit must be positive")
	}

	if limit > 1024 {
		return 0, fmt.Errorf("limit cannot exceed 1024")
	}

	return limit, nil
}

// handleHealth reports registry and router sizes
func (h *AdminHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	router := h.coord.Router()
	writeJSONResponse(w, map[string]interface{}{
		"status":      "ok",
		"folders":     h.coord.Registry().Len(),
		"channels":    router.ChannelCount(),
		"subscribers": router.SubscriberCount(),
	}, false, "")
}

// handleListFolders lists folder ids in order, paginated by ?from=<last id>&limit=N
func (h *AdminHandlers) handleListFolders(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	from := r.URL.Query().Get("from")

	ids := h.coord.Registry().List()
	start := 0
	if from != "" {
		start = sort.SearchStrings(ids, from)
		if start < len(ids) && ids[start] == from {
			start++
		}
	}

	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}
	page := ids[start:end]

	hasMore := end < len(ids)
	lastKey := ""
	if hasMore && len(page) > 0 {
		lastKey = page[len(page)-1]
	}
	writeJSONResponse(w, page, hasMore, lastKey)
}

// handleFolderStats returns counters for a single folder
func (h *AdminHandlers) handleFolderStats(w http.ResponseWriter, r *http.Request, folder string) {
	stats, ok := h.coord.Registry().Stats(folder)
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("folder '%s' not found", folder))
		return
	}
	writeJSONResponse(w, stats, false, "")
}

// handleFolderSubscribers returns the handler count on a folder's channel.
// The owner defaults to the folder's registered owner.
func (h *AdminHandlers) handleFolderSubscribers(w http.ResponseWriter, r *http.Request, folder string) {
	stats, ok := h.coord.Registry().Stats(folder)
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("folder '%s' not found", folder))
		return
	}

	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = stats.Owner
	}

	writeJSONResponse(w, map[string]interface{}{
		"owner":    owner,
		"folder":   folder,
		"channel":  string(h.coord.DeriveChannelKey(owner, folder)),
		"handlers": h.coord.Router().HandlerCount(owner, folder),
	}, false, "")
}
