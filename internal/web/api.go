package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/runixer/mediagrab/internal/storage"
)

type downloadsResponse struct {
	Downloads []storage.DownloadRecord `json:"downloads"`
}

type summaryResponse struct {
	storage.Summary
	Size  string `json:"size"`
	Since string `json:"since,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// downloadsHandler handles GET /api/downloads?guild_id=&channel_id=&limit=.
func (s *Server) downloadsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.DownloadFilter{
		GuildID:   q.Get("guild_id"),
		ChannelID: q.Get("channel_id"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		filter.Limit = limit
	}

	records, err := s.journal.RecentDownloads(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list downloads", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list downloads")
		return
	}
	if records == nil {
		records = []storage.DownloadRecord{}
	}
	writeJSON(w, http.StatusOK, downloadsResponse{Downloads: records})
}

// summaryHandler handles GET /api/downloads/summary?since=24h. Without
// since the whole journal is summarised.
func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid since %q", raw))
			return
		}
		since = time.Now().Add(-d)
	}

	sum, err := s.journal.DownloadSummary(r.Context(), since)
	if err != nil {
		s.logger.Error("failed to summarise downloads", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to summarise downloads")
		return
	}

	resp := summaryResponse{Summary: sum, Size: humanize.IBytes(uint64(max(sum.Bytes, 0)))}
	if !since.IsZero() {
		resp.Since = since.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
