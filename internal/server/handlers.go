package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voyagen/stalker2m3u/internal/cache"
	"github.com/voyagen/stalker2m3u/internal/models"
	"github.com/voyagen/stalker2m3u/internal/playlist"
	"github.com/voyagen/stalker2m3u/internal/service"
	"github.com/voyagen/stalker2m3u/internal/store"
)

// maxRequestBody caps convert request bodies.
const maxRequestBody = 64 << 10

type convertRequest struct {
	PortalURL  string `json:"portalUrl"`
	MACAddress string `json:"macAddress"`
	SessionID  string `json:"sessionId,omitempty"`
	Mode       string `json:"mode,omitempty"`
}

func (c convertRequest) toService() service.Request {
	return service.Request{
		PortalURL:  c.PortalURL,
		MACAddress: c.MACAddress,
		SessionID:  strings.TrimSpace(c.SessionID),
		Mode:       models.EnumerationMode(strings.ToLower(strings.TrimSpace(c.Mode))),
	}
}

type convertResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	models.Counts
	M3UContent  string `json:"m3uContent,omitempty"`
	PlaylistURL string `json:"playlistUrl,omitempty"`
}

func decodeConvertRequest(w http.ResponseWriter, r *http.Request) (convertRequest, error) {
	var req convertRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid JSON: %w", err)
	}
	return req, nil
}

func playlistURL(sessionID string) string {
	return "/api/conversions/" + sessionID + "/playlist.m3u"
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.redis == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	if err := s.redis.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "redis": err.Error()})
		return
	}
	queued, err := cache.QueueLength(r.Context(), s.redis, cache.DefaultQueue)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "redis": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "queuedJobs": queued})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	req, err := decodeConvertRequest(w, r)
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}

	conv, err := s.conv.Convert(r.Context(), req.toService())
	if err != nil {
		writeErr(w, r, statusForConvertError(err), err)
		return
	}

	resp := convertResponse{Success: true, SessionID: conv.SessionID, Counts: conv.Counts}
	if s.cfg.InlinePlaylist {
		resp.M3UContent = conv.Playlist
	} else {
		resp.PlaylistURL = playlistURL(conv.SessionID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusForConvertError(err error) int {
	switch {
	case service.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, cache.ErrLocked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	if s.redis == nil {
		writeErr(w, r, http.StatusServiceUnavailable, errors.New("async conversions require Redis (REDIS_URL not set)"))
		return
	}
	req, err := decodeConvertRequest(w, r)
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}
	id, err := s.conv.Enqueue(r.Context(), s.redis, req.toService())
	if err != nil {
		writeErr(w, r, statusForConvertError(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"success":   true,
		"sessionId": id,
		"status":    service.JobQueued,
	})
}

func (s *Server) handleListConversions(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErr(w, r, http.StatusBadRequest, fmt.Errorf("invalid limit: %s", v))
			return
		}
		limit = store.ClampLimit(n)
	}
	list, err := s.store.ListConversions(r.Context(), limit)
	if err != nil {
		writeErr(w, r, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []models.Conversion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"conversions": list,
		"limit":       limit,
	})
}

// handleGetConversion returns a stored conversion's summary. While an async
// job is still pending it reports the job state instead.
func (s *Server) handleGetConversion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, err := s.store.GetConversion(r.Context(), id)
	if err == nil {
		conv.Playlist = ""
		conv.Entries = nil
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "conversion": conv})
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		writeErr(w, r, http.StatusInternalServerError, err)
		return
	}
	if s.redis != nil {
		if st, jerr := service.GetJobStatus(r.Context(), s.redis, id); jerr == nil {
			status := http.StatusAccepted
			if st.Status == service.JobFailed {
				status = http.StatusOK
			}
			writeJSON(w, status, map[string]any{"success": st.Status != service.JobFailed, "job": st})
			return
		}
	}
	writeErr(w, r, http.StatusNotFound, fmt.Errorf("conversion %s not found", id))
}

func (s *Server) handleDownloadPlaylist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, ok := s.lookup(w, r, id)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "audio/x-mpegurl; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "playlist-"+id+".m3u"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(conv.Playlist))
}

// handleListEntries serves persisted entry rows, falling back to parsing the
// stored playlist for conversions saved without them.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entries, err := s.store.ListEntries(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, r, http.StatusNotFound, fmt.Errorf("conversion %s not found", id))
			return
		}
		writeErr(w, r, http.StatusInternalServerError, err)
		return
	}
	if len(entries) == 0 {
		conv, ok := s.lookup(w, r, id)
		if !ok {
			return
		}
		if entries, err = playlist.Parse(strings.NewReader(conv.Playlist)); err != nil {
			writeErr(w, r, http.StatusInternalServerError, fmt.Errorf("parse stored playlist: %w", err))
			return
		}
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "entries": entries})
}

func (s *Server) handleDeleteConversion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteConversion(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, r, http.StatusNotFound, fmt.Errorf("conversion %s not found", id))
			return
		}
		writeErr(w, r, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lookup loads a conversion and writes the error response itself when it
// cannot.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, id string) (*models.Conversion, bool) {
	conv, err := s.store.GetConversion(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, r, http.StatusNotFound, fmt.Errorf("conversion %s not found", id))
		} else {
			writeErr(w, r, http.StatusInternalServerError, err)
		}
		return nil, false
	}
	return conv, true
}
