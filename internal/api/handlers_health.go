// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/bookshelf/internal/snapshot"
)

// LiveResponse is the liveness probe body.
type LiveResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// ReadyResponse is the readiness probe body.
type ReadyResponse struct {
	Status      string          `json:"status"`
	Version     uint64          `json:"version,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	LoadedAt    *time.Time      `json:"loaded_at,omitempty"`
	Stats       *snapshot.Stats `json:"stats,omitempty"`
}

// HealthLive reports that the process is serving HTTP. It never depends on
// the dataset.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, LiveResponse{
		Status: "alive",
		Uptime: time.Since(h.start).Round(time.Second).String(),
	})
}

// HealthReady reports 200 once a snapshot is published and 503 before.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	snap, err := h.holder.Load()
	if err != nil {
		writeJSON(w, r, http.StatusServiceUnavailable, ReadyResponse{Status: "loading"})
		return
	}

	loadedAt := snap.LoadedAt
	stats := snap.Stats
	writeJSON(w, r, http.StatusOK, ReadyResponse{
		Status:      "ready",
		Version:     snap.Version,
		Fingerprint: snap.Fingerprint,
		LoadedAt:    &loadedAt,
		Stats:       &stats,
	})
}

// Reload serves POST /api/admin/reload. The rebuild runs in the snapshot
// service; the response only says whether it was queued.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.reload == nil {
		respondErrorMessage(w, r, http.StatusServiceUnavailable, CodeNotReady, "Reloading is not available.", nil)
		return
	}

	queued := h.reload.Trigger(reloadSourceAdmin)
	h.logger.Info().
		Bool("queued", queued).
		Str("remote_addr", r.RemoteAddr).
		Msg("Dataset reload requested")

	status := "queued"
	if !queued {
		status = "already_pending"
	}
	writeJSON(w, r, http.StatusAccepted, ReloadResponse{Status: status, Queued: queued})
}

// reloadSourceAdmin labels reloads requested over the API.
const reloadSourceAdmin = "admin"
