// internal/handlers/admin.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/averyhall/warcouncil/internal/reaper"
)

func thresholdParam(r *http.Request) time.Duration {
	if s := r.URL.Query().Get("threshold"); s != "" {
		if sec, err := strconv.Atoi(s); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
	}
	return reaper.DefaultThreshold
}

// ScanReapHandler lists stale WAITING lobbies without deleting them.
func (s *Server) ScanReapHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Reaper.Scan(thresholdParam(r)))
}

// SweepReapHandler deletes stale WAITING lobbies and reports what it took.
func (s *Server) SweepReapHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	writeJSON(w, http.StatusOK, s.Reaper.Sweep(thresholdParam(r)))
}
