package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

func (s *Server) handleSnapshotStream(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		jsonFailure(w, http.StatusServiceUnavailable, "snapshot journal not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(snapshotPollInterval)
	defer pollTicker.Stop()

	headerSent := false
	lastIndex := uint64(0)
	sendSnapshots := func() error {
		records, err := s.journal.SnapshotsAfter(lastIndex)
		if err != nil {
			return err
		}
		if !headerSent {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			flusher.Flush()
			headerSent = true
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Snapshot)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: quotes\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendSnapshots(); err != nil {
		s.l.Error("snapshot stream initial load", zap.String("request_id", requestID(r)), zap.Error(err))
		jsonFailure(w, http.StatusInternalServerError, "failed to load snapshots")
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendSnapshots(); err != nil {
				s.l.Warn("snapshot stream poll", zap.String("request_id", requestID(r)), zap.Error(err))
			}
		}
	}
}
