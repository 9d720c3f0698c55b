package api

import (
	"context"
	"time"

	"github.com/seenimoa/bazaar/pkg/models"
)

// StreamPayload is the data of a snapshot frame.
type StreamPayload struct {
	Snapshot *models.MarketSnapshot `json:"snapshot"`
	VIX      *models.IndexQuote     `json:"vix,omitempty"`
}

// runStream publishes a snapshot to connected clients every interval until
// ctx is done. Ticks with no clients skip the upstream fetch.
func (s *Server) runStream(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishSnapshot()
		}
	}
}

// publishSnapshot broadcasts one snapshot frame.
func (s *Server) publishSnapshot() {
	if s.wsHub.ClientCount() == 0 {
		return
	}
	s.wsHub.Broadcast(s.snapshotMessage())
}

// snapshotMessage builds a snapshot frame, or an error frame when the
// snapshot could not be fetched. A missing VIX reading is left out.
func (s *Server) snapshotMessage() WSMessage {
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout())
	defer cancel()

	snap, err := s.svc.GetMarketSnapshot(ctx)
	if err != nil {
		s.log.WithError(err).Warn("stream snapshot failed")
		return WSMessage{Type: MsgError, Data: err.Error(), Timestamp: s.now()}
	}
	payload := StreamPayload{Snapshot: snap}
	if vix, err := s.svc.GetVix(ctx); err == nil {
		payload.VIX = vix
	} else {
		s.log.WithError(err).Debug("stream vix unavailable")
	}
	return WSMessage{Type: MsgSnapshot, Data: payload, Timestamp: s.now()}
}
