package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/utils/codec"
)

// events streams race events as server-sent events.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ch := s.m.Subscribe()
	defer s.m.CancelSubscription(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	s.l.Debug("event stream opened", log.String("remote", r.RemoteAddr))
	for {
		select {
		case <-r.Context().Done():
			s.l.Debug("event stream closed", log.String("remote", r.RemoteAddr))
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := codec.Marshal(&ev)
			if err != nil {
				s.l.Error("could not encode event", log.ErrorField(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}
