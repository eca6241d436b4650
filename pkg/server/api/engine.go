package api

import (
	"fmt"
	"net/http"

	"github.com/mpapenbr/async-race-service/pkg/model"
)

type driveResponse struct {
	Success bool            `json:"success"`
	State   *model.CarState `json:"state,omitempty"`
}

// engine serves PATCH /engine?id=&status=started|stopped|drive.
func (s *Server) engine(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.URL.Query().Get("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := r.Context()
	switch status := r.URL.Query().Get("status"); status {
	case "started":
		state, err := s.m.StartEngine(ctx, id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, model.EngineParams{
			Velocity: state.Velocity,
			Distance: state.Distance,
		})
	case "stopped":
		state, err := s.m.StopEngine(ctx, id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, state)
	case "drive":
		state, err := s.m.Drive(ctx, id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, driveResponse{Success: true, State: state})
	default:
		s.writeError(w, r, fmt.Errorf("%w: unknown status %q", ErrBadRequest, status))
	}
}

func (s *Server) launch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.m.Launch(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, state)
}
