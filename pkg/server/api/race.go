package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/mpapenbr/async-race-service/pkg/model"
)

type (
	startRaceRequest struct {
		Cars []int `json:"cars"`
	}
	resetRaceResponse struct {
		Reset []int `json:"reset"`
	}
)

func (s *Server) getRace(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.m.Session())
}

// startRace begins a group race. Without a body all cars take part.
func (s *Server) startRace(w http.ResponseWriter, r *http.Request) {
	var req startRaceRequest
	if r.ContentLength != 0 {
		if err := readJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	sess, err := s.m.StartRace(r.Context(), req.Cars)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) resetRace(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, resetRaceResponse{Reset: s.m.ResetRace(r.Context())})
}

func (s *Server) sessions(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			s.writeError(w, r, fmt.Errorf("%w: invalid limit", ErrBadRequest))
			return
		}
	}
	recs, err := s.m.Sessions(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*model.SessionRecord{}
	}
	s.writeJSON(w, http.StatusOK, recs)
}
