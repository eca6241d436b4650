package api

import (
	"errors"
	"net/http"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/auth"
	"github.com/mpapenbr/async-race-service/pkg/race"
	"github.com/mpapenbr/async-race-service/pkg/race/engine"
	"github.com/mpapenbr/async-race-service/pkg/race/ledger"
	repoAPI "github.com/mpapenbr/async-race-service/pkg/repository/api"
)

var ErrBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

var statusMapping = []struct {
	err    error
	status int
}{
	{ErrBadRequest, http.StatusBadRequest},
	{auth.ErrPermissionDenied, http.StatusForbidden},
	{repoAPI.ErrNoRows, http.StatusNotFound},
	{engine.ErrEngineUnavailable, http.StatusConflict},
	{engine.ErrEngineStopped, http.StatusConflict},
	{race.ErrRaceInProgress, http.StatusConflict},
	{engine.ErrInvalidState, http.StatusBadRequest},
	{engine.ErrInvalidParams, http.StatusBadGateway},
	{race.ErrNoCars, http.StatusBadRequest},
	{race.ErrNoCarsStarted, http.StatusBadGateway},
	{ledger.ErrLedgerWriteFailed, http.StatusBadGateway},
}

func statusOf(err error) int {
	for _, m := range statusMapping {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.l.Error("request failed",
			log.String("method", r.Method), log.String("path", r.URL.Path), log.ErrorField(err))
	} else {
		s.l.Debug("request rejected",
			log.String("method", r.Method), log.String("path", r.URL.Path),
			log.Int("status", status), log.ErrorField(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
