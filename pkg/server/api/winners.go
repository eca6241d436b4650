package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mpapenbr/async-race-service/pkg/model"
)

func (s *Server) listWinners(w http.ResponseWriter, r *http.Request) {
	sort, order, err := parseSort(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	winners, err := s.m.Winners(r.Context(), sort, order)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := paginate(w, r, winners)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) getWinner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	winner, err := s.m.Winner(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, winner)
}

func parseSort(r *http.Request) (model.SortField, model.SortOrder, error) {
	q := r.URL.Query()
	sort := model.SortField(q.Get("_sort"))
	switch sort {
	case "", model.SortByID, model.SortByWins, model.SortByTime:
	default:
		return "", "", fmt.Errorf("%w: invalid _sort %q", ErrBadRequest, sort)
	}
	order := model.SortOrder(strings.ToLower(q.Get("_order")))
	switch order {
	case "", model.SortAsc, model.SortDesc:
	default:
		return "", "", fmt.Errorf("%w: invalid _order %q", ErrBadRequest, order)
	}
	return sort, order, nil
}
