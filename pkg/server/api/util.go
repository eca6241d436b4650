package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/samber/lo"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/utils/codec"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := codec.Marshal(v)
	if err != nil {
		s.l.Error("could not encode response", log.ErrorField(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.l.Debug("could not write response", log.ErrorField(err))
	}
}

func readJSON(r *http.Request, v any) error {
	if err := codec.Decode(r.Body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request) (int, error) {
	return parseID(r.PathValue("id"))
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", ErrBadRequest, raw)
	}
	return id, nil
}

// paginate applies _page and _limit and sets X-Total-Count.
func paginate[T any](w http.ResponseWriter, r *http.Request, items []T) ([]T, error) {
	q := r.URL.Query()
	if q.Get("_limit") == "" {
		return items, nil
	}
	limit, err := strconv.Atoi(q.Get("_limit"))
	if err != nil || limit <= 0 {
		return nil, fmt.Errorf("%w: invalid _limit", ErrBadRequest)
	}
	page := 1
	if raw := q.Get("_page"); raw != "" {
		if page, err = strconv.Atoi(raw); err != nil || page <= 0 {
			return nil, fmt.Errorf("%w: invalid _page", ErrBadRequest)
		}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(items)))
	start := (page - 1) * limit
	return lo.Slice(items, start, start+limit), nil
}
