package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mpapenbr/async-race-service/pkg/garage"
	"github.com/mpapenbr/async-race-service/pkg/model"
)

const maxGenerate = 1000

func (s *Server) listCars(w http.ResponseWriter, r *http.Request) {
	cars, err := s.m.Cars(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := paginate(w, r, cars)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) getCar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	car, err := s.m.Car(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, car)
}

func (s *Server) createCar(w http.ResponseWriter, r *http.Request) {
	in, err := readCarInput(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	car, err := s.m.CreateCar(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, car)
}

func (s *Server) generateCars(w http.ResponseWriter, r *http.Request) {
	count := garage.DefaultCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		var err error
		if count, err = strconv.Atoi(raw); err != nil || count <= 0 || count > maxGenerate {
			s.writeError(w, r,
				fmt.Errorf("%w: count must be between 1 and %d", ErrBadRequest, maxGenerate))
			return
		}
	}
	cars, err := s.m.GenerateCars(r.Context(), count)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, cars)
}

func (s *Server) updateCar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := readCarInput(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	car, err := s.m.UpdateCar(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, car)
}

func (s *Server) deleteCar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.m.DeleteCar(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) carState(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, ok := s.m.CarState(id)
	if !ok {
		state = model.CarState{CarID: id, Status: model.EngineIdle}
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) carStates(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.m.CarStates())
}

func readCarInput(r *http.Request) (*model.CarInput, error) {
	var in model.CarInput
	if err := readJSON(r, &in); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrBadRequest)
	}
	if in.Color == "" {
		in.Color = "#000000"
	}
	return &in, nil
}
