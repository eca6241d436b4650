// Package memory provides repositories backed by in-process maps.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/repository/api"
)

type (
	repositories struct {
		cars     *CarRepository
		winners  *WinnerRepository
		sessions *SessionRepository
	}
	CarRepository struct {
		mu     sync.RWMutex
		nextID int
		cars   map[int]model.Car
	}
	WinnerRepository struct {
		mu      sync.RWMutex
		winners map[int]model.Winner
	}
	SessionRepository struct {
		mu       sync.RWMutex
		sessions []model.SessionRecord
	}
)

var (
	_ api.Repositories      = (*repositories)(nil)
	_ api.CarRepository     = (*CarRepository)(nil)
	_ api.WinnerRepository  = (*WinnerRepository)(nil)
	_ api.SessionRepository = (*SessionRepository)(nil)
)

func NewRepositories(cars ...model.CarInput) api.Repositories {
	return &repositories{
		cars:     NewCarRepository(cars...),
		winners:  NewWinnerRepository(),
		sessions: NewSessionRepository(),
	}
}

func (r *repositories) Car() api.CarRepository         { return r.cars }
func (r *repositories) Winner() api.WinnerRepository   { return r.winners }
func (r *repositories) Session() api.SessionRepository { return r.sessions }

func NewCarRepository(initial ...model.CarInput) *CarRepository {
	ret := &CarRepository{nextID: 1, cars: make(map[int]model.Car)}
	for i := range initial {
		//nolint:errcheck // cannot fail
		ret.Create(context.Background(), &initial[i])
	}
	return ret
}

func (r *CarRepository) LoadAll(ctx context.Context) ([]*model.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := lo.MapToSlice(r.cars, func(_ int, c model.Car) *model.Car { return &c })
	slices.SortFunc(ret, func(a, b *model.Car) int { return cmp.Compare(a.ID, b.ID) })
	return ret, nil
}

func (r *CarRepository) LoadByID(ctx context.Context, id int) (*model.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cars[id]
	if !ok {
		return nil, api.ErrNoRows
	}
	return &c, nil
}

func (r *CarRepository) Create(ctx context.Context, in *model.CarInput) (*model.Car, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := model.Car{ID: r.nextID, Name: in.Name, Color: in.Color}
	r.nextID++
	r.cars[c.ID] = c
	return &c, nil
}

//nolint:whitespace // editor/linter issue
func (r *CarRepository) Update(ctx context.Context, id int, in *model.CarInput) (
	*model.Car, error,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cars[id]; !ok {
		return nil, api.ErrNoRows
	}
	c := model.Car{ID: id, Name: in.Name, Color: in.Color}
	r.cars[id] = c
	return &c, nil
}

func (r *CarRepository) DeleteByID(ctx context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cars[id]; !ok {
		return 0, nil
	}
	delete(r.cars, id)
	return 1, nil
}

func NewWinnerRepository() *WinnerRepository {
	return &WinnerRepository{winners: make(map[int]model.Winner)}
}

//nolint:whitespace // editor/linter issue
func (r *WinnerRepository) LoadAll(
	ctx context.Context,
	sort model.SortField,
	order model.SortOrder,
) ([]*model.Winner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := lo.MapToSlice(r.winners, func(_ int, w model.Winner) *model.Winner { return &w })
	SortWinners(ret, sort, order)
	return ret, nil
}

func (r *WinnerRepository) LoadByID(ctx context.Context, id int) (*model.Winner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.winners[id]
	if !ok {
		return nil, api.ErrNoRows
	}
	return &w, nil
}

//nolint:whitespace // editor/linter issue
func (r *WinnerRepository) Create(ctx context.Context, w *model.Winner) (
	*model.Winner, error,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.winners[w.ID]; ok {
		return nil, fmt.Errorf("winner %d already exists", w.ID)
	}
	r.winners[w.ID] = *w
	ret := *w
	return &ret, nil
}

//nolint:whitespace // editor/linter issue
func (r *WinnerRepository) Update(ctx context.Context, id int, upd *model.WinnerUpdate) (
	*model.Winner, error,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.winners[id]; !ok {
		return nil, api.ErrNoRows
	}
	w := model.Winner{ID: id, Wins: upd.Wins, Time: upd.Time}
	r.winners[id] = w
	return &w, nil
}

func (r *WinnerRepository) DeleteByID(ctx context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.winners[id]; !ok {
		return 0, nil
	}
	delete(r.winners, id)
	return 1, nil
}

// SortWinners sorts in place. Ties are ordered by id.
func SortWinners(w []*model.Winner, sort model.SortField, order model.SortOrder) {
	key := func(x *model.Winner) float64 {
		switch sort {
		case model.SortByWins:
			return float64(x.Wins)
		case model.SortByTime:
			return x.Time
		case model.SortByID:
		}
		return float64(x.ID)
	}
	slices.SortFunc(w, func(a, b *model.Winner) int {
		c := cmp.Compare(key(a), key(b))
		if order == model.SortDesc {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		return c
	})
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

func (r *SessionRepository) Create(ctx context.Context, rec *model.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, *rec)
	return nil
}

//nolint:whitespace // editor/linter issue
func (r *SessionRepository) LoadLatest(ctx context.Context, limit int) (
	[]*model.SessionRecord, error,
) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]*model.SessionRecord, 0, limit)
	for i := len(r.sessions) - 1; i >= 0 && len(ret) < limit; i-- {
		rec := r.sessions[i]
		ret = append(ret, &rec)
	}
	return ret, nil
}
