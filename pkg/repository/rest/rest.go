// Package rest implements the repositories on top of the async-race REST API.
//
//nolint:whitespace // can't make both editor and linter happy
package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/repository/api"
	"github.com/mpapenbr/async-race-service/pkg/repository/memory"
	"github.com/mpapenbr/async-race-service/pkg/utils/codec"
)

type (
	Option func(*client)
	client struct {
		baseURL string
		cli     *http.Client
		l       *log.Logger
	}

	repositories struct {
		cars     *carRepository
		winners  *winnerRepository
		sessions api.SessionRepository
	}
	carRepository    struct{ c *client }
	winnerRepository struct{ c *client }
)

var (
	_ api.Repositories     = (*repositories)(nil)
	_ api.CarRepository    = (*carRepository)(nil)
	_ api.WinnerRepository = (*winnerRepository)(nil)
)

func WithHTTPClient(cli *http.Client) Option {
	return func(c *client) {
		c.cli = cli
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *client) {
		c.l = l
	}
}

// NewRepositories uses the garage and winners endpoints of baseURL. The REST
// API has no session history, sessions are kept in memory.
func NewRepositories(baseURL string, opts ...Option) api.Repositories {
	c := &client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		cli:     &http.Client{Timeout: 30 * time.Second},
		l:       log.Default().Named("rest"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return &repositories{
		cars:     &carRepository{c: c},
		winners:  &winnerRepository{c: c},
		sessions: memory.NewSessionRepository(),
	}
}

func (r *repositories) Car() api.CarRepository         { return r.cars }
func (r *repositories) Winner() api.WinnerRepository   { return r.winners }
func (r *repositories) Session() api.SessionRepository { return r.sessions }

func (r *carRepository) LoadAll(ctx context.Context) ([]*model.Car, error) {
	ret := []*model.Car{}
	if err := r.c.do(ctx, http.MethodGet, "/garage", nil, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *carRepository) LoadByID(ctx context.Context, id int) (*model.Car, error) {
	var ret model.Car
	if err := r.c.do(ctx, http.MethodGet, carPath(id), nil, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *carRepository) Create(ctx context.Context, in *model.CarInput) (*model.Car, error) {
	var ret model.Car
	if err := r.c.do(ctx, http.MethodPost, "/garage", in, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *carRepository) Update(ctx context.Context, id int, in *model.CarInput) (
	*model.Car, error,
) {
	var ret model.Car
	if err := r.c.do(ctx, http.MethodPut, carPath(id), in, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *carRepository) DeleteByID(ctx context.Context, id int) (int, error) {
	return deleted(r.c.do(ctx, http.MethodDelete, carPath(id), nil, nil))
}

func (r *winnerRepository) LoadAll(
	ctx context.Context, sort model.SortField, order model.SortOrder,
) ([]*model.Winner, error) {
	q := url.Values{}
	if sort != "" {
		q.Set("_sort", string(sort))
	}
	if order != "" {
		q.Set("_order", strings.ToUpper(string(order)))
	}
	path := "/winners"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	ret := []*model.Winner{}
	if err := r.c.do(ctx, http.MethodGet, path, nil, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *winnerRepository) LoadByID(ctx context.Context, id int) (*model.Winner, error) {
	var ret model.Winner
	if err := r.c.do(ctx, http.MethodGet, winnerPath(id), nil, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *winnerRepository) Create(ctx context.Context, w *model.Winner) (
	*model.Winner, error,
) {
	var ret model.Winner
	if err := r.c.do(ctx, http.MethodPost, "/winners", w, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *winnerRepository) Update(ctx context.Context, id int, upd *model.WinnerUpdate) (
	*model.Winner, error,
) {
	var ret model.Winner
	if err := r.c.do(ctx, http.MethodPut, winnerPath(id), upd, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *winnerRepository) DeleteByID(ctx context.Context, id int) (int, error) {
	return deleted(r.c.do(ctx, http.MethodDelete, winnerPath(id), nil, nil))
}

// do sends body as JSON and decodes the response into out. 404 is ErrNoRows.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := codec.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.l.Debug("request done",
		log.String("method", method), log.String("path", path), log.Int("status", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, api.ErrNoRows)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, msg)
	}
	if out == nil {
		//nolint:errcheck // body content not needed
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return codec.Decode(resp.Body, out)
}

func deleted(err error) (int, error) {
	if err == nil {
		return 1, nil
	}
	if errors.Is(err, api.ErrNoRows) {
		return 0, nil
	}
	return 0, err
}

func carPath(id int) string {
	return "/garage/" + strconv.Itoa(id)
}

func winnerPath(id int) string {
	return "/winners/" + strconv.Itoa(id)
}
