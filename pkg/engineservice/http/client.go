//nolint:whitespace // can't make both editor and linter happy
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/engineservice"
	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/utils/codec"
)

type (
	// Client talks to the engine endpoint of the async-race REST API.
	Client struct {
		baseURL string
		cli     *http.Client
		l       *log.Logger
	}
	Option func(*Client)

	// StatusError is returned for unexpected http status codes.
	StatusError struct {
		Status  int
		Message string
	}

	driveResponse struct {
		Success bool `json:"success"`
	}
)

var _ engineservice.EngineService = (*Client)(nil)

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

func WithHTTPClient(cli *http.Client) Option {
	return func(c *Client) {
		c.cli = cli
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.l = l
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	ret := &Client{
		baseURL: baseURL,
		cli:     &http.Client{Timeout: 30 * time.Second},
		l:       log.Default().Named("engineservice"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (c *Client) Start(ctx context.Context, carID int) (*model.EngineParams, error) {
	resp, err := c.patch(ctx, carID, "started")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var ret model.EngineParams
	if err := codec.Decode(resp.Body, &ret); err != nil {
		return nil, fmt.Errorf("decode engine params: %w", err)
	}
	c.l.Debug("engine started", log.Int("carId", carID),
		log.Float64("velocity", ret.Velocity), log.Float64("distance", ret.Distance))
	return &ret, nil
}

func (c *Client) Stop(ctx context.Context, carID int) error {
	resp, err := c.patch(ctx, carID, "stopped")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	//nolint:errcheck // body content not needed
	io.Copy(io.Discard, resp.Body)
	return checkStatus(resp)
}

// Drive maps HTTP 500 to a denied drive. The server sends it when the engine
// broke down.
func (c *Client) Drive(ctx context.Context, carID int) (bool, error) {
	resp, err := c.patch(ctx, carID, "drive")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusInternalServerError:
		c.l.Debug("drive denied", log.Int("carId", carID))
		return false, nil
	case http.StatusNotFound:
		return false, fmt.Errorf("car %d: %w", carID, engineservice.ErrEngineNotStarted)
	case http.StatusTooManyRequests:
		return false, fmt.Errorf("car %d: %w", carID, engineservice.ErrTooManyRequests)
	}
	if err := checkStatus(resp); err != nil {
		return false, err
	}
	var ret driveResponse
	if err := codec.Decode(resp.Body, &ret); err != nil {
		return false, fmt.Errorf("decode drive response: %w", err)
	}
	return ret.Success, nil
}

func (c *Client) patch(ctx context.Context, carID int, status string) (
	*http.Response, error,
) {
	q := url.Values{}
	q.Set("id", strconv.Itoa(carID))
	q.Set("status", status)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		fmt.Sprintf("%s/engine?%s", c.baseURL, q.Encode()), http.NoBody)
	if err != nil {
		return nil, err
	}
	return c.cli.Do(req)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(msg) == 0 {
		msg = []byte(http.StatusText(resp.StatusCode))
	}
	return &StatusError{Status: resp.StatusCode, Message: string(msg)}
}
