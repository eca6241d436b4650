// Package nats forwards race events to NATS subjects and keeps the latest
// session snapshot in a JetStream key value bucket.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/utils/codec"
)

const (
	DefaultBucket        = "ars"
	DefaultSubjectPrefix = "ars.race"
	SessionKey           = "session"
)

type (
	messagePublisher interface {
		Publish(subject string, data []byte) error
	}
	sessionStore interface {
		Put(ctx context.Context, key string, value []byte) (uint64, error)
	}

	Option    func(*Publisher)
	Publisher struct {
		ctx     context.Context
		pub     messagePublisher
		kv      sessionStore
		bucket  string
		prefix  string
		session func() model.SessionState
		l       *log.Logger
	}
)

func WithContext(ctx context.Context) Option {
	return func(p *Publisher) {
		p.ctx = ctx
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Publisher) {
		p.l = l
	}
}

func WithBucket(bucket string) Option {
	return func(p *Publisher) {
		p.bucket = bucket
	}
}

func WithSubjectPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

// WithSessionProvider enables the session snapshot in the key value bucket.
func WithSessionProvider(f func() model.SessionState) Option {
	return func(p *Publisher) {
		p.session = f
	}
}

// NewPublisher creates the key value bucket if needed.
func NewPublisher(conn *nats.Conn, opts ...Option) (*Publisher, error) {
	ret := newPublisher(conn, opts...)
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, err
	}
	kv, err := js.CreateOrUpdateKeyValue(ret.ctx, jetstream.KeyValueConfig{
		Bucket:      ret.bucket,
		Description: "async race service state",
		TTL:         24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("setup kv bucket %s: %w", ret.bucket, err)
	}
	ret.kv = kv
	return ret, nil
}

func newPublisher(pub messagePublisher, opts ...Option) *Publisher {
	ret := &Publisher{
		ctx:    context.Background(),
		pub:    pub,
		bucket: DefaultBucket,
		prefix: DefaultSubjectPrefix,
		l:      log.Default().Named("nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Subject returns the subject for events of the given kind.
func (p *Publisher) Subject(kind model.EventKind) string {
	return fmt.Sprintf("%s.%s", p.prefix, kind)
}

// Run publishes events until the channel is closed or the context is done.
func (p *Publisher) Run(events <-chan model.Event) {
	p.storeSession()
	for {
		select {
		case <-p.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				p.l.Debug("event source closed")
				return
			}
			p.Publish(&ev)
		}
	}
}

// Publish sends a single event. Session changing events also update the
// session snapshot.
func (p *Publisher) Publish(ev *model.Event) {
	data, err := codec.Marshal(ev)
	if err != nil {
		p.l.Error("could not encode event", log.ErrorField(err))
		return
	}
	if err := p.pub.Publish(p.Subject(ev.Kind), data); err != nil {
		p.l.Warn("could not publish event",
			log.String("kind", string(ev.Kind)), log.ErrorField(err))
	}
	switch ev.Kind {
	case model.EventRaceStarted, model.EventRaceReset, model.EventWinnerDeclared:
		p.storeSession()
	default:
	}
}

func (p *Publisher) storeSession() {
	if p.kv == nil || p.session == nil {
		return
	}
	data, err := codec.Marshal(p.session())
	if err != nil {
		p.l.Error("could not encode session", log.ErrorField(err))
		return
	}
	rev, err := p.kv.Put(p.ctx, SessionKey, data)
	if err != nil {
		p.l.Warn("could not store session", log.ErrorField(err))
		return
	}
	p.l.Debug("session stored", log.Uint64("revision", rev))
}
