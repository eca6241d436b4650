package nats

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/utils/codec"
)

type fakeConn struct {
	mu   sync.Mutex
	msgs map[string][][]byte
	err  error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs[subject] = append(f.msgs[subject], data)
	return nil
}

type fakeKV struct {
	puts map[string][]byte
	rev  uint64
}

func (f *fakeKV) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	f.puts[key] = value
	f.rev++
	return f.rev, nil
}

func TestSubject(t *testing.T) {
	p := newPublisher(&fakeConn{})
	assert.Equal(t, "ars.race.winnerDeclared", p.Subject(model.EventWinnerDeclared))
	p = newPublisher(&fakeConn{}, WithSubjectPrefix("test"))
	assert.Equal(t, "test.finished", p.Subject(model.EventFinished))
}

func TestRun(t *testing.T) {
	conn := &fakeConn{msgs: map[string][][]byte{}}
	kv := &fakeKV{puts: map[string][]byte{}}
	winner := 2
	p := newPublisher(conn, WithSessionProvider(func() model.SessionState {
		return model.SessionState{ID: "s1", InProgress: true, WinnerCarID: &winner}
	}))
	p.kv = kv

	events := make(chan model.Event, 3)
	events <- model.Event{Kind: model.EventRaceStarted, SessionID: "s1"}
	events <- model.Event{Kind: model.EventFinished, CarID: 2, Time: 4.5}
	events <- model.Event{Kind: model.EventWinnerDeclared, CarID: 2, CarName: "BMW"}
	close(events)
	p.Run(events)

	require.Len(t, conn.msgs["ars.race.finished"], 1)
	var ev model.Event
	require.NoError(t, codec.Unmarshal(conn.msgs["ars.race.finished"][0], &ev))
	assert.Equal(t, 2, ev.CarID)
	assert.InDelta(t, 4.5, ev.Time, 1e-9)
	require.Len(t, conn.msgs["ars.race.winnerDeclared"], 1)

	// initial store plus raceStarted and winnerDeclared
	assert.Equal(t, uint64(3), kv.rev)
	var s model.SessionState
	require.NoError(t, codec.Unmarshal(kv.puts[SessionKey], &s))
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, 2, *s.WinnerCarID)
}

func TestPublishError(t *testing.T) {
	conn := &fakeConn{msgs: map[string][][]byte{}, err: errors.New("disconnected")}
	p := newPublisher(conn)
	p.Publish(&model.Event{Kind: model.EventStarted, CarID: 1})
	assert.Empty(t, conn.msgs)
}
