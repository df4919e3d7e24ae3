package fsrepo

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pkordes/tabinico/internal/domain"
)

// fakeIterator yields n snapshots, then fails with err.
type fakeIterator struct {
	n       int
	err     error
	stopped bool
}

func (f *fakeIterator) Next() (*firestore.DocumentSnapshot, error) {
	if f.n == 0 {
		return nil, f.err
	}
	f.n--
	return &firestore.DocumentSnapshot{}, nil
}

func (f *fakeIterator) Stop() { f.stopped = true }

func drain(ch <-chan domain.Snapshot) []domain.Snapshot {
	var got []domain.Snapshot
	for s := range ch {
		got = append(got, s)
	}
	return got
}

func TestRelay_LogsListenerAndDecodeFailures(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))
	it := &fakeIterator{n: 2, err: status.Error(codes.Unavailable, "transport is closing")}

	calls := 0
	convert := func(*firestore.DocumentSnapshot) (domain.Snapshot, error) {
		calls++
		if calls == 1 {
			return domain.Snapshot{}, errors.New("cannot set type int into string")
		}
		return domain.Snapshot{Trip: domain.Trip{ID: "FS0001"}, Exists: true}, nil
	}

	out := make(chan domain.Snapshot, 1)
	go relay(context.Background(), log, it, convert, out)
	got := drain(out)

	require.Len(t, got, 1, "the undecodable snapshot is skipped")
	assert.Equal(t, "FS0001", got[0].Trip.ID)
	assert.True(t, it.stopped)
	assert.Contains(t, logs.String(), "trip snapshot decode failed")
	assert.Contains(t, logs.String(), "trip snapshot listener failed")
	assert.Contains(t, logs.String(), "Unavailable")
}

func TestRelay_CancellationIsQuiet(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	it := &fakeIterator{err: status.Error(codes.Canceled, "context canceled")}

	out := make(chan domain.Snapshot, 1)
	go relay(ctx, log, it, toSnapshot, out)

	assert.Empty(t, drain(out))
	assert.True(t, it.stopped)
	assert.Empty(t, logs.String())
}
