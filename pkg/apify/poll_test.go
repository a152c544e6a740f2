package apify

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ad-scout/internal/resilience"
)

// mockClient implements Client for testing the poller.
type mockClient struct {
	getRunFunc func(ctx context.Context, id string) (*Run, error)
}

func (m *mockClient) StartRun(context.Context, string, RunInput) (*Run, error) {
	return nil, nil
}

func (m *mockClient) GetRun(ctx context.Context, id string) (*Run, error) {
	return m.getRunFunc(ctx, id)
}

func (m *mockClient) GetDatasetItems(context.Context, string) ([]json.RawMessage, error) {
	return nil, nil
}

func (m *mockClient) GetActor(context.Context, string) (*Actor, error) {
	return nil, nil
}

func fastPoll() []PollOption {
	return []PollOption{WithPollInterval(time.Millisecond), WithPollCap(2 * time.Millisecond)}
}

func TestPollRun_SucceedsAfterRunning(t *testing.T) {
	var calls atomic.Int32
	mock := &mockClient{
		getRunFunc: func(_ context.Context, id string) (*Run, error) {
			if calls.Add(1) < 3 {
				return &Run{ID: id, Status: StatusRunning}, nil
			}
			return &Run{ID: id, Status: StatusSucceeded, DefaultDatasetID: "ds-1"}, nil
		},
	}

	run, err := PollRun(context.Background(), mock, "run-1", fastPoll()...)
	require.NoError(t, err)
	assert.Equal(t, "ds-1", run.DefaultDatasetID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPollRun_TerminalStatuses(t *testing.T) {
	for _, status := range []string{StatusFailed, StatusAborted, StatusTimedOut} {
		t.Run(status, func(t *testing.T) {
			mock := &mockClient{
				getRunFunc: func(_ context.Context, id string) (*Run, error) {
					return &Run{ID: id, Status: status, StatusMessage: "actor crashed"}, nil
				},
			}
			_, err := PollRun(context.Background(), mock, "run-1", fastPoll()...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRunFailed)
			assert.False(t, resilience.IsTransient(err))
			assert.Contains(t, err.Error(), "actor crashed")
		})
	}
}

func TestPollRun_SucceededWithoutDataset(t *testing.T) {
	mock := &mockClient{
		getRunFunc: func(_ context.Context, id string) (*Run, error) {
			return &Run{ID: id, Status: StatusSucceeded}, nil
		},
	}
	_, err := PollRun(context.Background(), mock, "run-1", fastPoll()...)
	assert.ErrorIs(t, err, ErrRunFailed)
}

func TestPollRun_Timeout(t *testing.T) {
	mock := &mockClient{
		getRunFunc: func(_ context.Context, id string) (*Run, error) {
			return &Run{ID: id, Status: StatusRunning}, nil
		},
	}

	opts := append(fastPoll(), WithPollTimeout(20*time.Millisecond))
	_, err := PollRun(context.Background(), mock, "run-1", opts...)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, resilience.IsTransient(err))
}

func TestPollRun_ParentDeadlineWins(t *testing.T) {
	mock := &mockClient{
		getRunFunc: func(_ context.Context, id string) (*Run, error) {
			return &Run{ID: id, Status: StatusRunning}, nil
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()

	start := time.Now()
	opts := append(fastPoll(), WithPollTimeout(time.Hour))
	_, err := PollRun(ctx, mock, "run-1", opts...)
	assert.ErrorIs(t, err, ErrRunTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPollRun_GetRunError(t *testing.T) {
	boom := errors.New("boom")
	mock := &mockClient{
		getRunFunc: func(context.Context, string) (*Run, error) {
			return nil, boom
		},
	}
	_, err := PollRun(context.Background(), mock, "run-1", fastPoll()...)
	assert.ErrorIs(t, err, boom)
}
