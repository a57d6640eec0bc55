package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophrecords/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	tk := Run(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})

	v, err := tk.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	select {
	case <-tk.Done():
	default:
		t.Fatal("Done must be closed after Wait returns")
	}
}

func TestRun_Error(t *testing.T) {
	boom := errors.New("boom")
	tk := Run(context.Background(), func(ctx context.Context) (string, error) {
		return "ignored", boom
	})

	v, err := tk.Wait(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Empty(t, v)
}

func TestCancel_BeforeCompletion(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	tk := Run(context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-release
		// succeeds anyway; the handle must not report it
		return 1, nil
	})

	<-started
	tk.Cancel()
	close(release)

	v, err := tk.Wait(context.Background())
	require.ErrorIs(t, err, common.ErrCancelled)
	assert.Equal(t, common.KindCancellation, common.KindOf(err))
	assert.Zero(t, v)
}

func TestCancel_AbortsContext(t *testing.T) {
	tk := Run(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	tk.Cancel()

	_, err := tk.Wait(context.Background())
	require.ErrorIs(t, err, common.ErrCancelled)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCancel_AfterCompletionKeepsResult(t *testing.T) {
	tk := Run(context.Background(), func(ctx context.Context) (int, error) {
		return 7, nil
	})
	<-tk.Done()
	tk.Cancel()

	v, err := tk.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tk := Run(ctx, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	cancel()

	_, err := tk.Wait(context.Background())
	require.ErrorIs(t, err, common.ErrCancelled)
}

func TestWait_CallerGivesUp(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	tk := Run(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := tk.Wait(ctx)
	require.ErrorIs(t, err, common.ErrCancelled)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
