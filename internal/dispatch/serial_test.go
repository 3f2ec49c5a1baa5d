package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSerial_RunsOnCallerWhenIdle(t *testing.T) {
	s := NewSerial()
	ran := false
	require.NoError(t, s.Post(func() { ran = true }))
	require.True(t, ran)
	require.Zero(t, s.Pending())
}

func TestSerial_ReentrantPostRunsAfterCurrent(t *testing.T) {
	s := NewSerial()
	var got []string
	require.NoError(t, s.Post(func() {
		got = append(got, "outer start")
		require.NoError(t, s.Post(func() { got = append(got, "inner") }))
		got = append(got, "outer end")
	}))
	require.Equal(t, []string{"outer start", "outer end", "inner"}, got)
}

func TestSerial_ConcurrentPostQueuesBehindDrain(t *testing.T) {
	s := NewSerial()
	entered := make(chan struct{})
	release := make(chan struct{})

	var (
		mu  sync.Mutex
		got []int
	)
	record := func(i int) {
		mu.Lock()
		got = append(got, i)
		mu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Post(func() {
			close(entered)
			<-release
			record(1)
		})
	}()
	<-entered

	require.NoError(t, s.Post(func() { record(2) }))
	require.NoError(t, s.Post(func() { record(3) }))
	require.Equal(t, 2, s.Pending())

	mu.Lock()
	require.Empty(t, got)
	mu.Unlock()

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestSerial_PanicDoesNotWedge(t *testing.T) {
	s := NewSerial()
	require.NoError(t, s.Post(func() { panic("boom") }))
	require.Equal(t, int64(1), s.Panics())

	ran := false
	require.NoError(t, s.Post(func() { ran = true }))
	require.True(t, ran)
}
