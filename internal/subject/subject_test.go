package subject

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type countingObserver struct {
	count  atomic.Int32
	onCall func()
}

func (o *countingObserver) Invalidate() {
	o.count.Add(1)
	if o.onCall != nil {
		o.onCall()
	}
}

func (o *countingObserver) Count() int {
	return int(o.count.Load())
}

func TestSubject_AddIsIdempotent(t *testing.T) {
	s := New("test")
	o := &countingObserver{}

	s.Add(o)
	s.Add(o)
	require.Equal(t, 1, s.Len())

	s.Notify()
	require.Equal(t, 1, o.Count(), "double add must not double deliver")
}

func TestSubject_RemoveIsIdempotent(t *testing.T) {
	s := New("test")
	o := &countingObserver{}

	s.Remove(o)
	s.Add(o)
	s.Remove(o)
	s.Remove(o)

	require.Equal(t, 0, s.Len())
	require.False(t, s.Contains(o))
}

func TestSubject_NilObserverIgnored(t *testing.T) {
	s := New("test")
	s.Add(nil)
	s.Remove(nil)
	require.Equal(t, 0, s.Len())
}

func TestSubject_NotifyFansOut(t *testing.T) {
	s := New("shared")
	a, b := &countingObserver{}, &countingObserver{}
	s.Add(a)
	s.Add(b)

	s.Notify()

	require.Equal(t, 1, a.Count())
	require.Equal(t, 1, b.Count())
}

func TestSubject_RemovingOneKeepsOther(t *testing.T) {
	s := New("shared")
	a, b := &countingObserver{}, &countingObserver{}
	s.Add(a)
	s.Add(b)

	s.Remove(a)
	s.Notify()

	require.Equal(t, 0, a.Count())
	require.Equal(t, 1, b.Count())
}

func TestSubject_MutationDuringNotifyUsesSnapshot(t *testing.T) {
	s := New("snapshot")
	late := &countingObserver{}
	var self *countingObserver
	self = &countingObserver{onCall: func() {
		s.Remove(self)
		s.Add(late)
	}}
	other := &countingObserver{}
	s.Add(self)
	s.Add(other)

	s.Notify()

	require.Equal(t, 1, self.Count())
	require.Equal(t, 1, other.Count())
	require.Equal(t, 0, late.Count(), "observer added mid fan-out waits for the next notify")
	require.True(t, s.Contains(late))
	require.False(t, s.Contains(self))

	s.Notify()
	require.Equal(t, 1, late.Count())
	require.Equal(t, 1, self.Count())
}

func TestSubject_ConcurrentMembershipAndNotify(t *testing.T) {
	s := New("busy")
	stable := &countingObserver{}
	s.Add(stable)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				o := &countingObserver{}
				s.Add(o)
				s.Notify()
				s.Remove(o)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, s.Len())
	require.Equal(t, 8*200, stable.Count())
}

func TestProperty_SetNotifiesOnlyOnChange(t *testing.T) {
	p := NewProperty(false)
	var calls int
	cancel := p.Subscribe(func() { calls++ })
	defer cancel()

	require.False(t, p.Set(false))
	require.True(t, p.Set(true))
	require.True(t, p.Get())
	require.Equal(t, 1, calls)
}

func TestProperty_CancelIsIdempotent(t *testing.T) {
	p := NewProperty(0)
	cancel := p.Subscribe(func() {})
	require.Equal(t, 1, p.Subscribers())

	cancel()
	cancel()
	require.Equal(t, 0, p.Subscribers())
}

func TestFromNotifier_AttachesOnlyWhileObserved(t *testing.T) {
	p := NewProperty("a")
	s := FromNotifier("prop", p)
	require.Equal(t, 0, p.Subscribers(), "no registration before any observer")

	o1, o2 := &countingObserver{}, &countingObserver{}
	s.Add(o1)
	s.Add(o2)
	require.Equal(t, 1, p.Subscribers(), "one registration regardless of observer count")

	p.Set("b")
	require.Equal(t, 1, o1.Count())
	require.Equal(t, 1, o2.Count())

	s.Remove(o1)
	require.Equal(t, 1, p.Subscribers())
	s.Remove(o2)
	require.Equal(t, 0, p.Subscribers(), "last removal detaches from the source")

	p.Set("c")
	require.Equal(t, 1, o2.Count())
}

func TestFromNotifier_NotifierFunc(t *testing.T) {
	var registered func()
	n := NotifierFunc(func(fn func()) func() {
		registered = fn
		return func() { registered = nil }
	})
	s := FromNotifier("func", n)
	o := &countingObserver{}

	s.Add(o)
	require.NotNil(t, registered)
	registered()
	require.Equal(t, 1, o.Count())

	s.Remove(o)
	require.Nil(t, registered)
}

func TestHeartbeat_IsLazySingleton(t *testing.T) {
	ResetHeartbeatForTesting()
	t.Cleanup(ResetHeartbeatForTesting)

	first := Heartbeat()
	require.Same(t, first, Heartbeat())

	o := &countingObserver{}
	first.Add(o)
	InvalidateAll()
	require.Equal(t, 1, o.Count())

	ResetHeartbeatForTesting()
	require.NotSame(t, first, Heartbeat(), "reset is the only way to get a new heartbeat")
}

func TestPumpHeartbeat(t *testing.T) {
	ResetHeartbeatForTesting()
	t.Cleanup(ResetHeartbeatForTesting)

	o := &countingObserver{}
	Heartbeat().Add(o)

	ctx, cancel := context.WithCancel(context.Background())
	PumpHeartbeat(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool { return o.Count() >= 2 }, time.Second, time.Millisecond)
	cancel()
}

func TestPumpHeartbeat_DisabledForZeroInterval(t *testing.T) {
	ResetHeartbeatForTesting()
	t.Cleanup(ResetHeartbeatForTesting)

	o := &countingObserver{}
	Heartbeat().Add(o)

	PumpHeartbeat(context.Background(), 0)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, o.Count())
}

func TestHub_SharesSubjectPerName(t *testing.T) {
	h := NewHub()

	a := h.Named("selection")
	require.Same(t, a, h.Named("selection"))
	require.NotSame(t, a, h.Named("clipboard"))

	o := &countingObserver{}
	a.Add(o)
	require.True(t, h.Notify("selection"))
	require.False(t, h.Notify("missing"))
	require.Equal(t, 1, o.Count())

	got, ok := h.Lookup("clipboard")
	require.True(t, ok)
	require.Equal(t, "clipboard", got.Name())
	require.Equal(t, []string{"clipboard", "selection"}, h.Names())
}

// Adding the same observer any number of times behaves exactly like adding it once.
func TestProperty_AddIdempotence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := New("prop")
		observers := make([]*countingObserver, rapid.IntRange(1, 5).Draw(t, "observers"))
		for i := range observers {
			observers[i] = &countingObserver{}
		}

		adds := rapid.SliceOfN(rapid.IntRange(0, len(observers)-1), 1, 30).Draw(t, "adds")
		distinct := make(map[int]struct{})
		for _, idx := range adds {
			s.Add(observers[idx])
			distinct[idx] = struct{}{}
		}

		if s.Len() != len(distinct) {
			t.Fatalf("len = %d, want %d", s.Len(), len(distinct))
		}

		s.Notify()
		for i, o := range observers {
			want := 0
			if _, ok := distinct[i]; ok {
				want = 1
			}
			if o.Count() != want {
				t.Fatalf("observer %d notified %d times, want %d", i, o.Count(), want)
			}
		}
	})
}
