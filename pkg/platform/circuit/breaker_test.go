package circuit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(opts ...Option) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return New("lineage-store", append([]Option{WithClock(clock.Now)}, opts...)...), clock
}

func TestBreaker_Transitions(t *testing.T) {
	type step struct {
		fail       bool
		wantOpened bool
		wantClosed bool
		wantOpen   bool
	}
	tests := []struct {
		name  string
		opts  []Option
		steps []step
	}{
		{
			name: "opens on the threshold failure",
			opts: []Option{WithFailureThreshold(3)},
			steps: []step{
				{fail: true},
				{fail: true},
				{fail: true, wantOpened: true, wantOpen: true},
				{fail: true, wantOpen: true},
			},
		},
		{
			name: "success resets the failure run",
			opts: []Option{WithFailureThreshold(2)},
			steps: []step{
				{fail: true},
				{fail: false},
				{fail: true},
				{fail: true, wantOpened: true, wantOpen: true},
			},
		},
		{
			name: "closes after consecutive successes",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{fail: true, wantOpened: true, wantOpen: true},
				{fail: false, wantOpen: true},
				{fail: false, wantClosed: true},
			},
		},
		{
			name: "failure while open restarts the success run",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{fail: true, wantOpened: true, wantOpen: true},
				{fail: false, wantOpen: true},
				{fail: true, wantOpen: true},
				{fail: false, wantOpen: true},
				{fail: false, wantClosed: true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBreaker(tt.opts...)
			for i, s := range tt.steps {
				var change Change
				if s.fail {
					_, change = b.RecordFailure()
				} else {
					_, change = b.RecordSuccess()
				}
				assert.Equal(t, s.wantOpened, change.Opened, "step %d opened", i)
				assert.Equal(t, s.wantClosed, change.Closed, "step %d closed", i)
				assert.Equal(t, s.wantOpen, b.IsOpen(), "step %d state", i)
			}
		})
	}
}

func TestBreaker_AllowProbesAfterCooldown(t *testing.T) {
	b, clock := newTestBreaker(WithFailureThreshold(1), WithCooldown(15*time.Second))
	require.True(t, b.Allow())

	b.RecordFailure()
	assert.False(t, b.Allow(), "open breaker rejects calls")

	clock.Advance(14 * time.Second)
	assert.False(t, b.Allow())

	clock.Advance(time.Second)
	assert.True(t, b.Allow(), "probe allowed once the cooldown elapses")

	b.RecordFailure()
	assert.False(t, b.Allow(), "failed probe restarts the cooldown")
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, "closed", b.State().String())
	assert.Equal(t, "lineage-store", b.Name())
}

func TestBreaker_ConcurrentUse(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(50))
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Allow()
			b.RecordFailure()
		}()
	}
	wg.Wait()
	assert.True(t, b.IsOpen())
}
