package sessiontimer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clinician-dashboard-be/internal/model"
	"clinician-dashboard-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.SessionEvent
}

func (p *recordingPublisher) PublishSessionEvent(_ context.Context, ev model.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) byType(typ model.SessionEventType) []model.SessionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.SessionEvent
	for _, ev := range p.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// manualTicker hands out one unbuffered channel per started session so tests
// decide exactly how many ticks happen.
type manualTicker struct {
	mu      sync.Mutex
	chans   []chan time.Time
	stopped int
}

func (m *manualTicker) factory(time.Duration) (<-chan time.Time, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan time.Time)
	m.chans = append(m.chans, ch)
	return ch, func() {
		m.mu.Lock()
		m.stopped++
		m.mu.Unlock()
	}
}

func (m *manualTicker) latest() chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chans[len(m.chans)-1]
}

func newTestTimer(ceiling int) (*Timer, *recordingPublisher, *manualTicker) {
	pub := &recordingPublisher{}
	tk := &manualTicker{}
	tm := New(ceiling, time.Second, pub, logger.NewNopLogger(), WithTickerFactory(tk.factory))
	return tm, pub, tk
}

func TestCountdownToZeroEndsExactlyOnce(t *testing.T) {
	tm, pub, tk := newTestTimer(3600)

	_, err := tm.Start("p1")
	require.NoError(t, err)

	ticks := tk.latest()
	for i := 0; i < 3600; i++ {
		ticks <- time.Now()
	}

	require.Eventually(t, func() bool { return !tm.State().Active }, time.Second, 5*time.Millisecond)

	ended := pub.byType(model.SessionEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, "p1", ended[0].SubjectID)
	assert.Equal(t, 3600, ended[0].ElapsedSeconds)
	assert.Len(t, pub.byType(model.SessionStarted), 1)

	_, err = tm.End()
	assert.ErrorIs(t, err, model.ErrNoActiveSession)
	assert.Len(t, pub.byType(model.SessionEnded), 1)
}

func TestRemainingDecreasesPerTick(t *testing.T) {
	tm, _, tk := newTestTimer(10)
	_, err := tm.Start("p1")
	require.NoError(t, err)

	ticks := tk.latest()
	for i := 0; i < 3; i++ {
		ticks <- time.Now()
	}
	require.Eventually(t, func() bool { return tm.State().RemainingSeconds == 7 }, time.Second, 5*time.Millisecond)
}

func TestEndReportsElapsed(t *testing.T) {
	tm, pub, tk := newTestTimer(100)
	_, err := tm.Start("p1")
	require.NoError(t, err)

	ticks := tk.latest()
	for i := 0; i < 4; i++ {
		ticks <- time.Now()
	}
	require.Eventually(t, func() bool { return tm.State().RemainingSeconds == 96 }, time.Second, 5*time.Millisecond)

	ev, err := tm.End()
	require.NoError(t, err)
	assert.Equal(t, 4, ev.ElapsedSeconds)
	assert.False(t, tm.State().Active)
	assert.False(t, tm.IsActiveFor("p1"))
	assert.Len(t, pub.byType(model.SessionEnded), 1)

	require.Eventually(t, func() bool {
		tk.mu.Lock()
		defer tk.mu.Unlock()
		return tk.stopped == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStartRejectsDifferentSubject(t *testing.T) {
	tm, pub, _ := newTestTimer(60)
	_, err := tm.Start("p1")
	require.NoError(t, err)

	state, err := tm.Start("p2")
	var active *model.AlreadyActiveError
	require.True(t, errors.As(err, &active))
	assert.Equal(t, "p1", active.Active)
	assert.Equal(t, "p2", active.Requested)
	assert.Equal(t, "p1", state.SubjectID)
	assert.Len(t, pub.byType(model.SessionStarted), 1)
}

func TestRestartSameSubjectResetsCeiling(t *testing.T) {
	tm, pub, tk := newTestTimer(60)
	_, err := tm.Start("p1")
	require.NoError(t, err)

	tk.latest() <- time.Now()
	require.Eventually(t, func() bool { return tm.State().RemainingSeconds == 59 }, time.Second, 5*time.Millisecond)

	state, err := tm.Start("p1")
	require.NoError(t, err)
	assert.Equal(t, 60, state.RemainingSeconds)
	assert.Len(t, pub.byType(model.SessionStarted), 1)
}

func TestEndForOnlyMatchingSubject(t *testing.T) {
	tm, pub, _ := newTestTimer(60)
	_, err := tm.Start("p1")
	require.NoError(t, err)

	assert.False(t, tm.EndFor("p2"))
	assert.True(t, tm.IsActiveFor("p1"))
	assert.True(t, tm.EndFor("p1"))
	assert.False(t, tm.EndFor("p1"))
	assert.Len(t, pub.byType(model.SessionEnded), 1)

	subject, active := tm.ActiveSubject()
	assert.False(t, active)
	assert.Empty(t, subject)
}

func TestStartAfterEndUsesFreshTicker(t *testing.T) {
	tm, pub, tk := newTestTimer(2)
	_, err := tm.Start("p1")
	require.NoError(t, err)
	_, err = tm.End()
	require.NoError(t, err)

	_, err = tm.Start("p2")
	require.NoError(t, err)
	ticks := tk.latest()
	ticks <- time.Now()
	ticks <- time.Now()

	require.Eventually(t, func() bool { return len(pub.byType(model.SessionEnded)) == 2 }, time.Second, 5*time.Millisecond)
	ended := pub.byType(model.SessionEnded)
	assert.Equal(t, "p2", ended[1].SubjectID)
	assert.Equal(t, 2, ended[1].ElapsedSeconds)
}
