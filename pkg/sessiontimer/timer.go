// Package sessiontimer implements the single clinical session countdown.
//
// The timer is either idle or counting down for exactly one subject. Every
// successful Start publishes one SESSION_STARTED event and every transition
// back to idle, by End or by reaching zero, publishes one SESSION_ENDED event.
// Ticks are best-effort: a suspended process does not catch up missed seconds.
package sessiontimer

import (
	"context"
	"sync"
	"time"

	"clinician-dashboard-be/internal/model"
	"clinician-dashboard-be/internal/pkg/logger"
)

const logModule = "SessionTimer"

// EventPublisher receives session transitions. Publish is called with the
// timer locked so events are delivered in transition order; implementations
// must not call back into the timer.
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, event model.SessionEvent) error
}

// TickerFactory returns a tick channel and a stop function.
type TickerFactory func(d time.Duration) (<-chan time.Time, func())

type Option func(*Timer)

func WithTickerFactory(f TickerFactory) Option {
	return func(t *Timer) { t.newTicker = f }
}

func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

type Timer struct {
	mu         sync.Mutex
	ceiling    int
	interval   time.Duration
	state      model.SessionState
	startedAt  time.Time
	stop       chan struct{}
	generation uint64

	publisher EventPublisher
	logger    logger.ILogger
	newTicker TickerFactory
	now       func() time.Time
}

func New(ceilingSeconds int, interval time.Duration, publisher EventPublisher, log logger.ILogger, opts ...Option) *Timer {
	if ceilingSeconds <= 0 {
		ceilingSeconds = 3600
	}
	if interval <= 0 {
		interval = time.Second
	}
	t := &Timer{
		ceiling:   ceilingSeconds,
		interval:  interval,
		publisher: publisher,
		logger:    log,
		newTicker: realTicker,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	tk := time.NewTicker(d)
	return tk.C, tk.Stop
}

// Start begins a session for subjectID. Starting the subject that is already
// active resets the countdown to the ceiling without a new event; starting a
// different subject fails with *model.AlreadyActiveError.
func (t *Timer) Start(subjectID string) (model.SessionState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Active {
		if t.state.SubjectID != subjectID {
			return t.snapshotLocked(), &model.AlreadyActiveError{Active: t.state.SubjectID, Requested: subjectID}
		}
		t.state.RemainingSeconds = t.ceiling
		t.logger.Info(logModule, "Session countdown reset", map[string]interface{}{"subject_id": subjectID})
		return t.snapshotLocked(), nil
	}

	now := t.now()
	t.generation++
	t.startedAt = now
	t.state = model.SessionState{
		Active:           true,
		SubjectID:        subjectID,
		RemainingSeconds: t.ceiling,
		StartedAt:        &now,
	}
	t.stop = make(chan struct{})
	ticks, stopTicker := t.newTicker(t.interval)
	go t.run(t.generation, t.stop, ticks, stopTicker)

	t.publishLocked(model.SessionEvent{
		Type:       model.SessionStarted,
		SubjectID:  subjectID,
		StartedAt:  now,
		OccurredAt: now,
	})
	t.logger.Info(logModule, "Session started", map[string]interface{}{"subject_id": subjectID, "ceiling": t.ceiling})
	return t.snapshotLocked(), nil
}

// End stops the running session and returns the SESSION_ENDED event it published.
func (t *Timer) End() (model.SessionEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.state.Active {
		return model.SessionEvent{}, model.ErrNoActiveSession
	}
	return t.finishLocked(), nil
}

// EndFor ends the session only when it belongs to subjectID.
func (t *Timer) EndFor(subjectID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.state.Active || t.state.SubjectID != subjectID {
		return false
	}
	t.finishLocked()
	return true
}

func (t *Timer) State() model.SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Timer) IsActiveFor(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Active && t.state.SubjectID == key
}

func (t *Timer) ActiveSubject() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.SubjectID, t.state.Active
}

func (t *Timer) Ceiling() int {
	return t.ceiling
}

func (t *Timer) run(gen uint64, stop <-chan struct{}, ticks <-chan time.Time, stopTicker func()) {
	defer stopTicker()
	for {
		select {
		case <-stop:
			return
		case <-ticks:
			if t.tick(gen) {
				return
			}
		}
	}
}

// tick reports whether the loop for gen is finished.
func (t *Timer) tick(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.state.Active || gen != t.generation {
		return true
	}
	t.state.RemainingSeconds--
	if t.state.RemainingSeconds > 0 {
		return false
	}
	t.finishLocked()
	return true
}

func (t *Timer) finishLocked() model.SessionEvent {
	elapsed := t.ceiling - t.state.RemainingSeconds
	ev := model.SessionEvent{
		Type:           model.SessionEnded,
		SubjectID:      t.state.SubjectID,
		StartedAt:      t.startedAt,
		ElapsedSeconds: elapsed,
		OccurredAt:     t.now(),
	}

	close(t.stop)
	t.stop = nil
	t.generation++
	t.state = model.SessionState{}
	t.startedAt = time.Time{}

	t.publishLocked(ev)
	t.logger.Info(logModule, "Session ended", map[string]interface{}{"subject_id": ev.SubjectID, "elapsed": elapsed})
	return ev
}

func (t *Timer) publishLocked(ev model.SessionEvent) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.PublishSessionEvent(context.Background(), ev); err != nil {
		t.logger.Warn(logModule, "Failed to publish session event", map[string]interface{}{
			"type":       ev.Type,
			"subject_id": ev.SubjectID,
			"error":      err,
		})
	}
}

func (t *Timer) snapshotLocked() model.SessionState {
	s := t.state
	if s.StartedAt != nil {
		at := *s.StartedAt
		s.StartedAt = &at
	}
	return s
}
