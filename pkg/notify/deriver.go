// Package notify derives toasts and the notification log from session events.
package notify

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"clinician-dashboard-be/internal/model"
	"clinician-dashboard-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/patrickmn/go-cache"
)

const (
	logModule       = "NotificationDeriver"
	defaultToastTTL = 5 * time.Second
)

// Delivery pushes derived notifications to connected clients.
type Delivery interface {
	DeliverToast(toast model.Toast)
	DeliverLogEntry(entry model.NotificationLogEntry)
}

type Deriver struct {
	mu      sync.Mutex
	toasts  *cache.Cache
	ttl     time.Duration
	entries []model.NotificationLogEntry
	open    map[string]int // subject id -> index of its open entry
	entropy *rand.Rand

	delivery Delivery
	logger   logger.ILogger
	now      func() time.Time
}

func NewDeriver(toastTTL time.Duration, delivery Delivery, log logger.ILogger) *Deriver {
	if toastTTL <= 0 {
		toastTTL = defaultToastTTL
	}
	return &Deriver{
		toasts:   cache.New(toastTTL, toastTTL),
		ttl:      toastTTL,
		open:     make(map[string]int),
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
		delivery: delivery,
		logger:   log,
		now:      time.Now,
	}
}

// HandleSessionEvent turns one session transition into a toast and a log change.
func (d *Deriver) HandleSessionEvent(ev model.SessionEvent) error {
	switch ev.Type {
	case model.SessionStarted:
		d.started(ev)
	case model.SessionEnded:
		d.ended(ev)
	default:
		return fmt.Errorf("unknown session event type %q", ev.Type)
	}
	return nil
}

func (d *Deriver) started(ev model.SessionEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if idx, ok := d.open[ev.SubjectID]; ok {
		d.logger.Warn(logModule, "Session started while previous entry still open", map[string]interface{}{
			"subject_id": ev.SubjectID,
			"entry_id":   d.entries[idx].ID,
		})
	}

	entry := model.NotificationLogEntry{
		ID:        ulid.MustNew(ulid.Timestamp(d.now()), d.entropy).String(),
		Kind:      model.NotificationSessionStarted,
		SubjectID: ev.SubjectID,
		Message:   fmt.Sprintf("Session started for patient %s", ev.SubjectID),
		StartedAt: ev.StartedAt,
	}
	d.entries = append(d.entries, entry)
	d.open[ev.SubjectID] = len(d.entries) - 1

	d.toastLocked(model.NotificationSessionStarted, "Session started", entry.Message, ev.SubjectID)
	d.deliverEntryLocked(entry)
}

func (d *Deriver) ended(ev model.SessionEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx, ok := d.open[ev.SubjectID]
	if !ok {
		d.logger.Warn(logModule, "Session ended without an open entry, ignoring", map[string]interface{}{
			"subject_id": ev.SubjectID,
		})
		return
	}
	delete(d.open, ev.SubjectID)

	endedAt := ev.OccurredAt
	if endedAt.IsZero() {
		endedAt = d.now()
	}
	elapsed := ev.ElapsedSeconds
	entry := &d.entries[idx]
	entry.Kind = model.NotificationSessionEnded
	entry.EndedAt = &endedAt
	entry.ElapsedSeconds = &elapsed
	entry.Message = fmt.Sprintf("Session ended for patient %s after %s", ev.SubjectID, formatElapsed(elapsed))

	d.toastLocked(model.NotificationSessionEnded, "Session ended", entry.Message, ev.SubjectID)
	d.deliverEntryLocked(cloneEntry(*entry))
}

func formatElapsed(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func (d *Deriver) toastLocked(kind model.NotificationKind, title, message, subjectID string) {
	now := d.now()
	toast := model.Toast{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Message:   message,
		SubjectID: subjectID,
		CreatedAt: now,
		ExpiresAt: now.Add(d.ttl),
	}
	d.toasts.Set(toast.ID, toast, d.ttl)
	if d.delivery != nil {
		d.delivery.DeliverToast(toast)
	}
}

func (d *Deriver) deliverEntryLocked(entry model.NotificationLogEntry) {
	if d.delivery != nil {
		d.delivery.DeliverLogEntry(entry)
	}
}

// Toasts returns the toasts that have neither expired nor been dismissed, oldest first.
func (d *Deriver) Toasts() []model.Toast {
	items := d.toasts.Items()
	out := make([]model.Toast, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(model.Toast))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// DismissToast reports whether the toast was still visible.
func (d *Deriver) DismissToast(id string) bool {
	if _, found := d.toasts.Get(id); !found {
		return false
	}
	d.toasts.Delete(id)
	return true
}

// Log returns every entry, oldest first.
func (d *Deriver) Log() []model.NotificationLogEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.NotificationLogEntry, len(d.entries))
	for i, e := range d.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

func cloneEntry(e model.NotificationLogEntry) model.NotificationLogEntry {
	if e.EndedAt != nil {
		at := *e.EndedAt
		e.EndedAt = &at
	}
	if e.ElapsedSeconds != nil {
		s := *e.ElapsedSeconds
		e.ElapsedSeconds = &s
	}
	return e
}
