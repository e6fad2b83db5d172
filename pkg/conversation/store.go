// Package conversation keeps one ordered message list per conversation key.
package conversation

import (
	"sync"
	"time"

	"clinician-dashboard-be/internal/constant"
	"clinician-dashboard-be/internal/model"

	"github.com/google/uuid"
)

// SessionProbe tells the store whether a clinical session is running for a key,
// which decides the seed a fresh patient conversation starts with.
type SessionProbe interface {
	IsActiveFor(key string) bool
}

// Observer is notified after every write with the resulting list. It runs with
// the store locked, so notifications for one key arrive in write order, and it
// must not call back into the store.
type Observer interface {
	ConversationUpdated(key string, messages []model.Message)
}

// Updater maps the previous list to the next one. It must not retain prev.
type Updater func(prev []model.Message) []model.Message

type Store struct {
	mu       sync.Mutex
	lists    map[string][]model.Message
	probe    SessionProbe
	observer Observer
	now      func() time.Time
}

func NewStore(probe SessionProbe) *Store {
	return &Store{
		lists: make(map[string][]model.Message),
		probe: probe,
		now:   time.Now,
	}
}

// SetObserver registers the re-render hook. Only one observer is kept.
func (s *Store) SetObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// Messages returns a copy of the list for key, seeding it on first access.
func (s *Store) Messages(key string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneMessages(s.ensureLocked(key))
}

// Set replaces the whole list for key.
func (s *Store) Set(key string, messages []model.Message) {
	next := model.CloneMessages(messages)
	s.Update(key, func([]model.Message) []model.Message { return next })
}

// Update applies fn atomically with respect to other writes to the store and
// returns the resulting list.
func (s *Store) Update(key string, fn Updater) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := model.CloneMessages(s.ensureLocked(key))
	next := fn(prev)
	if next == nil {
		next = []model.Message{}
	}
	s.lists[key] = next
	out := model.CloneMessages(next)
	if s.observer != nil {
		s.observer.ConversationUpdated(key, model.CloneMessages(out))
	}
	return out
}

// Clear resets key to a single seed chosen from the current session state.
func (s *Store) Clear(key string) []model.Message {
	return s.Update(key, func([]model.Message) []model.Message {
		return []model.Message{s.seed(key)}
	})
}

// Append adds msg at the end and returns its index.
func (s *Store) Append(key string, msg model.Message) int {
	msg = s.stamp(msg)
	var idx int
	s.Update(key, func(prev []model.Message) []model.Message {
		idx = len(prev)
		return append(prev, msg)
	})
	return idx
}

// DeleteAt removes the message at index. Seeds and out-of-range indexes are left alone.
func (s *Store) DeleteAt(key string, index int) bool {
	var ok bool
	s.Update(key, func(prev []model.Message) []model.Message {
		if index < 0 || index >= len(prev) || prev[index].IsSeed {
			return prev
		}
		ok = true
		return append(prev[:index], prev[index+1:]...)
	})
	return ok
}

// ReplaceAt swaps the message at index for msg, keeping every other index.
func (s *Store) ReplaceAt(key string, index int, msg model.Message) bool {
	msg = s.stamp(msg)
	var ok bool
	s.Update(key, func(prev []model.Message) []model.Message {
		if index < 0 || index >= len(prev) || prev[index].IsSeed {
			return prev
		}
		ok = true
		prev[index] = msg
		return prev
	})
	return ok
}

// ReplaceByID swaps the message carrying id for msg. It reports false when the
// message is gone, e.g. after the conversation was cleared.
func (s *Store) ReplaceByID(key, id string, msg model.Message) bool {
	msg = s.stamp(msg)
	var ok bool
	s.Update(key, func(prev []model.Message) []model.Message {
		for i := range prev {
			if prev[i].ID == id && !prev[i].IsSeed {
				prev[i] = msg
				ok = true
				break
			}
		}
		return prev
	})
	return ok
}

// Keys lists every conversation created so far.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.lists))
	for k := range s.lists {
		keys = append(keys, k)
	}
	return keys
}

func (s *Store) ensureLocked(key string) []model.Message {
	list, ok := s.lists[key]
	if !ok {
		list = []model.Message{s.seed(key)}
		s.lists[key] = list
	}
	return list
}

func (s *Store) seed(key string) model.Message {
	content := constant.PatientSeedMessage
	switch {
	case model.IsGeneralKey(key):
		content = constant.GeneralSeedMessage
	case s.probe != nil && s.probe.IsActiveFor(key):
		content = constant.PatientSessionSeedMessage
	}
	return model.Message{
		ID:        uuid.NewString(),
		Role:      model.RoleBot,
		Content:   content,
		IsSeed:    true,
		CreatedAt: s.now(),
	}
}

func (s *Store) stamp(msg model.Message) model.Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	return msg
}
