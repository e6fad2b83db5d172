package conversation

import (
	"sync"
	"testing"

	"clinician-dashboard-be/internal/constant"
	"clinician-dashboard-be/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProbe struct {
	active string
}

func (p *fakeProbe) IsActiveFor(key string) bool { return p.active != "" && p.active == key }

type recordingObserver struct {
	mu      sync.Mutex
	updates map[string]int
	last    map[string][]model.Message
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{updates: map[string]int{}, last: map[string][]model.Message{}}
}

func (o *recordingObserver) ConversationUpdated(key string, messages []model.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates[key]++
	o.last[key] = messages
}

func TestFirstAccessSeeds(t *testing.T) {
	probe := &fakeProbe{active: "p2"}
	s := NewStore(probe)

	tests := []struct {
		key  string
		want string
	}{
		{key: model.GeneralKey, want: constant.GeneralSeedMessage},
		{key: "p1", want: constant.PatientSeedMessage},
		{key: "p2", want: constant.PatientSessionSeedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			msgs := s.Messages(tt.key)
			require.Len(t, msgs, 1)
			assert.True(t, msgs[0].IsSeed)
			assert.Equal(t, model.RoleBot, msgs[0].Role)
			assert.Equal(t, tt.want, msgs[0].Content)
		})
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := NewStore(nil)
	s.Append("p1", model.Message{Role: model.RoleUser, Content: "headache",
		Attachments: []model.FileRef{{Name: "scan.png"}}})

	msgs := s.Messages("p1")
	msgs[1].Content = "mutated"
	msgs[1].Attachments[0].Name = "mutated"

	again := s.Messages("p1")
	assert.Equal(t, "headache", again[1].Content)
	assert.Equal(t, "scan.png", again[1].Attachments[0].Name)
}

func TestSetAndUpdate(t *testing.T) {
	s := NewStore(nil)
	obs := newRecordingObserver()
	s.SetObserver(obs)

	seed := s.Messages("p1")[0]
	s.Set("p1", []model.Message{seed, {ID: "u1", Role: model.RoleUser, Content: "a"}})
	out := s.Update("p1", func(prev []model.Message) []model.Message {
		return append(prev, model.Message{ID: "b1", Role: model.RoleBot, Content: "b"})
	})

	require.Len(t, out, 3)
	assert.Equal(t, "b", out[2].Content)
	assert.Equal(t, 2, obs.updates["p1"])
	assert.Len(t, obs.last["p1"], 3)
	assert.Zero(t, obs.updates["p2"])
}

func TestClearUsesCurrentSessionState(t *testing.T) {
	probe := &fakeProbe{}
	s := NewStore(probe)
	s.Append("p1", model.Message{Role: model.RoleUser, Content: "x"})

	probe.active = "p1"
	msgs := s.Clear("p1")
	require.Len(t, msgs, 1)
	assert.Equal(t, constant.PatientSessionSeedMessage, msgs[0].Content)

	probe.active = ""
	msgs = s.Clear("p1")
	assert.Equal(t, constant.PatientSeedMessage, msgs[0].Content)
}

func TestDeleteAndReplaceNeverTouchSeed(t *testing.T) {
	s := NewStore(nil)
	s.Append("p1", model.Message{Role: model.RoleUser, Content: "q"})
	s.Append("p1", model.Message{ID: "bot", Role: model.RoleBot, Content: "a"})

	assert.False(t, s.DeleteAt("p1", 0))
	assert.False(t, s.ReplaceAt("p1", 0, model.Message{Content: "x"}))
	assert.False(t, s.DeleteAt("p1", 9))

	assert.True(t, s.ReplaceAt("p1", 2, model.Message{Role: model.RoleBot, Content: "a2"}))
	assert.Equal(t, "a2", s.Messages("p1")[2].Content)

	assert.False(t, s.ReplaceByID("p1", "bot", model.Message{Content: "gone"}))
	id := s.Messages("p1")[2].ID
	assert.True(t, s.ReplaceByID("p1", id, model.Message{Role: model.RoleBot, Content: "a3"}))

	assert.True(t, s.DeleteAt("p1", 1))
	msgs := s.Messages("p1")
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].IsSeed)
	assert.Equal(t, "a3", msgs[1].Content)
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	s := NewStore(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append("general", model.Message{Role: model.RoleUser, Content: "x"})
		}()
	}
	wg.Wait()
	assert.Len(t, s.Messages("general"), 51)
	assert.ElementsMatch(t, []string{"general"}, s.Keys())
}
