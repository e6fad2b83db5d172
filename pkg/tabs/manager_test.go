package tabs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clinician-dashboard-be/internal/constant"
	"clinician-dashboard-be/internal/model"
	"clinician-dashboard-be/internal/pkg/logger"
	"clinician-dashboard-be/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu        sync.Mutex
	routes    []string
	cleared   []string
	ended     []string
	active    string
	snapshots int
}

func (r *recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, path)
}

func (r *recorder) Clear(key string) []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, key)
	return nil
}

func (r *recorder) EndFor(subjectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subjectID != r.active {
		return false
	}
	r.ended = append(r.ended, subjectID)
	r.active = ""
	return true
}

func (r *recorder) TabsUpdated(model.TabSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots++
}

func (r *recorder) navigations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}

const settle = 100 * time.Millisecond

func newTestManager(t *testing.T, kv *memory.KeyValueRepository) (*Manager, *recorder) {
	t.Helper()
	if kv == nil {
		kv = memory.NewKeyValueRepository()
	}
	rec := &recorder{}
	m := NewManager(context.Background(), kv, rec, rec, rec, logger.NewNopLogger(),
		WithSettleDelay(settle), WithPersistDebounce(10*time.Millisecond), WithObserver(rec))
	return m, rec
}

func waitSettled(t *testing.T, m *Manager) {
	t.Helper()
	require.Eventually(t, func() bool { return !m.Snapshot().Transitioning }, 2*time.Second, 5*time.Millisecond)
}

func TestOpenSwitchAndNavigate(t *testing.T) {
	m, rec := newTestManager(t, nil)

	require.NoError(t, m.Open(model.Tab{ID: "p1", DisplayName: "Jane"}))
	require.NoError(t, m.Open(model.Tab{ID: "p1", DisplayName: "Jane"}))
	assert.Len(t, m.Snapshot().Tabs, 1)
	assert.Equal(t, model.GeneralKey, m.Active())

	require.NoError(t, m.SwitchTo("p1"))
	assert.Equal(t, "p1", m.Active())
	assert.Equal(t, []string{"/user/p1"}, rec.navigations())
	assert.True(t, m.Snapshot().Transitioning)

	waitSettled(t, m)
	require.NoError(t, m.SwitchTo(model.GeneralKey))
	assert.Equal(t, []string{"/user/p1", constant.GeneralRoutePath}, rec.navigations())
}

func TestSwitchToActiveIsNoop(t *testing.T) {
	m, rec := newTestManager(t, nil)
	require.NoError(t, m.Open(model.Tab{ID: "p1"}))
	require.NoError(t, m.SwitchTo("p1"))
	waitSettled(t, m)

	before := m.Snapshot()
	require.NoError(t, m.SwitchTo("p1"))
	after := m.Snapshot()

	assert.Equal(t, before, after)
	assert.False(t, after.Transitioning)
	assert.Len(t, rec.navigations(), 1)
}

func TestSwitchRejectedWhileTransitioning(t *testing.T) {
	m, rec := newTestManager(t, nil)
	require.NoError(t, m.Open(model.Tab{ID: "p1"}))
	require.NoError(t, m.Open(model.Tab{ID: "p2"}))

	require.NoError(t, m.SwitchTo("p1"))
	err := m.SwitchTo("p2")
	var rejected *model.TabOperationRejected
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "switch", rejected.Op)
	assert.Equal(t, "p1", m.Active())

	assert.True(t, errors.As(m.RequestClose("p1"), &rejected))
	assert.True(t, errors.As(m.ObserveRoute("/user/p2"), &rejected))
	assert.Equal(t, "p1", m.Active())

	waitSettled(t, m)
	require.NoError(t, m.SwitchTo("p2"))
	assert.Equal(t, []string{"/user/p1", "/user/p2"}, rec.navigations())
}

func TestSwitchToUnknownTab(t *testing.T) {
	m, rec := newTestManager(t, nil)
	err := m.SwitchTo("ghost")
	var rejected *model.TabOperationRejected
	require.True(t, errors.As(err, &rejected))
	assert.Empty(t, rec.navigations())
	assert.False(t, m.Snapshot().Transitioning)
}

func TestConfirmCloseRepointsActive(t *testing.T) {
	tests := []struct {
		name       string
		open       []string
		active     string
		close      string
		wantActive string
		wantRoute  string
	}{
		{name: "last tab falls back to previous", open: []string{"A", "B"}, active: "B", close: "B", wantActive: "A", wantRoute: "/user/A"},
		{name: "middle tab takes same index", open: []string{"A", "B", "C"}, active: "B", close: "B", wantActive: "C", wantRoute: "/user/C"},
		{name: "only tab goes general", open: []string{"A"}, active: "A", close: "A", wantActive: model.GeneralKey, wantRoute: "/"},
		{name: "inactive tab keeps active", open: []string{"A", "B"}, active: "A", close: "B", wantActive: "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, rec := newTestManager(t, nil)
			for _, id := range tt.open {
				require.NoError(t, m.Open(model.Tab{ID: id}))
			}
			require.NoError(t, m.SwitchTo(tt.active))
			waitSettled(t, m)
			navBefore := len(rec.navigations())

			require.NoError(t, m.RequestClose(tt.close))
			assert.Equal(t, tt.close, m.Snapshot().PendingClose)
			require.NoError(t, m.ConfirmClose())

			snap := m.Snapshot()
			assert.Equal(t, tt.wantActive, snap.ActiveTabID)
			assert.Empty(t, snap.PendingClose)
			assert.Len(t, snap.Tabs, len(tt.open)-1)
			assert.Equal(t, []string{tt.close}, rec.cleared)

			navs := rec.navigations()[navBefore:]
			if tt.wantRoute == "" {
				assert.Empty(t, navs)
			} else {
				assert.Equal(t, []string{tt.wantRoute}, navs)
			}
		})
	}
}

func TestConfirmCloseEndsMatchingSession(t *testing.T) {
	m, rec := newTestManager(t, nil)
	rec.active = "p1"
	require.NoError(t, m.Open(model.Tab{ID: "p1"}))
	require.NoError(t, m.Open(model.Tab{ID: "p2"}))

	require.NoError(t, m.RequestClose("p2"))
	require.NoError(t, m.ConfirmClose())
	assert.Empty(t, rec.ended)

	require.NoError(t, m.RequestClose("p1"))
	require.NoError(t, m.ConfirmClose())
	assert.Equal(t, []string{"p1"}, rec.ended)
}

func TestCancelClose(t *testing.T) {
	m, rec := newTestManager(t, nil)
	require.NoError(t, m.Open(model.Tab{ID: "p1"}))

	assert.ErrorIs(t, m.CancelClose(), model.ErrNoPendingClose)
	assert.ErrorIs(t, m.ConfirmClose(), model.ErrNoPendingClose)

	require.NoError(t, m.RequestClose("p1"))
	require.NoError(t, m.CancelClose())
	assert.ErrorIs(t, m.ConfirmClose(), model.ErrNoPendingClose)
	assert.Len(t, m.Snapshot().Tabs, 1)
	assert.Empty(t, rec.cleared)
}

func TestObserveRoute(t *testing.T) {
	m, rec := newTestManager(t, nil)
	require.NoError(t, m.Open(model.Tab{ID: "p 1"}))

	require.NoError(t, m.ObserveRoute("/user/p%201"))
	assert.Equal(t, "p 1", m.Active())
	assert.False(t, m.Snapshot().Transitioning)

	require.NoError(t, m.ObserveRoute("/"))
	assert.Equal(t, model.GeneralKey, m.Active())

	var rejected *model.TabOperationRejected
	assert.True(t, errors.As(m.ObserveRoute("/user/unknown"), &rejected))
	assert.True(t, errors.As(m.ObserveRoute("/calendar"), &rejected))
	assert.Empty(t, rec.navigations())
}

func TestTabsPersistAndReload(t *testing.T) {
	kv := memory.NewKeyValueRepository()
	m, _ := newTestManager(t, kv)
	require.NoError(t, m.Open(model.Tab{ID: "p1", DisplayName: "Jane"}))
	require.NoError(t, m.Open(model.Tab{ID: "p2", DisplayName: "John"}))
	require.NoError(t, m.Flush(context.Background()))

	reloaded, _ := newTestManager(t, kv)
	snap := reloaded.Snapshot()
	assert.Equal(t, []model.Tab{{ID: "p1", DisplayName: "Jane"}, {ID: "p2", DisplayName: "John"}}, snap.Tabs)
	assert.Equal(t, model.GeneralKey, snap.ActiveTabID)
}

func TestPersistIsDebounced(t *testing.T) {
	kv := memory.NewKeyValueRepository()
	m, _ := newTestManager(t, kv)
	require.NoError(t, m.Open(model.Tab{ID: "p1"}))
	require.NoError(t, m.Open(model.Tab{ID: "p2"}))

	require.Eventually(t, func() bool {
		raw, found, _ := kv.Get(context.Background(), constant.StorageKeyActiveTabs)
		return found && string(raw) == `[{"id":"p1","displayName":"p1"},{"id":"p2","displayName":"p2"}]`
	}, time.Second, 5*time.Millisecond)
}

func TestLoadSkipsCorruptList(t *testing.T) {
	kv := memory.NewKeyValueRepository()
	require.NoError(t, kv.Set(context.Background(), constant.StorageKeyActiveTabs, []byte(`{not json`)))

	m, _ := newTestManager(t, kv)
	assert.Empty(t, m.Snapshot().Tabs)
}
