// Package tabs keeps the open patient tabs, the active tab pointer and the
// transition guard that serializes switches and closes.
//
// The general tab is implicit: it is always present and never stored in the
// list. While a transition is running every switch, close or route
// reconciliation is rejected with *model.TabOperationRejected. The guard is
// released after the settle delay whatever happened to the navigation.
package tabs

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"clinician-dashboard-be/internal/constant"
	"clinician-dashboard-be/internal/model"
	"clinician-dashboard-be/internal/pkg/logger"
	"clinician-dashboard-be/internal/repository"
	"clinician-dashboard-be/internal/repository/contract"
)

const (
	logModule = "TabManager"

	defaultSettleDelay     = 300 * time.Millisecond
	defaultPersistDebounce = 300 * time.Millisecond
)

// Navigator moves the client to a route. It is called with the manager locked.
type Navigator interface {
	Navigate(path string)
}

type ConversationClearer interface {
	Clear(key string) []model.Message
}

type SessionEnder interface {
	EndFor(subjectID string) bool
}

// Observer receives a snapshot after every change, with the manager locked.
type Observer interface {
	TabsUpdated(snapshot model.TabSnapshot)
}

type Option func(*Manager)

func WithSettleDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.settleDelay = d
		}
	}
}

func WithPersistDebounce(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.debounce = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

type Manager struct {
	mu            sync.Mutex
	tabs          []model.Tab
	active        string
	pendingClose  string
	transitioning bool
	transitionGen uint64
	settleDelay   time.Duration

	navigator     Navigator
	conversations ConversationClearer
	sessions      SessionEnder
	observer      Observer
	logger        logger.ILogger

	kv           contract.IKeyValueRepository
	debounce     time.Duration
	persistTimer *time.Timer
	dirty        bool
	persistMu    sync.Mutex
}

// NewManager loads the persisted tab list once. A missing or unreadable list
// starts empty on the general tab.
func NewManager(ctx context.Context, kv contract.IKeyValueRepository, nav Navigator, conversations ConversationClearer, sessions SessionEnder, log logger.ILogger, opts ...Option) *Manager {
	m := &Manager{
		active:        model.GeneralKey,
		settleDelay:   defaultSettleDelay,
		debounce:      defaultPersistDebounce,
		navigator:     nav,
		conversations: conversations,
		sessions:      sessions,
		logger:        log,
		kv:            kv,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.load(ctx)
	return m
}

func (m *Manager) load(ctx context.Context) {
	if m.kv == nil {
		return
	}
	var stored []model.Tab
	found, err := repository.GetJSON(ctx, m.kv, constant.StorageKeyActiveTabs, &stored)
	if err != nil {
		m.logger.Warn(logModule, "Failed to load tabs, starting empty", map[string]interface{}{"error": err})
		return
	}
	if !found {
		return
	}
	seen := make(map[string]bool, len(stored))
	for _, tab := range stored {
		if tab.ID == "" || model.IsGeneralKey(tab.ID) || seen[tab.ID] {
			continue
		}
		seen[tab.ID] = true
		m.tabs = append(m.tabs, tab)
	}
	m.logger.Info(logModule, "Tabs restored", map[string]interface{}{"count": len(m.tabs)})
}

// RouteFor returns the client route of a tab.
func RouteFor(id string) string {
	if model.IsGeneralKey(id) {
		return constant.GeneralRoutePath
	}
	return constant.PatientRoutePath + url.PathEscape(id)
}

// Open adds tab at the end of the list. Opening a tab twice does nothing.
func (m *Manager) Open(tab model.Tab) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tab.ID == "" || model.IsGeneralKey(tab.ID) {
		return m.rejectLocked("open", tab.ID, "not a patient tab")
	}
	if m.indexLocked(tab.ID) >= 0 {
		return nil
	}
	if tab.DisplayName == "" {
		tab.DisplayName = tab.ID
	}
	m.tabs = append(m.tabs, tab)
	m.changedLocked(true)
	return nil
}

// SwitchTo makes id active and navigates to it. Switching to the active tab is
// a no-op.
func (m *Manager) SwitchTo(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == m.active {
		return nil
	}
	if m.transitioning {
		return m.rejectLocked("switch", id, "transition in progress")
	}
	if !model.IsGeneralKey(id) && m.indexLocked(id) < 0 {
		return m.rejectLocked("switch", id, "tab is not open")
	}

	m.active = id
	m.navigateLocked(id)
	m.changedLocked(false)
	return nil
}

// RequestClose marks id as waiting for confirmation.
func (m *Manager) RequestClose(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transitioning {
		return m.rejectLocked("close", id, "transition in progress")
	}
	if m.indexLocked(id) < 0 {
		return m.rejectLocked("close", id, "tab is not open")
	}
	m.pendingClose = id
	m.changedLocked(false)
	return nil
}

func (m *Manager) CancelClose() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pendingClose == "" {
		return model.ErrNoPendingClose
	}
	m.pendingClose = ""
	m.changedLocked(false)
	return nil
}

// ConfirmClose removes the tab waiting for confirmation. Its conversation is
// cleared and its session, if running, is ended. When it was the active tab
// the tab now at the same index becomes active, else the previous one, else
// the general tab.
func (m *Manager) ConfirmClose() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.pendingClose
	if id == "" {
		return model.ErrNoPendingClose
	}
	if m.transitioning {
		return m.rejectLocked("close", id, "transition in progress")
	}
	m.pendingClose = ""

	idx := m.indexLocked(id)
	if idx < 0 {
		m.changedLocked(false)
		return m.rejectLocked("close", id, "tab is not open")
	}

	if m.conversations != nil {
		m.conversations.Clear(id)
	}
	if m.sessions != nil && m.sessions.EndFor(id) {
		m.logger.Info(logModule, "Session ended by tab close", map[string]interface{}{"subject_id": id})
	}
	m.tabs = append(m.tabs[:idx], m.tabs[idx+1:]...)

	if m.active == id {
		next := model.GeneralKey
		switch {
		case idx < len(m.tabs):
			next = m.tabs[idx].ID
		case idx > 0:
			next = m.tabs[idx-1].ID
		}
		m.active = next
		m.navigateLocked(next)
	}
	m.changedLocked(true)
	m.logger.Info(logModule, "Tab closed", map[string]interface{}{"tab_id": id, "active": m.active})
	return nil
}

// ObserveRoute reconciles a route change made outside the manager, e.g. a deep
// link. The active pointer follows the route without navigating again.
func (m *Manager) ObserveRoute(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := idFromRoute(path)
	if m.transitioning {
		return m.rejectLocked("route", path, "transition in progress")
	}
	if !ok || (!model.IsGeneralKey(id) && m.indexLocked(id) < 0) {
		return m.rejectLocked("route", path, "route does not match an open tab")
	}
	if id == m.active {
		return nil
	}
	m.active = id
	m.changedLocked(false)
	return nil
}

func idFromRoute(path string) (string, bool) {
	if path == constant.GeneralRoutePath || path == "" {
		return model.GeneralKey, true
	}
	rest, ok := strings.CutPrefix(path, constant.PatientRoutePath)
	if !ok {
		return "", false
	}
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	id, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	return id, true
}

func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Manager) Snapshot() model.TabSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Flush writes a pending tab list change immediately.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	if m.persistTimer != nil {
		m.persistTimer.Stop()
		m.persistTimer = nil
	}
	m.mu.Unlock()
	return m.persist(ctx)
}

func (m *Manager) snapshotLocked() model.TabSnapshot {
	tabs := make([]model.Tab, len(m.tabs))
	copy(tabs, m.tabs)
	return model.TabSnapshot{
		Tabs:          tabs,
		ActiveTabID:   m.active,
		PendingClose:  m.pendingClose,
		Transitioning: m.transitioning,
	}
}

func (m *Manager) indexLocked(id string) int {
	for i, tab := range m.tabs {
		if tab.ID == id {
			return i
		}
	}
	return -1
}

// navigateLocked enters the transition state and schedules its release.
func (m *Manager) navigateLocked(id string) {
	m.transitioning = true
	m.transitionGen++
	gen := m.transitionGen
	time.AfterFunc(m.settleDelay, func() { m.settle(gen) })

	if m.navigator != nil {
		m.navigator.Navigate(RouteFor(id))
	}
}

func (m *Manager) settle(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.transitioning || gen != m.transitionGen {
		return
	}
	m.transitioning = false
	m.notifyLocked()
}

func (m *Manager) rejectLocked(op, target, reason string) error {
	err := &model.TabOperationRejected{Op: op, Target: target, Reason: reason}
	m.logger.Debug(logModule, "Tab operation rejected", map[string]interface{}{
		"op":     op,
		"target": target,
		"reason": reason,
	})
	return err
}

func (m *Manager) changedLocked(tabsChanged bool) {
	if tabsChanged {
		m.schedulePersistLocked()
	}
	m.notifyLocked()
}

func (m *Manager) notifyLocked() {
	if m.observer != nil {
		m.observer.TabsUpdated(m.snapshotLocked())
	}
}

func (m *Manager) schedulePersistLocked() {
	if m.kv == nil {
		return
	}
	m.dirty = true
	if m.persistTimer != nil {
		m.persistTimer.Stop()
	}
	m.persistTimer = time.AfterFunc(m.debounce, func() {
		if err := m.persist(context.Background()); err != nil {
			m.logger.Error(logModule, "Failed to persist tabs", map[string]interface{}{"error": err})
		}
	})
}

func (m *Manager) persist(ctx context.Context) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	if !m.dirty || m.kv == nil {
		m.mu.Unlock()
		return nil
	}
	tabs := make([]model.Tab, len(m.tabs))
	copy(tabs, m.tabs)
	m.dirty = false
	m.mu.Unlock()

	if err := repository.SetJSON(ctx, m.kv, constant.StorageKeyActiveTabs, tabs); err != nil {
		m.mu.Lock()
		m.dirty = true
		m.mu.Unlock()
		return err
	}
	return nil
}
