// Package dispatch turns a typed query into an optimistic user message, the
// two dependent upstream calls and exactly one terminal bot message.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"clinician-dashboard-be/internal/constant"
	"clinician-dashboard-be/internal/model"
	"clinician-dashboard-be/internal/pkg/logger"
	"clinician-dashboard-be/internal/repository"
	"clinician-dashboard-be/internal/repository/contract"
	"clinician-dashboard-be/pkg/conversation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	logModule      = "Dispatcher"
	defaultTimeout = 60 * time.Second
)

// Upstream is the clinical backend. *clinicapi.Client satisfies it.
type Upstream interface {
	FetchPatientHistory(ctx context.Context, patientID string) (json.RawMessage, error)
	FetchDoctorsView(ctx context.Context) ([]json.RawMessage, error)
	AnalyzePatient(ctx context.Context, query string, history json.RawMessage) (string, error)
	AnalyzeAggregate(ctx context.Context, query string, patients []json.RawMessage) (string, error)
}

// MessageStore is the part of the conversation store the dispatcher writes to.
type MessageStore interface {
	Append(key string, msg model.Message) int
	Update(key string, fn conversation.Updater) []model.Message
	ReplaceByID(key, id string, msg model.Message) bool
}

type Dispatcher struct {
	store    MessageStore
	upstream Upstream
	cache    contract.IKeyValueRepository
	logger   logger.ILogger
	timeout  time.Duration
	tracer   trace.Tracer
	now      func() time.Time

	mu      sync.Mutex
	drafts  map[string]string
	pending map[string]int
	wg      sync.WaitGroup
}

// New builds a dispatcher. cache may be nil, in which case analyses are not cached.
func New(store MessageStore, upstream Upstream, cache contract.IKeyValueRepository, log logger.ILogger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		store:    store,
		upstream: upstream,
		cache:    cache,
		logger:   log,
		timeout:  timeout,
		tracer:   otel.Tracer("clinician-dashboard-be/dispatch"),
		now:      time.Now,
		drafts:   make(map[string]string),
		pending:  make(map[string]int),
	}
}

// Send appends the user message right away and resolves the bot reply in the
// background. Blank text without attachments is rejected with ErrNothingToSend.
func (d *Dispatcher) Send(ctx context.Context, key, text string, files []model.FileRef) (*Task, error) {
	if strings.TrimSpace(text) == "" && len(files) == 0 {
		return nil, model.ErrNothingToSend
	}

	d.store.Append(key, model.Message{
		Role:        model.RoleUser,
		Content:     text,
		Attachments: append([]model.FileRef(nil), files...),
		CreatedAt:   d.now(),
	})

	d.mu.Lock()
	delete(d.drafts, key)
	d.mu.Unlock()

	task := d.start(ctx, key, text, "")
	d.logger.Info(logModule, "Message dispatched", map[string]interface{}{
		"key":         key,
		"attachments": len(files),
	})
	return task, nil
}

// Regenerate re-runs the query of the user message at index-1 and replaces the
// bot reply at index in place. Every other index is left untouched.
func (d *Dispatcher) Regenerate(ctx context.Context, key string, index int) (*Task, error) {
	placeholder := model.Message{
		ID:        uuid.NewString(),
		Role:      model.RoleBot,
		Pending:   true,
		CreatedAt: d.now(),
	}

	var (
		query   string
		invalid *model.RegenerateTargetInvalid
	)
	d.store.Update(key, func(prev []model.Message) []model.Message {
		if reason := regenerateBlocker(prev, index); reason != "" {
			invalid = &model.RegenerateTargetInvalid{Key: key, Index: index, Reason: reason}
			return prev
		}
		query = prev[index-1].Content
		prev[index] = placeholder
		return prev
	})
	if invalid != nil {
		d.logger.Warn(logModule, "Regenerate rejected", map[string]interface{}{
			"key":    key,
			"index":  index,
			"reason": invalid.Reason,
		})
		return nil, invalid
	}

	return d.start(ctx, key, query, placeholder.ID), nil
}

func regenerateBlocker(list []model.Message, index int) string {
	switch {
	case index <= 0 || index >= len(list):
		return "index out of range"
	case list[index].IsSeed:
		return "seed message"
	case list[index].Role != model.RoleBot:
		return "not a bot message"
	case list[index].Pending:
		return "already regenerating"
	case list[index-1].Role != model.RoleUser:
		return "no user message before it"
	}
	return ""
}

func (d *Dispatcher) SaveDraft(key, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if text == "" {
		delete(d.drafts, key)
		return
	}
	d.drafts[key] = text
}

func (d *Dispatcher) Draft(key string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drafts[key]
}

// Pending is the number of tasks for key that have not landed yet.
func (d *Dispatcher) Pending(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending[key]
}

// CachedAnalysis returns the last successful analysis stored for a patient.
func (d *Dispatcher) CachedAnalysis(ctx context.Context, patientID string) (model.AnalysisBundle, bool, error) {
	var bundle model.AnalysisBundle
	if d.cache == nil {
		return bundle, false, nil
	}
	found, err := repository.GetJSON(ctx, d.cache, fmt.Sprintf(constant.StorageKeyPatientHistory, patientID), &bundle)
	return bundle, found, err
}

// Drain waits for in-flight tasks, bounded by ctx.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) start(ctx context.Context, key, query, placeholderID string) *Task {
	task := newTask(key)

	d.mu.Lock()
	d.pending[key]++
	d.mu.Unlock()

	// Closing a tab or ending the session must not abort the reply.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		d.run(runCtx, task, query, placeholderID)
	}()
	return task
}

func (d *Dispatcher) run(ctx context.Context, task *Task, query, placeholderID string) {
	ctx, span := d.tracer.Start(ctx, "dispatch.run", trace.WithAttributes(
		attribute.String("conversation.key", task.key),
		attribute.Bool("regenerate", placeholderID != ""),
	))
	defer span.End()

	content := constant.FallbackMessage
	var err error
	defer func() {
		if r := recover(); r != nil {
			content = constant.FallbackMessage
			err = fmt.Errorf("dispatch panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		d.land(task, placeholderID, content, err)
	}()

	content, err = d.resolve(ctx, task.key, query)
}

// resolve runs the two upstream calls and returns the text of the terminal message.
func (d *Dispatcher) resolve(ctx context.Context, key, query string) (string, error) {
	var (
		content string
		err     error
		history json.RawMessage
	)
	if model.IsGeneralKey(key) {
		var patients []json.RawMessage
		patients, err = d.upstream.FetchDoctorsView(ctx)
		if err == nil {
			content, err = d.upstream.AnalyzeAggregate(ctx, query, patients)
		}
	} else {
		history, err = d.upstream.FetchPatientHistory(ctx, key)
		if err == nil {
			content, err = d.upstream.AnalyzePatient(ctx, query, history)
		}
	}

	var malformed *model.MalformedResponseError
	switch {
	case errors.As(err, &malformed):
		d.logger.Warn(logModule, "Analysis returned no content", map[string]interface{}{"key": key, "endpoint": malformed.Endpoint})
		return constant.NoResponseMessage, nil
	case err != nil:
		d.logger.Error(logModule, "Dispatch failed", map[string]interface{}{"key": key, "error": err})
		return constant.FallbackMessage, err
	}

	if !model.IsGeneralKey(key) {
		d.cacheAnalysis(ctx, key, history, content)
	}
	return content, nil
}

func (d *Dispatcher) cacheAnalysis(ctx context.Context, patientID string, history json.RawMessage, analysis string) {
	if d.cache == nil {
		return
	}
	bundle := model.AnalysisBundle{
		PatientID: patientID,
		History:   history,
		Analysis:  analysis,
		Timestamp: d.now(),
	}
	if err := repository.SetJSON(ctx, d.cache, fmt.Sprintf(constant.StorageKeyPatientHistory, patientID), bundle); err != nil {
		d.logger.Warn(logModule, "Failed to cache analysis", map[string]interface{}{"patient_id": patientID, "error": err})
	}
}

// land writes the terminal message into the captured key. A regenerate
// placeholder is replaced in place; if it is gone the message is appended.
func (d *Dispatcher) land(task *Task, placeholderID, content string, err error) {
	msg := model.Message{
		ID:        uuid.NewString(),
		Role:      model.RoleBot,
		Content:   content,
		CreatedAt: d.now(),
	}
	if placeholderID == "" || !d.store.ReplaceByID(task.key, placeholderID, msg) {
		d.store.Append(task.key, msg)
	}

	d.mu.Lock()
	if d.pending[task.key] <= 1 {
		delete(d.pending, task.key)
	} else {
		d.pending[task.key]--
	}
	d.mu.Unlock()

	task.complete(msg, err)
}
