package service

import (
	"context"
	"fmt"
	"time"

	"clinician-dashboard-be/internal/constant"
	"clinician-dashboard-be/internal/dto"
	"clinician-dashboard-be/internal/mapper"
	"clinician-dashboard-be/internal/model"
	"clinician-dashboard-be/internal/pkg/logger"
	"clinician-dashboard-be/internal/repository"
	"clinician-dashboard-be/internal/repository/contract"
	"clinician-dashboard-be/pkg/dispatch"
)

type ConversationStore interface {
	Messages(key string) []model.Message
	Clear(key string) []model.Message
}

type MessageDispatcher interface {
	Send(ctx context.Context, key, text string, files []model.FileRef) (*dispatch.Task, error)
	Regenerate(ctx context.Context, key string, index int) (*dispatch.Task, error)
	SaveDraft(key, text string)
	Draft(key string) string
	Pending(key string) int
	CachedAnalysis(ctx context.Context, patientID string) (model.AnalysisBundle, bool, error)
}

type IConversationService interface {
	Messages(ctx context.Context, key string) (*dto.ConversationResponse, error)
	Send(ctx context.Context, key string, req *dto.SendMessageRequest, wait bool) (*dto.SendMessageResponse, error)
	Regenerate(ctx context.Context, key string, index int, wait bool) (*dto.SendMessageResponse, error)
	ClearMessages(ctx context.Context, key string) (*dto.ConversationResponse, error)
	SaveDraft(ctx context.Context, key, text string) *dto.DraftResponse
	Draft(ctx context.Context, key string) *dto.DraftResponse
	CachedAnalysis(ctx context.Context, patientID string) (*dto.AnalysisResponse, error)
}

type conversationService struct {
	store      ConversationStore
	dispatcher MessageDispatcher
	kv         contract.IKeyValueRepository
	mapper     *mapper.DashboardMapper
	logger     logger.ILogger
}

func NewConversationService(store ConversationStore, dispatcher MessageDispatcher, kv contract.IKeyValueRepository, log logger.ILogger) IConversationService {
	return &conversationService{
		store:      store,
		dispatcher: dispatcher,
		kv:         kv,
		mapper:     mapper.NewDashboardMapper(),
		logger:     log,
	}
}

// dateStamp pins the display date of the message that occupied an index.
type dateStamp struct {
	MessageID string    `json:"message_id"`
	At        time.Time `json:"at"`
}

func (c *conversationService) Messages(ctx context.Context, key string) (*dto.ConversationResponse, error) {
	return c.toResponse(ctx, key, c.store.Messages(key)), nil
}

func (c *conversationService) Send(ctx context.Context, key string, req *dto.SendMessageRequest, wait bool) (*dto.SendMessageResponse, error) {
	task, err := c.dispatcher.Send(ctx, key, req.Text, req.Attachments)
	if err != nil {
		return nil, err
	}
	return c.taskResponse(ctx, task, wait)
}

func (c *conversationService) Regenerate(ctx context.Context, key string, index int, wait bool) (*dto.SendMessageResponse, error) {
	task, err := c.dispatcher.Regenerate(ctx, key, index)
	if err != nil {
		return nil, err
	}
	return c.taskResponse(ctx, task, wait)
}

func (c *conversationService) taskResponse(ctx context.Context, task *dispatch.Task, wait bool) (*dto.SendMessageResponse, error) {
	res := &dto.SendMessageResponse{Key: task.Key()}
	if wait {
		msg, taskErr := task.Wait(ctx)
		if ctx.Err() != nil {
			// the reply still lands in the conversation
			res.Pending = c.dispatcher.Pending(task.Key())
			return res, nil
		}
		reply := c.mapper.ToMessageResponse(-1, msg, msg.CreatedAt)
		res.Reply = &reply
		res.Complete = true
		if taskErr != nil {
			res.Error = taskErr.Error()
		}
	}
	res.Pending = c.dispatcher.Pending(task.Key())
	return res, nil
}

func (c *conversationService) ClearMessages(ctx context.Context, key string) (*dto.ConversationResponse, error) {
	msgs := c.store.Clear(key)
	c.logger.Info("ConversationService", "Conversation cleared", map[string]interface{}{"key": key})
	return c.toResponse(ctx, key, msgs), nil
}

func (c *conversationService) SaveDraft(_ context.Context, key, text string) *dto.DraftResponse {
	c.dispatcher.SaveDraft(key, text)
	return &dto.DraftResponse{Key: key, Text: text}
}

func (c *conversationService) Draft(_ context.Context, key string) *dto.DraftResponse {
	return &dto.DraftResponse{Key: key, Text: c.dispatcher.Draft(key)}
}

func (c *conversationService) CachedAnalysis(ctx context.Context, patientID string) (*dto.AnalysisResponse, error) {
	bundle, found, err := c.dispatcher.CachedAnalysis(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("read cached analysis: %w", err)
	}
	if !found {
		return nil, model.ErrNotFound
	}
	return c.mapper.ToAnalysisResponse(bundle), nil
}

func (c *conversationService) toResponse(ctx context.Context, key string, msgs []model.Message) *dto.ConversationResponse {
	out := make([]dto.MessageResponse, len(msgs))
	for i, msg := range msgs {
		out[i] = c.mapper.ToMessageResponse(i, msg, c.displayDate(ctx, key, i, msg))
	}
	return &dto.ConversationResponse{
		Key:      key,
		Pending:  c.dispatcher.Pending(key),
		Messages: out,
	}
}

// displayDate returns the stored date for index i, pinning the message's own
// creation time the first time a message is seen at that index.
func (c *conversationService) displayDate(ctx context.Context, key string, i int, msg model.Message) time.Time {
	if c.kv == nil {
		return msg.CreatedAt
	}
	storageKey := fmt.Sprintf(constant.StorageKeySessionStarted, key, i)

	var stamp dateStamp
	found, err := repository.GetJSON(ctx, c.kv, storageKey, &stamp)
	if err != nil {
		c.logger.Warn("ConversationService", "Failed to read display date", map[string]interface{}{"key": storageKey, "error": err})
		return msg.CreatedAt
	}
	if found && stamp.MessageID == msg.ID {
		return stamp.At
	}

	stamp = dateStamp{MessageID: msg.ID, At: msg.CreatedAt}
	if err := repository.SetJSON(ctx, c.kv, storageKey, stamp); err != nil {
		c.logger.Warn("ConversationService", "Failed to store display date", map[string]interface{}{"key": storageKey, "error": err})
	}
	return stamp.At
}
