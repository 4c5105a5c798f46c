package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aescanero/dago-node-template/internal/config"
	"github.com/aescanero/dago-node-template/internal/edit"
	"github.com/aescanero/dago-node-template/internal/markup"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TemplateStore loads and saves templates by id
type TemplateStore interface {
	Load(ctx context.Context, id string) (*markup.Template, error)
	Save(ctx context.Context, id string, tmpl *markup.Template) error
}

// Stats holds message counters
type Stats struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Worker consumes edit requests from a Redis stream
type Worker struct {
	id            string
	config        *config.Config
	redisClient   *redis.Client
	editor        *edit.Editor
	store         TemplateStore
	logger        *zap.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	streamKey     string
	consumerGroup string
	resultStream  string
	processed     atomic.Int64
	failed        atomic.Int64
	running       atomic.Bool
}

// NewWorker creates a new worker
func NewWorker(
	cfg *config.Config,
	redisClient *redis.Client,
	editor *edit.Editor,
	store TemplateStore,
	logger *zap.Logger,
) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		id:            cfg.WorkerID,
		config:        cfg,
		redisClient:   redisClient,
		editor:        editor,
		store:         store,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		streamKey:     cfg.StreamKey,
		consumerGroup: cfg.ConsumerGroup,
		resultStream:  cfg.ResultStream,
	}
}

// Start starts the worker
func (w *Worker) Start() error {
	w.logger.Info("starting template worker",
		zap.String("worker_id", w.id),
		zap.String("stream_key", w.streamKey),
		zap.String("consumer_group", w.consumerGroup),
	)

	if err := w.ensureConsumerGroup(); err != nil {
		return fmt.Errorf("failed to ensure consumer group: %w", err)
	}

	w.running.Store(true)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.running.Store(false)
		w.processWork()
	}()

	w.logger.Info("template worker started", zap.String("worker_id", w.id))
	return nil
}

// Stop stops the worker and waits for the processing loop to exit or ctx to expire
func (w *Worker) Stop(ctx context.Context) error {
	w.logger.Info("stopping template worker", zap.String("worker_id", w.id))

	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("template worker stopped", zap.String("worker_id", w.id))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker did not stop in time: %w", ctx.Err())
	}
}

// Stats returns the message counters
func (w *Worker) Stats() Stats {
	return Stats{
		Processed: w.processed.Load(),
		Failed:    w.failed.Load(),
	}
}

// Probe fails unless the processing loop is running; it plugs into HealthServer.AddProbe
func (w *Worker) Probe(context.Context) error {
	if !w.running.Load() {
		return errors.New("processing loop not running")
	}
	return nil
}

// ensureConsumerGroup creates the consumer group if it doesn't exist
func (w *Worker) ensureConsumerGroup() error {
	err := w.redisClient.XGroupCreateMkStream(w.ctx, w.streamKey, w.consumerGroup, "0").Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			w.logger.Debug("consumer group already exists",
				zap.String("group", w.consumerGroup),
			)
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	w.logger.Info("created consumer group",
		zap.String("group", w.consumerGroup),
		zap.String("stream", w.streamKey),
	)
	return nil
}

// readCount is the number of messages claimed per XREADGROUP call
const readCount = 10

// processWork reads batches from the edit stream until the worker is stopped
func (w *Worker) processWork() {
	w.logger.Info("starting work processing loop")
	defer w.logger.Info("work processing loop stopped")

	for w.ctx.Err() == nil {
		messages, err := w.readBatch()
		if err != nil {
			w.logger.Error("failed to read from stream", zap.Error(err))
			select {
			case <-w.ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		// Messages already claimed are finished even when Stop is called meanwhile
		msgCtx := context.WithoutCancel(w.ctx)
		for _, message := range messages {
			w.handleMessage(msgCtx, message)
		}
	}
}

// readBatch claims new messages for this consumer; an empty batch is not an error
func (w *Worker) readBatch() ([]redis.XMessage, error) {
	streams, err := w.redisClient.XReadGroup(w.ctx, &redis.XReadGroupArgs{
		Group:    w.consumerGroup,
		Consumer: w.id,
		Streams:  []string{w.streamKey, ">"},
		Count:    readCount,
		Block:    w.config.BlockTime,
	}).Result()
	if errors.Is(err, redis.Nil) || w.ctx.Err() != nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []redis.XMessage
	for _, stream := range streams {
		messages = append(messages, stream.Messages...)
	}
	return messages, nil
}

// handleMessage handles a single edit request; the message is always acknowledged
func (w *Worker) handleMessage(ctx context.Context, message redis.XMessage) {
	messageID := message.ID
	w.logger.Info("processing edit request",
		zap.String("message_id", messageID),
	)
	defer w.acknowledgeMessage(ctx, messageID)

	request, err := w.parseEditRequest(message.Values)
	if err != nil {
		w.failed.Add(1)
		w.logger.Error("failed to parse edit request",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		w.publishError(ctx, &EditRequest{}, messageID, err)
		return
	}

	if err := w.processEditRequest(ctx, request); err != nil {
		w.failed.Add(1)
		w.logger.Error("failed to process edit request",
			zap.String("message_id", messageID),
			zap.String("request_id", request.RequestID),
			zap.Error(err),
		)
		w.publishError(ctx, request, messageID, err)
		return
	}

	w.processed.Add(1)
}

// EditRequest is an edit plan for one template, inline or stored
type EditRequest struct {
	RequestID  string          `json:"request_id"`
	TemplateID string          `json:"template_id,omitempty"`
	Template   json.RawMessage `json:"template,omitempty"`
	Plan       edit.Plan       `json:"plan"`
	Persist    bool            `json:"persist,omitempty"`
}

// parseEditRequest parses an edit request from a Redis message
func (w *Worker) parseEditRequest(values map[string]interface{}) (*EditRequest, error) {
	dataStr, ok := values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'data' field")
	}

	var request EditRequest
	if err := json.Unmarshal([]byte(dataStr), &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edit request: %w", err)
	}

	if len(request.Template) == 0 && request.TemplateID == "" {
		return nil, fmt.Errorf("request %s: template or template_id is required", request.RequestID)
	}
	if request.Persist && request.TemplateID == "" {
		return nil, fmt.Errorf("request %s: persist requires template_id", request.RequestID)
	}

	return &request, nil
}

// processEditRequest resolves the template, applies the plan and publishes the result
func (w *Worker) processEditRequest(ctx context.Context, request *EditRequest) error {
	tmpl, err := w.resolveTemplate(ctx, request)
	if err != nil {
		return err
	}

	result, err := w.editor.Apply(ctx, tmpl, &request.Plan)
	if err != nil {
		return fmt.Errorf("plan failed: %w", err)
	}

	if request.Persist {
		if w.store == nil {
			return fmt.Errorf("template store not configured")
		}
		if err := w.store.Save(ctx, request.TemplateID, result.Template); err != nil {
			return fmt.Errorf("failed to persist template: %w", err)
		}
	}

	if err := w.publishResult(ctx, request, result); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}

	return nil
}

func (w *Worker) resolveTemplate(ctx context.Context, request *EditRequest) (*markup.Template, error) {
	if len(request.Template) > 0 {
		tmpl, err := markup.Decode(request.Template, w.config.MaxNestingDepth)
		if err != nil {
			return nil, fmt.Errorf("failed to decode template: %w", err)
		}
		return tmpl, nil
	}

	if w.store == nil {
		return nil, fmt.Errorf("template store not configured")
	}
	tmpl, err := w.store.Load(ctx, request.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	return tmpl, nil
}

// publishResult publishes the rebuilt template
func (w *Worker) publishResult(ctx context.Context, request *EditRequest, result *edit.Result) error {
	err := w.publish(ctx, w.resultStream, map[string]interface{}{
		"request_id":  request.RequestID,
		"template_id": request.TemplateID,
		"rebuilt":     result.Rebuilt,
		"mode":        result.Mode,
		"applied":     result.Applied,
		"skipped":     result.Skipped,
		"failed":      result.Failed,
		"steps":       result.Steps,
	})
	if err != nil {
		return err
	}

	w.logger.Info("published rebuilt template",
		zap.String("request_id", request.RequestID),
		zap.String("template_id", request.TemplateID),
		zap.Int("applied", result.Applied),
	)
	return nil
}

// publishError reports a failed request on the error stream
func (w *Worker) publishError(ctx context.Context, request *EditRequest, messageID string, cause error) {
	err := w.publish(ctx, w.resultStream+".errors", map[string]interface{}{
		"message_id":  messageID,
		"request_id":  request.RequestID,
		"template_id": request.TemplateID,
		"error":       cause.Error(),
	})
	if err != nil {
		w.logger.Error("failed to publish error event",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}

// publish stamps event and appends it as the data field of a stream entry
func (w *Worker) publish(ctx context.Context, stream string, event map[string]interface{}) error {
	event["timestamp"] = time.Now().UTC()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := w.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"data": string(data)},
	}).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}
	return nil
}

// acknowledgeMessage acknowledges a message from the stream
func (w *Worker) acknowledgeMessage(ctx context.Context, messageID string) {
	err := w.redisClient.XAck(ctx, w.streamKey, w.consumerGroup, messageID).Err()
	if err != nil {
		w.logger.Error("failed to acknowledge message",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
