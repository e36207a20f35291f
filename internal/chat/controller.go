package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cvscreener/cvchat/internal/models"
	"github.com/cvscreener/cvchat/internal/sse"
)

// Backend captures the API surface the controller consumes. It is implemented
// by api.Client; tests substitute fakes.
type Backend interface {
	GetThread(ctx context.Context, threadID string) (models.Thread, error)
	PostMessage(ctx context.Context, threadID, content string) (string, error)
	GetRun(ctx context.Context, runID string) (models.Run, error)
	CancelRun(ctx context.Context, runID string) error
	OpenRunEvents(ctx context.Context, runID string) (io.ReadCloser, error)
}

// State is the controller's position in the run lifecycle.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the conversation published to the UI after
// every transcript or state change.
type Snapshot struct {
	Messages []models.ChatMessage
	State    State
}

// Submission rejections. The transcript is untouched when any of these is
// returned.
var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoThread     = errors.New("no thread identity")
	ErrBusy         = errors.New("a submission is already in flight")
)

const (
	streamErrorText  = "The assistant response was interrupted. You can send your message again."
	submitErrorText  = "Could not reach the assistant. You can send your message again."
	runStatusTimeout = 5 * time.Second
	errLoggerKey     = "err"
)

// Controller orchestrates one run at a time: it submits a message, obtains a
// run id, consumes the run's event feed, and folds every event into the
// transcript in arrival order. At most one event stream is open per
// controller.
type Controller struct {
	backend  Backend
	threadID string
	logger   *slog.Logger
	notify   func(Snapshot)

	mu         sync.Mutex
	state      State
	transcript []models.ChatMessage
	cancel     context.CancelFunc
	runID      string
}

// NewController creates a controller for the given thread. notify is invoked
// after every change with a fresh snapshot; it must not call back into the
// controller. A nil notify is allowed.
func NewController(backend Backend, threadID string, logger *slog.Logger, notify func(Snapshot)) *Controller {
	if notify == nil {
		notify = func(Snapshot) {}
	}
	return &Controller{
		backend:    backend,
		threadID:   threadID,
		logger:     logger.With(slog.String("module", "controller")),
		notify:     notify,
		state:      StateIdle,
		transcript: NewTranscript(),
	}
}

// Transcript returns a copy of the current message list.
func (c *Controller) Transcript() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.transcript)
}

// LoadHistory fetches the thread's stored messages and seeds the transcript
// with them, after the welcome message.
func (c *Controller) LoadHistory(ctx context.Context) error {
	thread, err := c.backend.GetThread(ctx, c.threadID)
	if err != nil {
		return fmt.Errorf("failed to load thread history: %w", err)
	}

	list := NewTranscript()
	for _, m := range thread.Messages {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.Role == "" {
			m.Role = models.RoleSystem
		}
		list = append(list, m)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = list
	c.publishLocked()
	return nil
}

// Submit turns text into a run and streams its events into the transcript,
// returning when the run finishes or fails. Blank input, a missing thread
// identity, or an in-flight submission reject the call without touching the
// transcript. The user message and an empty assistant placeholder are
// appended before any network round trip, so callers see the pending
// exchange immediately.
func (c *Controller) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if c.threadID == "" {
		return ErrNoThread
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.cancel != nil {
		// A stale stream must be gone before a new one opens.
		c.cancel()
	}
	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateSending
	c.transcript = AddUserMessage(c.transcript, text)
	placeholderID := uuid.New().String()
	c.transcript = AddAssistantPlaceholder(c.transcript, placeholderID)
	c.publishLocked()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.runID = ""
		c.state = StateIdle
		c.publishLocked()
		c.mu.Unlock()
	}()

	runID, err := c.backend.PostMessage(streamCtx, c.threadID, text)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		c.logger.Error("Failed to submit message", slog.String(errLoggerKey, err.Error()))
		c.fail(placeholderID, submitErrorText)
		return err
	}

	c.mu.Lock()
	c.runID = runID
	c.state = StateStreaming
	c.publishLocked()
	c.mu.Unlock()

	return c.stream(streamCtx, runID, placeholderID)
}

// stream consumes the run's event feed and folds each interpreted event into
// the transcript, strictly in arrival order.
func (c *Controller) stream(ctx context.Context, runID, placeholderID string) error {
	body, err := c.backend.OpenRunEvents(ctx, runID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		c.logger.Error("Failed to open run event stream",
			slog.String("runID", runID),
			slog.String(errLoggerKey, err.Error()))
		c.fail(placeholderID, c.runErrorText(runID))
		return err
	}
	defer body.Close()

	for frame, err := range sse.Read(body) {
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("Run event stream failed",
				slog.String("runID", runID),
				slog.String(errLoggerKey, err.Error()))
			c.fail(placeholderID, c.runErrorText(runID))
			return err
		}

		ev, ok := Interpret(frame)
		if !ok {
			if frame.Event != "" {
				c.logger.Debug("Ignoring unknown event", slog.String("event", frame.Event))
			}
			continue
		}

		switch e := ev.(type) {
		case Token:
			c.apply(func(list []models.ChatMessage) []models.ChatMessage {
				return AppendAssistant(list, placeholderID, e.Text)
			})
		case Final:
			c.apply(func(list []models.ChatMessage) []models.ChatMessage {
				return FinalizeAssistant(list, placeholderID, e.Text, e.Sources)
			})
		case Done:
			return nil
		case ToolStart:
			c.logger.Info("Tool started",
				slog.String("runID", runID),
				slog.String("tool", e.Tool))
		case ToolEnd:
			c.logger.Info("Tool finished",
				slog.String("runID", runID),
				slog.String("tool", e.Tool))
		}
	}

	// The server closed the stream cleanly without a done event.
	return nil
}

// Cancel terminates the current event stream, if any. This is the voluntary
// path: the open placeholder is left as-is and no error text is produced. The
// backend is asked, best effort, to stop the run as well.
func (c *Controller) Cancel() {
	c.mu.Lock()
	runID := c.runID
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	if runID != "" {
		go c.cancelRun(runID)
	}
}

// cancelRun requests backend-side cancellation. Failures are logged and
// swallowed; the stream teardown is what the caller relies on.
func (c *Controller) cancelRun(runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), runStatusTimeout)
	defer cancel()
	if err := c.backend.CancelRun(ctx, runID); err != nil {
		c.logger.Warn("Failed to cancel run on the backend",
			slog.String("runID", runID),
			slog.String(errLoggerKey, err.Error()))
	}
}

// Reset clears the transcript back to the welcome message, terminating any
// open stream first.
func (c *Controller) Reset() {
	c.Cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.transcript = NewTranscript()
	c.publishLocked()
}

// runErrorText asks the backend once for the run's authoritative error to
// enrich the transcript error message. Polling failures degrade to the
// generic text.
func (c *Controller) runErrorText(runID string) string {
	ctx, cancel := context.WithTimeout(context.Background(), runStatusTimeout)
	defer cancel()

	run, err := c.backend.GetRun(ctx, runID)
	if err != nil || run.Error == "" {
		return streamErrorText
	}
	return fmt.Sprintf("The assistant run failed: %s", run.Error)
}

func (c *Controller) fail(placeholderID, text string) {
	c.apply(func(list []models.ChatMessage) []models.ChatMessage {
		return SetAssistantError(list, placeholderID, text)
	})
}

func (c *Controller) apply(f func([]models.ChatMessage) []models.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = f(c.transcript)
	c.publishLocked()
}

func (c *Controller) publishLocked() {
	c.notify(Snapshot{
		Messages: slices.Clone(c.transcript),
		State:    c.state,
	})
}
