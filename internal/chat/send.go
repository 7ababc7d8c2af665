package chat

import (
	"context"
	"errors"

	"github.com/RichardoC/arohi/internal/models"
	"go.uber.org/zap"
)

var (
	ErrNoSession = errors.New("no such session")
	ErrPending   = errors.New("a reply is still pending for this session")
)

// sendTask is everything the completion call needs, captured when the user
// message is appended. Later edits to the session do not reach it.
type sendTask struct {
	sessionID string
	text      string
	history   []models.Message
	memory    bool
	user      models.Message
}

// SendMessage appends text as a user message to the session, asks the model
// for a reply and appends that reply as a bot message. It blocks until the
// reply is committed and returns it.
//
// An empty or unknown sessionID makes the call a no-op (ok=false). If the
// session disappears while the model is thinking, the reply is dropped and
// ok is false. The same happens when ctx is cancelled before the reply
// arrives: the user message stays, no bot message is added.
//
// Overlapping sends are allowed: each one replies from the history it saw
// at launch, so two sends racing on one session do not see each other's
// user message. TrySendMessageAsync refuses them instead.
func (s *Store) SendMessage(ctx context.Context, sessionID, text string) (models.Message, bool) {
	task, err := s.begin(sessionID, text, false)
	if err != nil {
		return models.Message{}, false
	}
	return s.complete(ctx, task)
}

// SendMessageAsync is the fire-and-forget form of SendMessage. The user
// message (returned) and the pending flag are in place when it returns; the
// channel yields the committed bot message and is closed. It is closed
// without a value when nothing was sent or the reply was dropped.
func (s *Store) SendMessageAsync(ctx context.Context, sessionID, text string) (models.Message, <-chan models.Message) {
	task, err := s.begin(sessionID, text, false)
	if err != nil {
		done := make(chan models.Message)
		close(done)
		return models.Message{}, done
	}
	return task.user, s.launch(ctx, task)
}

// TrySendMessageAsync is SendMessageAsync for a session with no reply
// outstanding. The pending check and the append of the user message happen
// under one lock, so of two racing calls on one session at most one is
// sent; the other gets ErrPending and changes nothing.
func (s *Store) TrySendMessageAsync(ctx context.Context, sessionID, text string) (models.Message, <-chan models.Message, error) {
	task, err := s.begin(sessionID, text, true)
	if err != nil {
		return models.Message{}, nil, err
	}
	return task.user, s.launch(ctx, task), nil
}

func (s *Store) launch(ctx context.Context, task sendTask) <-chan models.Message {
	done := make(chan models.Message, 1)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer close(done)
		if bot, ok := s.complete(ctx, task); ok {
			done <- bot
		}
	}()
	return done
}

// Pending reports whether a reply for sessionID is still outstanding.
func (s *Store) Pending(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[sessionID] > 0
}

func (s *Store) AnyPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// Wait blocks until every SendMessageAsync call has committed or dropped
// its reply.
func (s *Store) Wait() {
	s.inflight.Wait()
}

func (s *Store) begin(sessionID, text string, exclusive bool) (sendTask, error) {
	if sessionID == "" {
		return sendTask{}, ErrNoSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(sessionID)
	if i < 0 {
		s.logger.Debug("Ignoring message for unknown session", zap.String("sessionID", sessionID))
		return sendTask{}, ErrNoSession
	}
	if exclusive && s.pending[sessionID] > 0 {
		return sendTask{}, ErrPending
	}
	session := &s.sessions[i]

	history := make([]models.Message, len(session.Messages))
	copy(history, session.Messages)

	if len(session.Messages) == 0 {
		session.Title = models.DeriveTitle(text)
	}
	user := s.newMessageLocked(text, models.SenderUser)
	session.Messages = append(session.Messages, user)
	s.touchLocked(session)
	s.pending[sessionID]++
	s.persistSessionsLocked()

	return sendTask{
		sessionID: sessionID,
		text:      text,
		history:   history,
		memory:    s.settings.MemoryEnabled,
		user:      user,
	}, nil
}

func (s *Store) complete(ctx context.Context, task sendTask) (models.Message, bool) {
	reply := s.replier.Reply(ctx, task.text, task.history, task.memory)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending[task.sessionID] <= 1 {
		delete(s.pending, task.sessionID)
	} else {
		s.pending[task.sessionID]--
	}

	if err := ctx.Err(); err != nil {
		s.logger.Info("Dropping reply for cancelled send", zap.String("sessionID", task.sessionID), zap.Error(err))
		return models.Message{}, false
	}
	i := s.indexLocked(task.sessionID)
	if i < 0 {
		s.logger.Info("Dropping reply for removed session", zap.String("sessionID", task.sessionID))
		return models.Message{}, false
	}
	session := &s.sessions[i]

	bot := s.newMessageLocked(reply, models.SenderBot)
	session.Messages = append(session.Messages, bot)
	s.touchLocked(session)
	s.persistSessionsLocked()
	return bot, true
}

func (s *Store) newMessageLocked(text string, sender models.Sender) models.Message {
	return models.Message{
		ID:        s.newID(),
		Text:      text,
		Sender:    sender,
		Timestamp: models.EpochMillis(s.now()),
	}
}
