package llm

import (
	"context"
	"errors"
	"time"

	"github.com/RichardoC/arohi/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 60 * time.Second

	// Apology is returned in place of a reply whenever the completion call fails.
	Apology = "I apologize, but I'm having trouble connecting to my thoughts right now. Please try again in a moment."

	SystemInstruction = `You are Arohi, a warm and attentive personal companion.
Speak naturally and kindly, the way a close friend would.
Listen carefully, remember what the user has shared in this conversation, and respond with empathy.
Keep answers concise unless the user asks for detail, and never pretend to be human.`
)

var ErrMissingAPIKey = errors.New("missing API key")

// Turn is one prior message in the transport-neutral form generators consume.
type Turn struct {
	Role models.Sender
	Text string
}

type Request struct {
	Model             string
	SystemInstruction string
	History           []Turn
	Text              string
}

// Generator performs exactly one remote completion round trip.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Service struct {
	gen     Generator
	model   string
	system  string
	timeout time.Duration
	logger  *zap.Logger
}

type Option func(*Service)

func WithModel(model string) Option {
	return func(s *Service) {
		if model != "" {
			s.model = model
		}
	}
}

func WithSystemInstruction(system string) Option {
	return func(s *Service) { s.system = system }
}

// WithTimeout bounds each call; zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func New(gen Generator, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		gen:     gen,
		model:   DefaultModel,
		system:  SystemInstruction,
		timeout: DefaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Model() string {
	return s.model
}

// Reply sends text, plus history when memoryEnabled, to the model and returns
// its answer. It never fails: transport errors are logged and replaced by
// Apology. A successful call without text yields "".
func (s *Service) Reply(ctx context.Context, text string, history []models.Message, memoryEnabled bool) string {
	req := Request{
		Model:             s.model,
		SystemInstruction: s.system,
		Text:              text,
	}
	if memoryEnabled {
		req.History = make([]Turn, 0, len(history))
		for _, msg := range history {
			req.History = append(req.History, Turn{Role: msg.Sender, Text: msg.Text})
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := s.gen.Generate(ctx, req)
	if err != nil {
		s.logger.Error("Error communicating with the model",
			zap.Error(err),
			zap.String("model", s.model),
			zap.Int("historyTurns", len(req.History)))
		return Apology
	}

	s.logger.Debug("Generated reply",
		zap.String("model", s.model),
		zap.Int("historyTurns", len(req.History)),
		zap.Duration("took", time.Since(start)))
	return reply
}

type unavailable struct {
	err error
}

// Unavailable returns a Generator whose every call fails with err. It stands
// in for a backend that could not be configured, so the failure surfaces per
// call as Apology instead of at start-up.
func Unavailable(err error) Generator {
	return unavailable{err: err}
}

func (u unavailable) Generate(context.Context, Request) (string, error) {
	return "", u.err
}
