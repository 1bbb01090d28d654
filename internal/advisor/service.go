package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/touchtrial/touchtrial-backend/pkg/enums"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
	redisclient "github.com/touchtrial/touchtrial-backend/pkg/redis"
)

const (
	chatScope         = "advisor_chat"
	maxMessageLength  = 2000
	systemInstruction = "You are the TouchTrial shopping advisor. Help the user choose phones " +
		"to try at home. When you recommend phones, call the recommend_phones tool with catalogue ids."
)

// Session is the per-conversation advisor state persisted between requests.
type Session struct {
	ID         string               `json:"id"`
	UserID     uuid.UUID            `json:"user_id"`
	Step       enums.OnboardingStep `json:"step"`
	Budget     string               `json:"budget,omitempty"`
	Priorities []string             `json:"priorities,omitempty"`
	Brands     []string             `json:"brands,omitempty"`
	Messages   []Message            `json:"messages"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// ChatEnabled reports whether free-text input is unlocked.
func (s *Session) ChatEnabled() bool {
	return s.Step == enums.OnboardingStepDone
}

func (s *Session) appendTransition(userLabel, assistantPrompt string) {
	s.Messages = append(s.Messages,
		Message{Role: enums.MessageRoleUser, Content: userLabel},
		Message{Role: enums.MessageRoleAssistant, Content: assistantPrompt},
	)
}

// StreamSink receives the assembled advisor response as it arrives.
type StreamSink interface {
	Delta(text string) error
	Complete(text string, recommendations []Recommendation) error
}

// Service drives advisor conversations: onboarding, gated free-text chat, and
// the streamed gateway round trip.
type Service interface {
	StartSession(ctx context.Context, userID uuid.UUID) (*Session, error)
	GetSession(ctx context.Context, userID uuid.UUID, conversationID string) (*Session, error)
	SelectBudget(ctx context.Context, userID uuid.UUID, conversationID, optionID string) (*Session, error)
	TogglePriority(ctx context.Context, userID uuid.UUID, conversationID, optionID string) (*Session, error)
	ConfirmPriorities(ctx context.Context, userID uuid.UUID, conversationID string) (*Session, error)
	ToggleBrand(ctx context.Context, userID uuid.UUID, conversationID, optionID string) (*Session, error)
	ConfirmBrands(ctx context.Context, userID uuid.UUID, conversationID string, sink StreamSink) (*Session, error)
	SendMessage(ctx context.Context, userID uuid.UUID, conversationID, text string, sink StreamSink) error
}

type gateway interface {
	StreamChat(ctx context.Context, messages []Message) (io.ReadCloser, error)
}

// SessionStore persists conversation snapshots keyed by conversation id.
type SessionStore interface {
	Load(ctx context.Context, conversationID string) (*Session, error)
	Save(ctx context.Context, session *Session) error
}

type inFlightGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	InFlightKey(scope, id string) string
}

type service struct {
	gateway      gateway
	sessions     SessionStore
	guard        inFlightGuard
	historyLimit int
	inFlightTTL  time.Duration
	now          func() time.Time
}

// ServiceParams groups dependencies for the advisor service.
type ServiceParams struct {
	Gateway      gateway
	SessionStore SessionStore
	Guard        inFlightGuard
	HistoryLimit int
	InFlightTTL  time.Duration
	Now          func() time.Time
}

// NewService builds an advisor service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if params.SessionStore == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("in-flight guard is required")
	}
	historyLimit := params.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 20
	}
	ttl := params.InFlightTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		gateway:      params.Gateway,
		sessions:     params.SessionStore,
		guard:        params.Guard,
		historyLimit: historyLimit,
		inFlightTTL:  ttl,
		now:          now,
	}, nil
}

// StartSession opens a fresh conversation at the budget step.
func (s *service) StartSession(ctx context.Context, userID uuid.UUID) (*Session, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}
	now := s.now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Step:      enums.OnboardingStepBudget,
		Messages:  []Message{{Role: enums.MessageRoleAssistant, Content: budgetPrompt}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session")
	}
	return session, nil
}

// GetSession loads a conversation owned by the user.
func (s *service) GetSession(ctx context.Context, userID uuid.UUID, conversationID string) (*Session, error) {
	return s.loadOwned(ctx, userID, conversationID)
}

// SelectBudget applies the budget choice and persists the advanced session.
func (s *service) SelectBudget(ctx context.Context, userID uuid.UUID, conversationID, optionID string) (*Session, error) {
	return s.mutate(ctx, userID, conversationID, func(session *Session) error {
		return session.SelectBudget(optionID)
	})
}

// TogglePriority flips a priority tag.
func (s *service) TogglePriority(ctx context.Context, userID uuid.UUID, conversationID, optionID string) (*Session, error) {
	return s.mutate(ctx, userID, conversationID, func(session *Session) error {
		return session.TogglePriority(optionID)
	})
}

// ConfirmPriorities advances past the priority step when possible.
func (s *service) ConfirmPriorities(ctx context.Context, userID uuid.UUID, conversationID string) (*Session, error) {
	return s.mutate(ctx, userID, conversationID, func(session *Session) error {
		_, err := session.ConfirmPriorities()
		return err
	})
}

// ToggleBrand flips a brand tag, honoring the "any" exclusivity rule.
func (s *service) ToggleBrand(ctx context.Context, userID uuid.UUID, conversationID, optionID string) (*Session, error) {
	return s.mutate(ctx, userID, conversationID, func(session *Session) error {
		return session.ToggleBrand(optionID)
	})
}

// ConfirmBrands completes onboarding. Reaching done fires exactly one
// structured advisor request summarizing all three selections; the response
// streams through the sink like a normal chat turn.
func (s *service) ConfirmBrands(ctx context.Context, userID uuid.UUID, conversationID string, sink StreamSink) (*Session, error) {
	session, err := s.loadOwned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	advanced, err := session.ConfirmBrands()
	if err != nil {
		return nil, err
	}
	if !advanced {
		return session, nil
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	if err := s.streamTurn(ctx, session, session.IntakeSummary(), sink); err != nil {
		return nil, err
	}
	return session, nil
}

// SendMessage handles one gated free-text turn.
func (s *service) SendMessage(ctx context.Context, userID uuid.UUID, conversationID, text string, sink StreamSink) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message is empty")
	}
	if len(trimmed) > maxMessageLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "message is too long")
	}

	session, err := s.loadOwned(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	if !session.ChatEnabled() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "finish onboarding before chatting").
			WithDetails(map[string]string{"step": session.Step.String()})
	}

	return s.streamTurn(ctx, session, trimmed, sink)
}

// streamTurn appends the user turn, performs the guarded gateway round trip,
// and persists the assembled assistant reply.
func (s *service) streamTurn(ctx context.Context, session *Session, userText string, sink StreamSink) error {
	guardKey := s.guard.InFlightKey(chatScope, session.ID)
	acquired, err := s.guard.SetNX(ctx, guardKey, "1", s.inFlightTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire chat guard")
	}
	if !acquired {
		return pkgerrors.New(pkgerrors.CodeConflict, "a response is already streaming for this conversation")
	}
	defer func() {
		_ = s.guard.Del(ctx, guardKey)
	}()

	session.Messages = append(session.Messages, Message{Role: enums.MessageRoleUser, Content: userText})
	s.trimHistory(session)

	request := make([]Message, 0, len(session.Messages)+1)
	request = append(request, Message{Role: enums.MessageRoleSystem, Content: systemInstruction})
	request = append(request, session.Messages...)

	stream, err := s.gateway.StreamChat(ctx, request)
	if err != nil {
		return err
	}
	defer func() { _ = stream.Close() }()

	var sinkErr error
	assembler := NewAssembler(AssemblerCallbacks{
		OnContent: func(delta string) {
			if sinkErr == nil && sink != nil {
				sinkErr = sink.Delta(delta)
			}
		},
	})
	if err := assembler.Consume(ctx, stream); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read advisor stream")
	}
	if sinkErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, sinkErr, "forward advisor stream")
	}

	session.Messages = append(session.Messages, Message{
		Role:    enums.MessageRoleAssistant,
		Content: assembler.Text(),
	})
	s.trimHistory(session)
	if err := s.save(ctx, session); err != nil {
		return err
	}

	if sink != nil {
		if err := sink.Complete(assembler.Text(), assembler.Recommendations()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete advisor stream")
		}
	}
	return nil
}

// trimHistory keeps only the newest messages inside the rolling window.
func (s *service) trimHistory(session *Session) {
	if len(session.Messages) > s.historyLimit {
		session.Messages = session.Messages[len(session.Messages)-s.historyLimit:]
	}
}

func (s *service) mutate(ctx context.Context, userID uuid.UUID, conversationID string, fn func(*Session) error) (*Session, error) {
	session, err := s.loadOwned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) loadOwned(ctx context.Context, userID uuid.UUID, conversationID string) (*Session, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}
	if strings.TrimSpace(conversationID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversation id is required")
	}
	session, err := s.sessions.Load(ctx, conversationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	if session == nil || session.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}
	return session, nil
}

func (s *service) save(ctx context.Context, session *Session) error {
	session.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session")
	}
	return nil
}

// redisSessionStore persists sessions as JSON snapshots in Redis.
type redisSessionStore struct {
	client *redisclient.Client
	ttl    time.Duration
}

// NewRedisSessionStore builds a session store backed by the shared Redis client.
func NewRedisSessionStore(client *redisclient.Client, ttl time.Duration) (SessionStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &redisSessionStore{client: client, ttl: ttl}, nil
}

func (r *redisSessionStore) Load(ctx context.Context, conversationID string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.client.AdvisorSessionKey(conversationID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load advisor session: %w", err)
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("decode advisor session: %w", err)
	}
	return &session, nil
}

func (r *redisSessionStore) Save(ctx context.Context, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode advisor session: %w", err)
	}
	if err := r.client.Set(ctx, r.client.AdvisorSessionKey(session.ID), string(payload), r.ttl); err != nil {
		return fmt.Errorf("save advisor session: %w", err)
	}
	return nil
}
