package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/touchtrial/touchtrial-backend/api/middleware"
	"github.com/touchtrial/touchtrial-backend/api/responses"
	"github.com/touchtrial/touchtrial-backend/api/validators"
	advisorsvc "github.com/touchtrial/touchtrial-backend/internal/advisor"
	"github.com/touchtrial/touchtrial-backend/pkg/enums"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
	"github.com/touchtrial/touchtrial-backend/pkg/logger"
)

type advisorOptionRequest struct {
	OptionID string `json:"option_id" validate:"required,min=1,max=40"`
}

type advisorMessageRequest struct {
	Message string `json:"message" validate:"required,min=1,max=2000"`
}

type advisorSessionResponse struct {
	ID          string               `json:"id"`
	Step        string               `json:"step"`
	Budget      string               `json:"budget,omitempty"`
	Priorities  []string             `json:"priorities,omitempty"`
	Brands      []string             `json:"brands,omitempty"`
	Messages    []advisorsvc.Message `json:"messages"`
	Options     []advisorsvc.Option  `json:"options,omitempty"`
	ChatEnabled bool                 `json:"chat_enabled"`
}

func newAdvisorSessionResponse(session *advisorsvc.Session) advisorSessionResponse {
	resp := advisorSessionResponse{
		ID:          session.ID,
		Step:        session.Step.String(),
		Budget:      session.Budget,
		Priorities:  session.Priorities,
		Brands:      session.Brands,
		Messages:    session.Messages,
		ChatEnabled: session.ChatEnabled(),
	}
	switch session.Step {
	case enums.OnboardingStepBudget:
		resp.Options = advisorsvc.BudgetOptions
	case enums.OnboardingStepPriority:
		resp.Options = advisorsvc.PriorityOptions
	case enums.OnboardingStepBrand:
		resp.Options = advisorsvc.BrandOptions
	}
	return resp
}

func AdvisorStartSession(svc advisorsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "advisor service unavailable"))
			return
		}

		session, err := svc.StartSession(r.Context(), middleware.UserUUIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newAdvisorSessionResponse(session))
	}
}

func AdvisorGetSession(svc advisorsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "advisor service unavailable"))
			return
		}

		r = r.WithContext(logg.WithConversationID(r.Context(), conversationID(r)))

		session, err := svc.GetSession(r.Context(), middleware.UserUUIDFromContext(r.Context()), conversationID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAdvisorSessionResponse(session))
	}
}

func AdvisorSelectBudget(svc advisorsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return advisorOptionHandler(svc, logg, func(r *http.Request, svc advisorsvc.Service, optionID string) (*advisorsvc.Session, error) {
		return svc.SelectBudget(r.Context(), middleware.UserUUIDFromContext(r.Context()), conversationID(r), optionID)
	})
}

func AdvisorTogglePriority(svc advisorsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return advisorOptionHandler(svc, logg, func(r *http.Request, svc advisorsvc.Service, optionID string) (*advisorsvc.Session, error) {
		return svc.TogglePriority(r.Context(), middleware.UserUUIDFromContext(r.Context()), conversationID(r), optionID)
	})
}

func AdvisorConfirmPriorities(svc advisorsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "advisor service unavailable"))
			return
		}

		r = r.WithContext(logg.WithConversationID(r.Context(), conversationID(r)))

		session, err := svc.ConfirmPriorities(r.Context(), middleware.UserUUIDFromContext(r.Context()), conversationID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAdvisorSessionResponse(session))
	}
}

func AdvisorToggleBrand(svc advisorsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return advisorOptionHandler(svc, logg, func(r *http.Request, svc advisorsvc.Service, optionID string) (*advisorsvc.Session, error) {
		return svc.ToggleBrand(r.Context(), middleware.UserUUIDFromContext(r.Context()), conversationID(r), optionID)
	})
}

// AdvisorConfirmBrands completes onboarding. When the session advances, the
// first recommendation turn streams back as server-sent events; an empty
// confirm responds with plain JSON instead.
func AdvisorConfirmBrands(svc advisorsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "advisor service unavailable"))
			return
		}

		r = r.WithContext(logg.WithConversationID(r.Context(), conversationID(r)))

		sink := newSSESink(w)
		session, err := svc.ConfirmBrands(r.Context(), middleware.UserUUIDFromContext(r.Context()), conversationID(r), sink)
		if err != nil {
			sink.Fail(r, logg, err)
			return
		}
		if !sink.started {
			responses.WriteSuccess(w, newAdvisorSessionResponse(session))
		}
	}
}

// AdvisorSendMessage handles one free-text chat turn over server-sent events.
func AdvisorSendMessage(svc advisorsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "advisor service unavailable"))
			return
		}

		r = r.WithContext(logg.WithConversationID(r.Context(), conversationID(r)))

		var body advisorMessageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sink := newSSESink(w)
		err := svc.SendMessage(r.Context(), middleware.UserUUIDFromContext(r.Context()), conversationID(r), body.Message, sink)
		if err != nil {
			sink.Fail(r, logg, err)
		}
	}
}

func advisorOptionHandler(svc advisorsvc.Service, logg *logger.Logger, apply func(*http.Request, advisorsvc.Service, string) (*advisorsvc.Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "advisor service unavailable"))
			return
		}

		r = r.WithContext(logg.WithConversationID(r.Context(), conversationID(r)))

		var body advisorOptionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := apply(r, svc, body.OptionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAdvisorSessionResponse(session))
	}
}

func conversationID(r *http.Request) string {
	return chi.URLParam(r, "conversationId")
}

// sseSink forwards assembled advisor output as server-sent events. Headers
// are deferred until the first event so pre-stream failures can still render
// as JSON errors.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

type sseEvent struct {
	Type            string                      `json:"type"`
	Content         string                      `json:"content,omitempty"`
	Recommendations []advisorsvc.Recommendation `json:"recommendations,omitempty"`
	Error           *sseError                   `json:"error,omitempty"`
}

type sseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newSSESink(w http.ResponseWriter) *sseSink {
	flusher, _ := w.(http.Flusher)
	return &sseSink{w: w, flusher: flusher}
}

func (s *sseSink) Delta(text string) error {
	return s.emit(sseEvent{Type: "delta", Content: text})
}

func (s *sseSink) Complete(text string, recommendations []advisorsvc.Recommendation) error {
	if err := s.emit(sseEvent{Type: "complete", Content: text, Recommendations: recommendations}); err != nil {
		return err
	}
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	s.flush()
	return nil
}

// Fail renders an error as JSON before the stream starts, or as a terminal
// stream event after headers have gone out.
func (s *sseSink) Fail(r *http.Request, logg *logger.Logger, err error) {
	if !s.started {
		responses.WriteError(r.Context(), logg, s.w, err)
		return
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	if logg != nil {
		logg.Error(r.Context(), "advisor.stream_failed", err)
	}
	_ = s.emit(sseEvent{Type: "error", Error: &sseError{
		Code:    string(typed.Code()),
		Message: pkgerrors.MetadataFor(typed.Code()).PublicMessage,
	}})
	_, _ = fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flush()
}

func (s *sseSink) emit(event sseEvent) error {
	if !s.started {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flush()
	return nil
}

func (s *sseSink) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
