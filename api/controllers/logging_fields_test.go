package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	advisorsvc "github.com/touchtrial/touchtrial-backend/internal/advisor"
	bookingsvc "github.com/touchtrial/touchtrial-backend/internal/bookings"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
	"github.com/touchtrial/touchtrial-backend/pkg/logger"
	"github.com/touchtrial/touchtrial-backend/pkg/pagination"
)

type missingBookingService struct{}

func (missingBookingService) CreateFromCart(ctx context.Context, userID uuid.UUID, req bookingsvc.CreateBookingRequest) (bookingsvc.BookingDTO, error) {
	panic("unimplemented")
}

func (missingBookingService) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (bookingsvc.BookingPageDTO, error) {
	panic("unimplemented")
}

func (missingBookingService) Get(ctx context.Context, userID, bookingID uuid.UUID) (bookingsvc.BookingDTO, error) {
	return bookingsvc.BookingDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
}

func (missingBookingService) Cancel(ctx context.Context, userID, bookingID uuid.UUID) (bookingsvc.BookingDTO, error) {
	panic("unimplemented")
}

func (missingBookingService) ListAll(ctx context.Context, status string, params pagination.Params) (bookingsvc.BookingPageDTO, error) {
	panic("unimplemented")
}

func (missingBookingService) UpdateStatus(ctx context.Context, bookingID uuid.UUID, req bookingsvc.UpdateStatusRequest) (bookingsvc.BookingDTO, error) {
	panic("unimplemented")
}

type missingAdvisorService struct{}

func (missingAdvisorService) StartSession(ctx context.Context, userID uuid.UUID) (*advisorsvc.Session, error) {
	panic("unimplemented")
}

func (missingAdvisorService) GetSession(ctx context.Context, userID uuid.UUID, conversationID string) (*advisorsvc.Session, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
}

func (missingAdvisorService) SelectBudget(ctx context.Context, userID uuid.UUID, conversationID, optionID string) (*advisorsvc.Session, error) {
	panic("unimplemented")
}

func (missingAdvisorService) TogglePriority(ctx context.Context, userID uuid.UUID, conversationID, optionID string) (*advisorsvc.Session, error) {
	panic("unimplemented")
}

func (missingAdvisorService) ConfirmPriorities(ctx context.Context, userID uuid.UUID, conversationID string) (*advisorsvc.Session, error) {
	panic("unimplemented")
}

func (missingAdvisorService) ToggleBrand(ctx context.Context, userID uuid.UUID, conversationID, optionID string) (*advisorsvc.Session, error) {
	panic("unimplemented")
}

func (missingAdvisorService) ConfirmBrands(ctx context.Context, userID uuid.UUID, conversationID string, sink advisorsvc.StreamSink) (*advisorsvc.Session, error) {
	panic("unimplemented")
}

func (missingAdvisorService) SendMessage(ctx context.Context, userID uuid.UUID, conversationID, text string, sink advisorsvc.StreamSink) error {
	panic("unimplemented")
}

func TestBookingErrorsLogBookingID(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})

	router := chi.NewRouter()
	router.Get("/bookings/{bookingId}", BookingsGet(missingBookingService{}, logg))

	bookingID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/bookings/"+bookingID, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if !strings.Contains(logs.String(), `"booking_id":"`+bookingID+`"`) {
		t.Fatalf("error log missing booking_id field: %s", logs.String())
	}
}

func TestAdvisorErrorsLogConversationID(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})

	router := chi.NewRouter()
	router.Get("/advisor/sessions/{conversationId}", AdvisorGetSession(missingAdvisorService{}, logg))

	req := httptest.NewRequest(http.MethodGet, "/advisor/sessions/conv-42", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if !strings.Contains(logs.String(), `"conversation_id":"conv-42"`) {
		t.Fatalf("error log missing conversation_id field: %s", logs.String())
	}
}
