package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"hostelflow/agreement"
	"hostelflow/audit"
	"hostelflow/auth"
	"hostelflow/billing"
	"hostelflow/dispute"
	"hostelflow/notification"
	"hostelflow/paystack"
)

// Service interfaces consumed by the handlers, kept narrow so tests can stub
// them without touching the database.

type settlementService interface {
	ConfirmPayment(ctx context.Context, params billing.SettlementParams) (billing.SettlementResult, error)
	InvoicesForStudent(ctx context.Context, studentID string) ([]billing.Invoice, error)
	ReceiptsForStudent(ctx context.Context, studentID string) ([]billing.Receipt, error)
}

type authService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(tokenString string) (string, auth.Role, error)
}

type notificationService interface {
	ListForStudent(ctx context.Context, studentID string) ([]notification.Notification, error)
	MarkRead(ctx context.Context, studentID, id string) (notification.Notification, error)
}

type disputeService interface {
	Create(ctx context.Context, studentID, invoiceID, reason string) (dispute.Record, error)
	ListForStudent(ctx context.Context, studentID string) ([]dispute.Record, error)
	Resolve(ctx context.Context, managerID, disputeID string) (dispute.Record, error)
}

type agreementService interface {
	ListForStudent(ctx context.Context, studentID string) ([]agreement.Agreement, error)
	IssueInvoice(ctx context.Context, params agreement.IssueInvoiceParams) (billing.Invoice, error)
}

type auditReader interface {
	ListForEntity(ctx context.Context, entityType, entityID string, limit int) ([]audit.Entry, error)
}

// Server bundles the services behind the HTTP surface. It owns no state of
// its own beyond the loggers and the webhook verifier.
type Server struct {
	verifier      *paystack.Verifier
	billing       settlementService
	auth          authService
	notifications notificationService
	disputes      disputeService
	agreements    agreementService
	auditTrail    auditReader
	infoLog       *log.Logger
	errorLog      *log.Logger
}

// maxWebhookBody caps webhook payload reads; Paystack events are small.
const maxWebhookBody = 1 << 20

// handlePaystackWebhook is the transport face of the settlement pipeline:
// verify, parse, apply, and answer so Paystack knows whether to redeliver.
// Anything acknowledged with 200 is final; only 5xx triggers a retry.
func (s *Server) handlePaystackWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unreadable request body"})
		return
	}

	if err := s.verifier.Verify(body, r.Header.Get(paystack.SignatureHeader)); err != nil {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid signature"})
		return
	}

	ev, err := paystack.ParseEvent(body)
	if err != nil {
		switch {
		case errors.Is(err, paystack.ErrMissingInvoiceID):
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing invoice_id in metadata"})
		case errors.Is(err, paystack.ErrMalformedEvent):
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed event payload"})
		default:
			s.serverError(w, err)
		}
		return
	}

	if ev.Type != paystack.EventChargeSuccess {
		s.writeJSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	result, err := s.billing.ConfirmPayment(r.Context(), billing.SettlementParams{
		InvoiceID:  ev.Data.Metadata.InvoiceID,
		StudentID:  ev.Data.Metadata.StudentID,
		Reference:  ev.Data.Reference,
		Amount:     ev.Data.Amount,
		Channel:    ev.Data.Channel,
		PayerEmail: ev.Data.Customer.Email,
	})
	if err != nil {
		s.serverError(w, err)
		return
	}

	switch result.Outcome {
	case billing.OutcomeProcessed:
		s.writeJSON(w, http.StatusOK, map[string]any{"received": true, "status": "processed"})
	case billing.OutcomeAlreadyProcessed, billing.OutcomeUnknownInvoice:
		s.writeJSON(w, http.StatusOK, map[string]any{"received": true, "note": "Already processed"})
	default:
		s.serverError(w, fmt.Errorf("unexpected settlement outcome %q", result.Outcome))
	}
}

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

func toUserResponse(u auth.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: string(u.Role)}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	// Self-registration only creates students; managers are provisioned
	// out of band.
	req.Role = auth.RoleStudent

	user, err := s.auth.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrWeakPassword):
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, auth.ErrDuplicateEmail):
			s.writeJSON(w, http.StatusConflict, map[string]string{"error": "Email already registered"})
		default:
			s.serverError(w, err)
		}
		return
	}

	s.writeJSON(w, http.StatusCreated, toUserResponse(*user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	result, err := s.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
			return
		}
		s.serverError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  toUserResponse(result.User),
	})
}

type invoiceResponse struct {
	ID               string  `json:"id"`
	AgreementID      string  `json:"agreementId"`
	Amount           int64   `json:"amount"`
	Status           string  `json:"status"`
	Description      string  `json:"description"`
	GatewayReference *string `json:"gatewayReference,omitempty"`
	PaidAt           *string `json:"paidAt,omitempty"`
	CreatedAt        string  `json:"createdAt"`
}

func toInvoiceResponse(inv billing.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:               inv.ID,
		AgreementID:      inv.AgreementID,
		Amount:           inv.Amount,
		Status:           string(inv.Status),
		Description:      inv.Description,
		GatewayReference: inv.GatewayReference,
		CreatedAt:        inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.PaidAt != nil {
		paidAt := inv.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &paidAt
	}
	return resp
}

func (s *Server) handleInvoices(w http.ResponseWriter, r *http.Request) {
	studentID := userIDFrom(r.Context())
	invoices, err := s.billing.InvoicesForStudent(r.Context(), studentID)
	if err != nil {
		s.serverError(w, err)
		return
	}

	items := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, toInvoiceResponse(inv))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type receiptResponse struct {
	ID               string  `json:"id"`
	InvoiceID        string  `json:"invoiceId"`
	AmountPaid       float64 `json:"amountPaid"`
	PaymentMethod    string  `json:"paymentMethod"`
	GatewayReference string  `json:"gatewayReference"`
	PaymentChannel   string  `json:"paymentChannel"`
	PaidAt           string  `json:"paidAt"`
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	studentID := userIDFrom(r.Context())
	receipts, err := s.billing.ReceiptsForStudent(r.Context(), studentID)
	if err != nil {
		s.serverError(w, err)
		return
	}

	items := make([]receiptResponse, 0, len(receipts))
	for _, rec := range receipts {
		items = append(items, receiptResponse{
			ID:               rec.ID,
			InvoiceID:        rec.InvoiceID,
			AmountPaid:       rec.AmountPaid,
			PaymentMethod:    rec.PaymentMethod,
			GatewayReference: rec.GatewayReference,
			PaymentChannel:   rec.PaymentChannel,
			PaidAt:           rec.PaidAt.Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type notificationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	IsRead    bool   `json:"isRead"`
	CreatedAt string `json:"createdAt"`
}

func toNotificationResponse(n notification.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	studentID := userIDFrom(r.Context())
	items, err := s.notifications.ListForStudent(r.Context(), studentID)
	if err != nil {
		s.serverError(w, err)
		return
	}

	out := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, toNotificationResponse(n))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get(":id")
	if id == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing notification id"})
		return
	}

	n, err := s.notifications.MarkRead(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "Notification not found"})
			return
		}
		s.serverError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toNotificationResponse(n))
}

type disputeResponse struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoiceId"`
	Reason    string `json:"reason"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

func toDisputeResponse(rec dispute.Record) disputeResponse {
	return disputeResponse{
		ID:        rec.ID,
		InvoiceID: rec.InvoiceID,
		Reason:    rec.Reason,
		Status:    string(rec.Status),
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleListDisputes(w http.ResponseWriter, r *http.Request) {
	records, err := s.disputes.ListForStudent(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.serverError(w, err)
		return
	}

	items := make([]disputeResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, toDisputeResponse(rec))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleCreateDispute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InvoiceID string `json:"invoiceId"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	rec, err := s.disputes.Create(r.Context(), userIDFrom(r.Context()), req.InvoiceID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, dispute.ErrNotFound):
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "Invoice not found"})
		case errors.Is(err, dispute.ErrForbidden):
			s.writeJSON(w, http.StatusForbidden, map[string]string{"error": "Invoice belongs to another student"})
		default:
			s.serverError(w, err)
		}
		return
	}

	s.writeJSON(w, http.StatusCreated, toDisputeResponse(rec))
}

func (s *Server) handleResolveDispute(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get(":id")
	if id == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing dispute id"})
		return
	}

	rec, err := s.disputes.Resolve(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		switch {
		case errors.Is(err, dispute.ErrNotFound):
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "Dispute not found"})
		case errors.Is(err, dispute.ErrBadStatus):
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Dispute is not under review"})
		default:
			s.serverError(w, err)
		}
		return
	}

	s.writeJSON(w, http.StatusOK, toDisputeResponse(rec))
}

type agreementResponse struct {
	ID            string `json:"id"`
	Room          string `json:"room"`
	MonthlyAmount int64  `json:"monthlyAmount"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Status        string `json:"status"`
}

func (s *Server) handleAgreements(w http.ResponseWriter, r *http.Request) {
	agreements, err := s.agreements.ListForStudent(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.serverError(w, err)
		return
	}

	items := make([]agreementResponse, 0, len(agreements))
	for _, ag := range agreements {
		items = append(items, agreementResponse{
			ID:            ag.ID,
			Room:          ag.Room,
			MonthlyAmount: ag.MonthlyAmount,
			StartDate:     ag.StartDate.Format("2006-01-02"),
			EndDate:       ag.EndDate.Format("2006-01-02"),
			Status:        string(ag.Status),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleIssueInvoice(w http.ResponseWriter, r *http.Request) {
	agreementID := r.URL.Query().Get(":id")
	if agreementID == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing agreement id"})
		return
	}

	var req struct {
		Period string `json:"period"`
		Amount int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	invoice, err := s.agreements.IssueInvoice(r.Context(), agreement.IssueInvoiceParams{
		AgreementID: agreementID,
		Period:      req.Period,
		Amount:      req.Amount,
		IssuedBy:    userIDFrom(r.Context()),
	})
	if err != nil {
		if errors.Is(err, agreement.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "Agreement not found"})
			return
		}
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.writeJSON(w, http.StatusCreated, toInvoiceResponse(invoice))
}

func (s *Server) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	entityID := r.URL.Query().Get("entity_id")
	if entityType == "" || entityID == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "entity_type and entity_id are required"})
		return
	}

	entries, err := s.auditTrail.ListForEntity(r.Context(), entityType, entityID, 50)
	if err != nil {
		s.serverError(w, err)
		return
	}

	type entryResponse struct {
		ID        string         `json:"id"`
		Action    string         `json:"action"`
		ActorID   string         `json:"actorId"`
		Metadata  map[string]any `json:"metadata"`
		CreatedAt string         `json:"createdAt"`
	}
	items := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, entryResponse{
			ID:        e.ID,
			Action:    e.Action,
			ActorID:   e.ActorID,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.errorLog.Printf("write response: %v", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.errorLog.Printf("internal error: %v", err)
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
