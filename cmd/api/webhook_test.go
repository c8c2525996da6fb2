package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hostelflow/billing"
	"hostelflow/paystack"
)

const testSecret = "sk_test_webhook"

func newWebhookServer(t *testing.T, billingStub settlementService) *Server {
	t.Helper()
	verifier, err := paystack.NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return &Server{
		verifier: verifier,
		billing:  billingStub,
		infoLog:  log.New(io.Discard, "", 0),
		errorLog: log.New(io.Discard, "", 0),
	}
}

func signedWebhookRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	verifier, err := paystack.NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(body))
	req.Header.Set(paystack.SignatureHeader, verifier.Sign([]byte(body)))
	return req
}

const chargeSuccessBody = `{
	"event": "charge.success",
	"data": {
		"reference": "R1",
		"amount": 500000,
		"channel": "mobile_money",
		"metadata": {"invoice_id": "INV-1", "student_id": "S1"},
		"customer": {"email": "ama@example.com"}
	}
}`

func TestWebhook_InvalidSignature(t *testing.T) {
	stub := &stubSettlement{}
	server := newWebhookServer(t, stub)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(chargeSuccessBody))
	req.Header.Set(paystack.SignatureHeader, "deadbeef")
	rec := httptest.NewRecorder()

	server.handlePaystackWebhook(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "Invalid signature" {
		t.Fatalf("unexpected body: %v", resp)
	}
	if stub.calls != 0 {
		t.Fatal("settlement must not run for a forged request")
	}
}

func TestWebhook_MissingSignatureHeader(t *testing.T) {
	stub := &stubSettlement{}
	server := newWebhookServer(t, stub)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(chargeSuccessBody))
	rec := httptest.NewRecorder()

	server.handlePaystackWebhook(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when signature header is absent, got %d", rec.Code)
	}
	if stub.calls != 0 {
		t.Fatal("settlement must not run without a signature")
	}
}

func TestWebhook_BenignIgnore(t *testing.T) {
	stub := &stubSettlement{}
	server := newWebhookServer(t, stub)

	body := `{"event":"transfer.success","data":{"reference":"T1","amount":100}}`
	rec := httptest.NewRecorder()
	server.handlePaystackWebhook(rec, signedWebhookRequest(t, body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["received"] != true {
		t.Fatalf("expected received ack, got %v", resp)
	}
	if _, hasStatus := resp["status"]; hasStatus {
		t.Fatalf("benign ignore must not claim processing: %v", resp)
	}
	if stub.calls != 0 {
		t.Fatal("settlement must not run for other event types")
	}
}

func TestWebhook_MalformedBody(t *testing.T) {
	server := newWebhookServer(t, &stubSettlement{})

	rec := httptest.NewRecorder()
	server.handlePaystackWebhook(rec, signedWebhookRequest(t, `{"event":`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWebhook_MissingInvoiceID(t *testing.T) {
	stub := &stubSettlement{}
	server := newWebhookServer(t, stub)

	body := `{"event":"charge.success","data":{"reference":"R1","amount":1000,"metadata":{"student_id":"S1"}}}`
	rec := httptest.NewRecorder()
	server.handlePaystackWebhook(rec, signedWebhookRequest(t, body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "Missing invoice_id in metadata" {
		t.Fatalf("unexpected body: %v", resp)
	}
	if stub.calls != 0 {
		t.Fatal("settlement must not run without a correlation key")
	}
}

func TestWebhook_Processed(t *testing.T) {
	stub := &stubSettlement{result: billing.SettlementResult{Outcome: billing.OutcomeProcessed}}
	server := newWebhookServer(t, stub)

	rec := httptest.NewRecorder()
	server.handlePaystackWebhook(rec, signedWebhookRequest(t, chargeSuccessBody))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["received"] != true || resp["status"] != "processed" {
		t.Fatalf("unexpected body: %v", resp)
	}

	if stub.calls != 1 {
		t.Fatalf("expected one settlement call, got %d", stub.calls)
	}
	params := stub.lastParams
	if params.InvoiceID != "INV-1" || params.Reference != "R1" || params.Amount != 500000 {
		t.Fatalf("unexpected settlement params: %+v", params)
	}
	if params.Channel != "mobile_money" || params.PayerEmail != "ama@example.com" {
		t.Fatalf("unexpected settlement params: %+v", params)
	}
}

func TestWebhook_AlreadyProcessed(t *testing.T) {
	for _, outcome := range []billing.SettlementOutcome{billing.OutcomeAlreadyProcessed, billing.OutcomeUnknownInvoice} {
		stub := &stubSettlement{result: billing.SettlementResult{Outcome: outcome}}
		server := newWebhookServer(t, stub)

		rec := httptest.NewRecorder()
		server.handlePaystackWebhook(rec, signedWebhookRequest(t, chargeSuccessBody))

		if rec.Code != http.StatusOK {
			t.Fatalf("outcome %s: expected 200, got %d", outcome, rec.Code)
		}
		var resp map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp["received"] != true || resp["note"] != "Already processed" {
			t.Fatalf("outcome %s: unexpected body: %v", outcome, resp)
		}
	}
}

func TestWebhook_DurabilityFailure(t *testing.T) {
	stub := &stubSettlement{err: errors.New("invoice transition did not commit")}
	server := newWebhookServer(t, stub)

	rec := httptest.NewRecorder()
	server.handlePaystackWebhook(rec, signedWebhookRequest(t, chargeSuccessBody))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 so the gateway redelivers, got %d", rec.Code)
	}
}

func TestWebhook_EnrichmentFailureStillAcks(t *testing.T) {
	stub := &stubSettlement{result: billing.SettlementResult{
		Outcome:  billing.OutcomeProcessed,
		Failures: []billing.StepFailure{{Step: "notification", Err: errors.New("insert failed")}},
	}}
	server := newWebhookServer(t, stub)

	rec := httptest.NewRecorder()
	server.handlePaystackWebhook(rec, signedWebhookRequest(t, chargeSuccessBody))

	if rec.Code != http.StatusOK {
		t.Fatalf("enrichment failures must not trigger redelivery, got %d", rec.Code)
	}
}

type stubSettlement struct {
	result     billing.SettlementResult
	err        error
	calls      int
	lastParams billing.SettlementParams

	invoices []billing.Invoice
	receipts []billing.Receipt
}

func (s *stubSettlement) ConfirmPayment(_ context.Context, params billing.SettlementParams) (billing.SettlementResult, error) {
	s.calls++
	s.lastParams = params
	if s.err != nil {
		return billing.SettlementResult{}, s.err
	}
	return s.result, nil
}

func (s *stubSettlement) InvoicesForStudent(_ context.Context, _ string) ([]billing.Invoice, error) {
	return s.invoices, nil
}

func (s *stubSettlement) ReceiptsForStudent(_ context.Context, _ string) ([]billing.Receipt, error) {
	return s.receipts, nil
}
