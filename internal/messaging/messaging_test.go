package messaging

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/HallBook/internal/models"
	"github.com/BTreeMap/HallBook/internal/twiliowhatsapp"
	"github.com/BTreeMap/HallBook/internal/whatsapp"
)

func TestCanonicalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+1 (555) 123-4567", "15551234567", false},
		{"whatsapp:+15551234567", "15551234567", false},
		{"15551234567", "15551234567", false},
		{"", "", true},
		{"abc", "", true},
		{"+123", "", true},
	}
	for _, tt := range tests {
		got, err := CanonicalizePhone(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("CanonicalizePhone(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("CanonicalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWhatsAppService_SendMessage_Receipt(t *testing.T) {
	mockClient := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mockClient)
	if err := svc.SendMessage(context.Background(), "+15551234567", "hello"); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	select {
	case receipt := <-svc.Receipts():
		if receipt.To != "15551234567" || receipt.Status != models.MessageStatusSent {
			t.Errorf("unexpected receipt %+v", receipt)
		}
	default:
		t.Fatal("expected receipt, got none")
	}
	if sent := mockClient.Sent(); len(sent) != 1 || sent[0].To != "15551234567" {
		t.Errorf("unexpected sent messages %+v", sent)
	}

	mockClient.Err = errors.New("offline")
	if err := svc.SendMessage(context.Background(), "15551234567", "hello"); err == nil {
		t.Fatal("expected send error")
	}
	if receipt := <-svc.Receipts(); receipt.Status != models.MessageStatusFailed {
		t.Errorf("expected failed receipt, got %+v", receipt)
	}
}

func TestWhatsAppService_StartStop(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("second Stop returned error: %v", err)
	}
	if _, ok := <-svc.Receipts(); ok {
		t.Error("expected receipts channel closed")
	}
	if _, ok := <-svc.Responses(); ok {
		t.Error("expected responses channel closed")
	}
	if err := svc.SendMessage(context.Background(), "15551234567", "x"); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
}

func TestTwilioWebhookHandler(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())
	defer svc.Stop()

	form := url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"/start"}}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	svc.TwilioWebhookHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	select {
	case resp := <-svc.Responses():
		if resp.From != "whatsapp:+15551234567" || resp.Body != "/start" {
			t.Errorf("unexpected response %+v", resp)
		}
	case <-time.After(time.Second):
		t.Fatal("webhook message not emitted")
	}

	missing := httptest.NewRequest(http.MethodPost, "/webhooks/twilio", strings.NewReader("From=x"))
	missing.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	svc.TwilioWebhookHandler(rr, missing)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing body, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	svc.TwilioWebhookHandler(rr, httptest.NewRequest(http.MethodGet, "/webhooks/twilio", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", rr.Code)
	}
}

func TestTwilioService_SendMessage(t *testing.T) {
	mock := twiliowhatsapp.NewMockClient()
	svc := NewTwilioService(mock)
	if err := svc.SendMessage(context.Background(), "whatsapp:+15551234567", "Choose a hall:"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent := mock.Sent(); len(sent) != 1 || sent[0].To != "15551234567" {
		t.Errorf("unexpected sent messages %+v", sent)
	}
	if err := svc.SendMessage(context.Background(), "12", "x"); err == nil {
		t.Error("expected validation error for short number")
	}
	svc.Stop()
	if err := svc.SendMessage(context.Background(), "15551234567", "x"); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
}
