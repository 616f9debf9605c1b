package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BTreeMap/HallBook/internal/models"
	"github.com/BTreeMap/HallBook/internal/store"
)

func TestNewTestMachine(t *testing.T) {
	m := NewTestMachine()
	result, err := m.Handle(context.Background(), "tester", models.StartFlow{})
	if err != nil {
		t.Fatalf("StartFlow failed: %v", err)
	}
	if result.State != models.StateSelectingResource {
		t.Errorf("expected %s, got %s", models.StateSelectingResource, result.State)
	}

	result, err = m.Handle(context.Background(), "tester", models.ChooseResource{Token: "hall:1"})
	if err != nil {
		t.Fatalf("ChooseResource failed: %v", err)
	}
	cal, ok := result.View.(models.CalendarView)
	if !ok {
		t.Fatalf("expected calendar view, got %T", result.View)
	}
	if cal.Year != 2026 || cal.Month != time.October {
		t.Errorf("expected the reference month, got %d-%02d", cal.Year, cal.Month)
	}
}

func TestSeedBusy(t *testing.T) {
	p := store.NewInMemoryBusyProvider()
	day := models.Date(2026, time.October, 22)
	SeedBusy(t, p, "1", models.BusyInterval{Start: models.AtHour(day, 10), End: models.AtHour(day, 12)})

	busy, err := p.FetchBusy(context.Background(), "1", ReferenceNow)
	if err != nil {
		t.Fatalf("FetchBusy failed: %v", err)
	}
	if len(busy) != 1 {
		t.Errorf("expected 1 seeded interval, got %d", len(busy))
	}

	mockT := &mockTestingT{}
	SeedBusy(mockT, p, "1", models.BusyInterval{Start: models.AtHour(day, 12), End: models.AtHour(day, 10)})
	if !mockT.failed {
		t.Error("expected seeding an inverted interval to fail")
	}
}

func TestAssertHTTPStatus(t *testing.T) {
	tests := []struct {
		name       string
		expected   int
		actual     int
		shouldFail bool
	}{
		{"matching status codes", 200, 200, false},
		{"different status codes", 200, 404, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockT := &mockTestingT{}
			AssertHTTPStatus(mockT, tt.expected, tt.actual, "test context")

			if tt.shouldFail && !mockT.failed {
				t.Error("Expected test to fail but it passed")
			}
			if !tt.shouldFail && mockT.failed {
				t.Error("Expected test to pass but it failed")
			}
		})
	}
}

func TestAssertJSONResponse(t *testing.T) {
	tests := []struct {
		name           string
		jsonBody       string
		expectedStatus string
		shouldFail     bool
	}{
		{"valid JSON with matching status", `{"status":"ok","result":"test"}`, "ok", false},
		{"valid JSON with different status", `{"status":"rejected","result":"test"}`, "ok", true},
		{"invalid JSON", `{"status":}`, "ok", true},
		{"missing status field", `{"result":"test"}`, "ok", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockT := &mockTestingT{}
			rr := httptest.NewRecorder()
			rr.Body.WriteString(tt.jsonBody)

			response := AssertJSONResponse(mockT, rr, tt.expectedStatus)

			if tt.shouldFail && !mockT.failed {
				t.Error("Expected test to fail but it passed")
			}
			if !tt.shouldFail && mockT.failed {
				t.Errorf("Expected test to pass but it failed: %s", mockT.errorMsg)
			}
			if !tt.shouldFail && response == nil {
				t.Error("Expected response map to be returned")
			}
		})
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		url    string
		body   interface{}
	}{
		{"GET request with no body", "GET", "/resources", nil},
		{"POST request with map body", "POST", "/sessions", map[string]string{"key": "value"}},
		{"POST request with struct body", "POST", "/sessions/abc/events", models.Resource{ID: "1", Name: "Hall 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CreateHTTPRequest(t, tt.method, tt.url, tt.body)
			if req.Method != tt.method {
				t.Errorf("Expected method %s, got %s", tt.method, req.Method)
			}
			if req.URL.Path != tt.url {
				t.Errorf("Expected URL %s, got %s", tt.url, req.URL.Path)
			}
			if tt.body != nil && req.Header.Get("Content-Type") != "application/json" {
				t.Error("Expected JSON content type for a request with a body")
			}
		})
	}
}

func TestCreateJSONRequest(t *testing.T) {
	req := CreateJSONRequest(t, "POST", "/sessions/abc/events", `{"token":"hall:1"}`)
	if req.Method != "POST" || req.URL.Path != "/sessions/abc/events" {
		t.Errorf("unexpected request %s %s", req.Method, req.URL.Path)
	}
	if req.ContentLength != int64(len(`{"token":"hall:1"}`)) {
		t.Errorf("unexpected content length %d", req.ContentLength)
	}
}

func TestMustJSONRoundTrip(t *testing.T) {
	data := MustMarshalJSON(t, map[string]interface{}{"key": "value", "number": 123})

	var target map[string]interface{}
	MustUnmarshalJSON(t, data, &target)

	if target["key"] != "value" {
		t.Errorf("Expected key to be 'value', got %v", target["key"])
	}
	if target["number"].(float64) != 123 {
		t.Errorf("Expected number to be 123, got %v", target["number"])
	}
}

func TestFixedClock(t *testing.T) {
	clock := FixedClock(ReferenceNow)
	if !clock().Equal(ReferenceNow) || !clock().Equal(clock()) {
		t.Error("FixedClock should always return the same instant")
	}
	if ReferenceNow.Weekday() != time.Sunday {
		t.Errorf("ReferenceNow should be a Sunday, got %s", ReferenceNow.Weekday())
	}
}

// mockTestingT implements TestingT for testing our test helpers
type mockTestingT struct {
	failed   bool
	errorMsg string
	helper   bool
}

func (m *mockTestingT) Helper() {
	m.helper = true
}

func (m *mockTestingT) Errorf(format string, args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
}

func (m *mockTestingT) Error(args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprint(args...)
}

func (m *mockTestingT) Fatalf(format string, args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
}

func (m *mockTestingT) Fatal(args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprint(args...)
}
