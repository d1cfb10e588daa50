package treasuryclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunOverdueAlertsSendsInternalKey(t *testing.T) {
	var gotKey, gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Internal-API-Key")
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"asOf":"2024-03-15","evaluated":3,"published":2,"failed":1}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "secret")
	result, err := client.RunOverdueAlerts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "secret" {
		t.Fatalf("expected API key header, got %q", gotKey)
	}
	if gotMethod != http.MethodPost || gotPath != "/internal/treasury/alerts/overdue/run" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if result.Published != 2 || result.Failed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestForecastPassesMonths(t *testing.T) {
	var gotMonths string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMonths = r.URL.Query().Get("months")
		w.Write([]byte(`{"months":12,"projection":[],"revenue":{"details":[],"totals":{}},"expenses":{"details":[],"totals":{}}}`))
	}))
	defer server.Close()

	projection, err := NewClient(server.URL, "").Forecast(context.Background(), 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMonths != "12" {
		t.Fatalf("expected months=12, got %q", gotMonths)
	}
	if projection.Months != 12 {
		t.Fatalf("expected 12 months, got %d", projection.Months)
	}
}

func TestStatusErrorCarriesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "wrong").BFR(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || statusErr.Message != "Unauthorized" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestMissingBaseURL(t *testing.T) {
	if _, err := NewClient("", "").Positions(context.Background()); err == nil {
		t.Fatal("expected error when base URL is empty")
	}
}
