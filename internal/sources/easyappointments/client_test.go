package easyappointments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/engarde-app/signup-sync/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, "secret-key", logging.Default())
}

func TestListAppointments_FiltersBySince(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/index.php/api/v1/appointments" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-key" {
			t.Fatalf("authorization = %q", got)
		}
		_, _ = w.Write([]byte(`[
			{"id":1,"book":"2026-08-01 09:00:00","start":"2026-08-02 10:00:00","customer":{"email":"old@x.com"}},
			{"id":2,"book":"2026-08-20 09:00:00","start":"2026-08-21 10:00:00","customer":{"email":"new@x.com"}}
		]`))
	})

	since := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	appointments, err := client.ListAppointments(context.Background(), since)
	if err != nil {
		t.Fatalf("ListAppointments() error = %v", err)
	}
	if len(appointments) != 1 {
		t.Fatalf("len(appointments) = %d, want 1", len(appointments))
	}
	if appointments[0].ID != 2 {
		t.Fatalf("appointment ID = %d, want 2", appointments[0].ID)
	}
}

func TestListAppointments_Paginates(t *testing.T) {
	pages := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		pages++
		page := r.URL.Query().Get("page")
		if page == "1" {
			batch := make([]Appointment, pageSize)
			for i := range batch {
				batch[i] = Appointment{ID: i + 1, Book: "2026-08-20 09:00:00"}
			}
			_ = json.NewEncoder(w).Encode(batch)
			return
		}
		_, _ = w.Write([]byte(`[{"id":101,"book":"2026-08-20 10:00:00"}]`))
	})

	appointments, err := client.ListAppointments(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("ListAppointments() error = %v", err)
	}
	if pages != 2 {
		t.Fatalf("pages fetched = %d, want 2", pages)
	}
	if len(appointments) != pageSize+1 {
		t.Fatalf("len(appointments) = %d, want %d", len(appointments), pageSize+1)
	}
}

func TestListAppointments_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	_, err := client.ListAppointments(context.Background(), time.Time{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestAdapterFetch_MapsAppointments(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{
			"id": 7,
			"book": "2026-08-20 09:00:00",
			"start": "2026-08-22 14:30:00",
			"customer": {"firstName":"Ann","lastName":"Lee","email":"ann@x.com","phone":"+15550001111","city":"Austin","state":"TX"},
			"service": {"name":"Intro Lesson","price":45.5}
		}]`))
	}))
	t.Cleanup(ts.Close)

	config := json.RawMessage(fmt.Sprintf(`{"base_url":%q,"api_key":"k"}`, ts.URL))
	records, err := NewAdapter(logging.Default()).Fetch(context.Background(), config, time.Time{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.ExternalID != "7" || rec.Email != "ann@x.com" || rec.FirstName != "Ann" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.ServiceName != "Intro Lesson" || rec.ServicePrice == nil || *rec.ServicePrice != 45.5 {
		t.Fatalf("service mapping = %q %v", rec.ServiceName, rec.ServicePrice)
	}
	want := time.Date(2026, 8, 22, 14, 30, 0, 0, time.UTC)
	if rec.ScheduledAt == nil || !rec.ScheduledAt.Equal(want) {
		t.Fatalf("scheduled at = %v", rec.ScheduledAt)
	}
}

func TestAdapterFetch_RejectsIncompleteConfig(t *testing.T) {
	adapter := NewAdapter(logging.Default())

	if _, err := adapter.Fetch(context.Background(), json.RawMessage(`{"api_key":"k"}`), time.Time{}); err == nil {
		t.Fatal("expected error for missing base_url")
	}
	if _, err := adapter.Fetch(context.Background(), json.RawMessage(`{"base_url":"http://ea.local"}`), time.Time{}); err == nil {
		t.Fatal("expected error for missing api_key")
	}
}
