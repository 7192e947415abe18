package eventbrite

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
	return NewClient(ts.URL, "private-token", logging.Default())
}

func TestListAttendees_SendsChangedSince(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/evt-1/attendees/" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer private-token" {
			t.Fatalf("authorization = %q", got)
		}
		if got := r.URL.Query().Get("changed_since"); got != "2026-08-15T00:00:00Z" {
			t.Fatalf("changed_since = %q", got)
		}
		_, _ = w.Write([]byte(`{"attendees":[{"id":"a1","status":"Attending","profile":{"email":"a@x.com"}}],"pagination":{"has_more_items":false}}`))
	})

	since := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	attendees, err := client.ListAttendees(context.Background(), "evt-1", since)
	if err != nil {
		t.Fatalf("ListAttendees() error = %v", err)
	}
	if len(attendees) != 1 || attendees[0].ID != "a1" {
		t.Fatalf("attendees = %+v", attendees)
	}
}

func TestListAttendees_FollowsContinuation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("continuation") == "" {
			_, _ = w.Write([]byte(`{"attendees":[{"id":"a1"}],"pagination":{"has_more_items":true,"continuation":"cursor-2"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"attendees":[{"id":"a2"}],"pagination":{"has_more_items":false}}`))
	})

	attendees, err := client.ListAttendees(context.Background(), "evt-1", time.Time{})
	if err != nil {
		t.Fatalf("ListAttendees() error = %v", err)
	}
	if len(attendees) != 2 {
		t.Fatalf("len(attendees) = %d, want 2", len(attendees))
	}
	if attendees[1].ID != "a2" {
		t.Fatalf("attendee ID = %s, want a2", attendees[1].ID)
	}
}

func TestListAttendees_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"NOT_FOUND"}`, http.StatusNotFound)
	})

	if _, err := client.ListAttendees(context.Background(), "evt-1", time.Time{}); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestAdapterFetch_MapsProfilesAndSkipsCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"attendees":[
			{"id":"a1","status":"Attending","profile":{
				"email":"fencer@x.com","first_name":"Zoe","last_name":"Park","company":"Salle Park",
				"cell_phone":"+15550002222",
				"addresses":{"home":{"address_1":"1 Main St","city":"Boston","region":"MA"}}
			}},
			{"id":"a2","status":"Cancelled","profile":{"email":"gone@x.com"}}
		],"pagination":{"has_more_items":false}}`))
	}))
	t.Cleanup(ts.Close)

	config := json.RawMessage(fmt.Sprintf(`{"api_token":"t","event_ids":["evt-1"],"base_url":%q}`, ts.URL))
	records, err := NewAdapter(logging.Default()).Fetch(context.Background(), config, time.Time{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.ExternalID != "evt-1:a1" || rec.Email != "fencer@x.com" || rec.Company != "Salle Park" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.City != "Boston" || rec.State != "MA" {
		t.Fatalf("address mapping = %q %q", rec.City, rec.State)
	}
}

func TestAdapterFetch_RejectsIncompleteConfig(t *testing.T) {
	adapter := NewAdapter(logging.Default())

	if _, err := adapter.Fetch(context.Background(), json.RawMessage(`{"event_ids":["evt-1"]}`), time.Time{}); err == nil {
		t.Fatal("expected error for missing api_token")
	}
	if _, err := adapter.Fetch(context.Background(), json.RawMessage(`{"api_token":"t"}`), time.Time{}); err == nil {
		t.Fatal("expected error for missing event_ids")
	}
}
