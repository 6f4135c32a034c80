package quantcal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080/"
	c := NewClient(baseURL)

	if c.baseURL != "http://localhost:8080" {
		t.Errorf("expected trailing slash trimmed, got %q", c.baseURL)
	}
	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
}

func TestClientRequests(t *testing.T) {
	at := time.Date(2024, 9, 13, 10, 0, 0, 0, time.FixedZone("CST", 8*3600))
	var gotPath, gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		q := r.URL.Query()
		switch r.URL.Path {
		case "/api/calendars/cn_future/trading":
			tt, err := time.Parse(time.RFC3339Nano, q.Get("t"))
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(TradingResponse{Market: "cn_future", Symbol: q.Get("symbol"), Time: tt, Trading: true})
		case "/api/calendars/cn/bartimes":
			json.NewEncoder(w).Encode(BarTimesResponse{Market: "cn", Interval: q.Get("interval"), BarTimes: []time.Time{at, at.Add(time.Hour)}})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "unknown market"})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	tr, err := c.IsTrading(ctx, "cn_future", "ag2412", at)
	if err != nil {
		t.Fatalf("IsTrading: %v", err)
	}
	if !tr.Trading || tr.Symbol != "ag2412" || !tr.Time.Equal(at) {
		t.Errorf("IsTrading = %+v", tr)
	}

	bts, err := c.NextBarTimes(ctx, "cn", "", "1H", at, 2)
	if err != nil {
		t.Fatalf("NextBarTimes: %v", err)
	}
	if len(bts.BarTimes) != 2 || bts.Interval != "1H" {
		t.Errorf("NextBarTimes = %+v", bts)
	}
	if gotPath != "/api/calendars/cn/bartimes" {
		t.Errorf("path = %q", gotPath)
	}
	if want := "count=2&interval=1H&start=2024-09-13T10%3A00%3A00%2B08%3A00"; gotQuery != want {
		t.Errorf("query = %q, want %q", gotQuery, want)
	}

	_, err = c.Session(ctx, "mars", "", time.Time{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Session error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "unknown market" || apiErr.OutOfCalendar() {
		t.Errorf("APIError = %+v", apiErr)
	}
	if gotQuery != "" {
		t.Errorf("zero time sent as %q, want no parameters", gotQuery)
	}
}
