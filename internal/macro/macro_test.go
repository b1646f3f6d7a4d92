package macro

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(url string, retries int) *Client {
	c := NewClient(url, 5*time.Second, retries, nil)
	c.HTTP.RetryWaitMin = time.Millisecond
	c.HTTP.RetryWaitMax = time.Millisecond
	return c
}

func TestFetch(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"data":"01/01/2023","valor":"0.53"},{"data":"01/02/2023","valor":"0.84"}]`))
	}))
	defer srv.Close()

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)
	obs, err := testClient(srv.URL, 0).Fetch(context.Background(), IPCA, from, to)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/bcdata.sgs.433/dados" {
		t.Errorf("unexpected path %q", gotPath)
	}
	for _, want := range []string{"formato=json", "dataInicial=01%2F01%2F2023", "dataFinal=28%2F02%2F2023"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
	if len(obs) != 2 || obs[1].Value != 0.84 || obs[1].Date.Month() != time.February {
		t.Errorf("unexpected observations %+v", obs)
	}
}

func TestFetch_FullHistoryIgnoresRange(t *testing.T) {
	c := testClient("http://example.test/", 0)
	u := c.URL(ICC, time.Now(), time.Now())
	if u != "http://example.test/bcdata.sgs.4393/dados?formato=json" {
		t.Errorf("unexpected url %q", u)
	}
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 2).Fetch(context.Background(), SELIC, time.Time{}, time.Time{})
	if !errors.Is(err, ErrSeriesUnavailable) {
		t.Fatalf("expected ErrSeriesUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"data":"15/03/2023","valor":"13.65"}]`))
	}))
	defer srv.Close()

	obs, err := testClient(srv.URL, 3).Fetch(context.Background(), SELIC, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 || len(obs) != 1 {
		t.Errorf("expected success on third attempt, calls=%d obs=%v", calls, obs)
	}
}

func TestFetch_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 1).Fetch(context.Background(), ICC, time.Time{}, time.Time{})
	if !errors.Is(err, ErrSeriesUnavailable) {
		t.Fatalf("expected ErrSeriesUnavailable after retries, got %v", err)
	}
}

func TestFetch_BadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"data":"2023-01-01","valor":"1"}]`))
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL, 0).Fetch(context.Background(), IPCA, time.Time{}, time.Time{}); err == nil {
		t.Fatal("expected date parse error")
	}
}

func TestMonthly(t *testing.T) {
	d := func(m, day int) time.Time { return time.Date(2023, time.Month(m), day, 0, 0, 0, 0, time.UTC) }
	m := Monthly([]Observation{{d(1, 1), 1}, {d(1, 20), 3}, {d(2, 1), 5}})
	if m["2023-01"] != 2 || m["2023-02"] != 5 {
		t.Errorf("unexpected monthly series %v", m)
	}
	if got := Months(m); len(got) != 2 || got[0] != "2023-01" {
		t.Errorf("unexpected months %v", got)
	}
}

func TestPeriodRange(t *testing.T) {
	from, to, ok := PeriodRange([]string{"2023-03", "bad", "2022-11", "2023-02"})
	if !ok {
		t.Fatal("expected a range")
	}
	if from.Format("2006-01-02") != "2022-11-01" || to.Format("2006-01-02") != "2023-03-31" {
		t.Errorf("unexpected range %v..%v", from, to)
	}
	if _, _, ok := PeriodRange(nil); ok {
		t.Error("empty input should not yield a range")
	}
}

func TestLookup(t *testing.T) {
	if s, ok := Lookup("SELIC"); !ok || s.Code != 432 {
		t.Errorf("unexpected lookup %+v", s)
	}
	if s, ok := Lookup("4393"); !ok || s.Name != "icc" {
		t.Errorf("unexpected lookup %+v", s)
	}
	if _, ok := Lookup("cdi"); ok {
		t.Error("unknown series should not resolve")
	}
}
