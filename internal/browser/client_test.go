package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"harvest-engine/internal/pipeline"
	"harvest-engine/internal/pool"
	"harvest-engine/internal/strategy"
)

func fetch(t *testing.T, handler http.HandlerFunc) ([]int, error) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(srv.URL, "tok", 10)
	items, err := c.FetchBatch(context.Background(), pool.View{ID: "acct-1"},
		pipeline.Target{Kind: pipeline.TargetKeyword, Value: "go"}, "go",
		strategy.Params{ScrollDistance: 800, WaitSeconds: 2})
	return []int{len(items)}, err
}

func TestFetchBatch_OK(t *testing.T) {
	var gotAuth string
	counts, err := fetch(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"code":0,"data":{"items":[{"html":"<article/>","source":"s"},{"html":"<article/>","source":"s"}]}}`))
	})
	if err != nil {
		t.Fatal(err)
	}
	if counts[0] != 2 {
		t.Errorf("items = %d, want 2", counts[0])
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestFetchBatch_ServerErrorIsTransient(t *testing.T) {
	_, err := fetch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if !pipeline.IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}

func TestFetchBatch_TooManyRequestsIsTransient(t *testing.T) {
	_, err := fetch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	if !pipeline.IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}

func TestFetchBatch_ClientErrorIsStructural(t *testing.T) {
	_, err := fetch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if !pipeline.IsStructural(err) {
		t.Errorf("err = %v, want structural", err)
	}
}

func TestFetchBatch_BadPayloadIsStructural(t *testing.T) {
	_, err := fetch(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	if !pipeline.IsStructural(err) {
		t.Errorf("err = %v, want structural", err)
	}
}

func TestFetchBatch_ServiceCodeIsStructural(t *testing.T) {
	_, err := fetch(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":7,"msg":"window not open"}`))
	})
	if !pipeline.IsStructural(err) {
		t.Errorf("err = %v, want structural", err)
	}
}

func TestFetchBatch_ConnectionRefusedIsTransient(t *testing.T) {
	c := New("http://127.0.0.1:1", "", 10)
	_, err := c.FetchBatch(context.Background(), pool.View{ID: "a"},
		pipeline.Target{Kind: pipeline.TargetProfile, Value: "x"}, "x", strategy.Params{})
	if !pipeline.IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}
