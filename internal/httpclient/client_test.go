package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGet_DecodesResultAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbol") != "XLMUSDC" {
			t.Errorf("unexpected symbol %q", r.URL.Query().Get("symbol"))
		}
		if r.Header.Get("X-Test") != "1" {
			t.Errorf("default header missing")
		}
		fmt.Fprint(w, `{"symbol":"XLMUSDC","price":"0.25"}`)
	}))
	defer srv.Close()

	client, err := NewInstrumentedClient(WithBaseURL(srv.URL), WithHeaders(map[string]string{"X-Test": "1"}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	var out struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	resp, err := client.NewRequest().
		SetQueryParam("symbol", "XLMUSDC").
		SetResult(&out).
		Get(context.Background(), "/api/v3/ticker/price")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || out.Price != "0.25" {
		t.Errorf("unexpected response %d %+v", resp.StatusCode, out)
	}
}

func TestGet_ErrorHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewInstrumentedClient(WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	errLimited := errors.New("limited")
	_, err = client.NewRequest(WithResponseErrorHandler(func(status int, _ []byte) error {
		if status == http.StatusTooManyRequests {
			return errLimited
		}
		return nil
	})).Get(context.Background(), "/x")

	if !errors.Is(err, errLimited) {
		t.Errorf("expected errLimited, got %v", err)
	}
}
