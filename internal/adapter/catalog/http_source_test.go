package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const fakeStoreBody = `[
  {"id":1,"title":"Fjallraven - Foldsack No. 1 Backpack","price":109.95,"description":"Your perfect pack","category":"men's clothing","image":"https://fakestoreapi.com/img/81fPKd-2AYL._AC_SL1500_.jpg","rating":{"rate":3.9,"count":120}},
  {"id":2,"title":"Mens Casual Premium Slim Fit T-Shirts","price":22.3,"category":"men's clothing","image":"https://fakestoreapi.com/img/71-3HjGNDUL.jpg","rating":{"rate":4.1,"count":259}}
]`

func TestFetchProducts_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fakeStoreBody))
	}))
	defer srv.Close()

	products, err := NewHTTPSource(srv.URL, time.Second).FetchProducts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if !products[0].Price.Equal(decimal.RequireFromString("109.95")) {
		t.Errorf("expected price 109.95, got %s", products[0].Price)
	}
	if products[1].Rating.Count != 259 {
		t.Errorf("expected rating count 259, got %d", products[1].Rating.Count)
	}
}

func TestFetchProducts_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewHTTPSource(srv.URL, time.Second).FetchProducts(context.Background()); err == nil {
		t.Error("expected error for 503")
	}
}

func TestFetchProducts_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	if _, err := NewHTTPSource(srv.URL, time.Second).FetchProducts(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

func TestFetchProducts_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, 20*time.Millisecond)
	if _, err := src.FetchProducts(context.Background()); err == nil {
		t.Error("expected timeout error")
	}
}
