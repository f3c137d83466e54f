package venue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketview/config"
	"marketview/models"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Source.BaseURL = srv.URL
	cfg.Source.Timeout = 2 * time.Second
	cfg.Source.Endpoints = config.EndpointsConfig{
		Trades:    "/api/v1/trades",
		Orderbook: "/api/v1/orderbook",
		Quotes:    "/api/v1/quotes",
	}
	return NewClient(cfg), srv
}

func TestOrderBookAggregatedShape(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ticker"); got != "ACME" {
			t.Errorf("ticker query = %q", got)
		}
		w.Write([]byte(`{"bids":[{"price":"100","size":"5","total":"5"}],"asks":[{"price":"101","size":"3","total":"3"}]}`))
	}))

	snap, err := client.OrderBook(context.Background(), "acme")
	if err != nil {
		t.Fatalf("OrderBook: %v", err)
	}
	if snap.Shape != models.BookShapeLevels {
		t.Fatalf("shape = %s, want levels", snap.Shape)
	}
	if len(snap.Bids) != 1 || len(snap.Asks) != 1 {
		t.Fatalf("levels = %d bids / %d asks", len(snap.Bids), len(snap.Asks))
	}
	if snap.Ticker != "ACME" {
		t.Fatalf("ticker = %s", snap.Ticker)
	}
}

func TestOrderBookFlatShape(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"side":"BUY","price":"100","size":"5"},{"side":"SELL","price":"101","quantity":"3"}]`))
	}))

	snap, err := client.OrderBook(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("OrderBook: %v", err)
	}
	if snap.Shape != models.BookShapeOrders {
		t.Fatalf("shape = %s, want orders", snap.Shape)
	}
	if len(snap.Orders) != 2 {
		t.Fatalf("orders = %d", len(snap.Orders))
	}
}

func TestOrderBookUnrecognizedPayload(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"nope"`))
	}))

	if _, err := client.OrderBook(context.Background(), "ACME"); err == nil {
		t.Fatalf("expected error for unrecognized payload")
	}
}

func TestTrades(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/trades" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`[{"id":"t1","asset_ticker":"ACME","side":"BUY","price":"100.5","quantity":"2","timestamp":"2024-01-01T10:00:00Z"}]`))
	}))

	rows, err := client.Trades(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("Trades: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "t1" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestQuotes(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"ticker":"ACME","current_price":"101.25","bid_price":"101","ask_price":"101.5","price_change":"1.25","price_change_percent":"1.25"}]`))
	}))

	rows, err := client.Quotes(context.Background())
	if err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if len(rows) != 1 || rows[0].Ticker != "ACME" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestErrorStatus(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))

	if _, err := client.Trades(context.Background(), "ACME"); err == nil {
		t.Fatalf("expected error for non-200 status")
	}
}

func TestAPIKeyHeader(t *testing.T) {
	var gotAuth string
	srvHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(srvHandler)
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Source.BaseURL = srv.URL
	cfg.Source.Timeout = 2 * time.Second
	cfg.Source.APIKey = "sekret"
	cfg.Source.Endpoints.Quotes = "/api/v1/quotes"

	client := NewClient(cfg)
	if _, err := client.Quotes(context.Background()); err != nil {
		t.Fatalf("Quotes: %v", err)
	}
	if gotAuth != "Bearer sekret" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
}
