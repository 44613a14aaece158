package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/heartmarshall/stockroom/internal/adapter/inventoryapi/inventoryapitest"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type failingSummary struct{}

func (failingSummary) Summary(context.Context) (inventoryapitest.Counts, error) {
	return inventoryapitest.Counts{}, errors.New("connection refused")
}

func TestLive_Always200(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(inventoryapitest.NewStore(), discard(), "test-version")

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	rec := httptest.NewRecorder()

	h.Live(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status 'ok', got %q", resp.Status)
	}
	if resp.Inventory != nil {
		t.Errorf("expected no inventory on liveness, got %+v", resp.Inventory)
	}
}

func TestHealth_ReportsInventory(t *testing.T) {
	t.Parallel()

	store := inventoryapitest.NewStore()
	store.AddItem(inventoryapitest.ItemSpec{Name: "Bolts", Quantity: decimal.NewFromInt(3)})
	store.AddItem(inventoryapitest.ItemSpec{Name: "Nuts", Quantity: decimal.NewFromInt(7)})
	store.StartStocktake("Weekly")

	mux := http.NewServeMux()
	NewHealthHandler(store, discard(), "1.2.3").Register(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("expected version '1.2.3', got %q", resp.Version)
	}
	if resp.Inventory == nil {
		t.Fatal("expected inventory counts")
	}
	want := inventoryapitest.Counts{Items: 2, Stocktakes: 1, Open: 1}
	if *resp.Inventory != want {
		t.Errorf("inventory = %+v, want %+v", *resp.Inventory, want)
	}
	if resp.Uptime == "" {
		t.Error("expected uptime")
	}
}

func TestHealth_RejectsOtherMethods(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	NewHealthHandler(inventoryapitest.NewStore(), discard(), "v").Register(mux)

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
}

func TestHealth_BackendDown(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(failingSummary{}, discard(), "1.0.0")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "down" {
		t.Errorf("expected status 'down', got %q", resp.Status)
	}
	if resp.Inventory != nil {
		t.Errorf("expected no inventory when down, got %+v", resp.Inventory)
	}
}
