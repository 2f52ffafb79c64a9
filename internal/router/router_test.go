package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"nabil-inventory-api/internal/cloud"
	"nabil-inventory-api/internal/handler"
	"nabil-inventory-api/internal/service"
	"nabil-inventory-api/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "inventory.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	adapter, err := cloud.NewSimulatedAdapter("")
	if err != nil {
		t.Fatalf("NewSimulatedAdapter: %v", err)
	}

	inv := service.NewInventoryService(st)
	coordinator := service.NewSyncCoordinator(st, adapter, inv, service.SyncOptions{})
	t.Cleanup(coordinator.Close)

	mux := New(Config{
		Handler:        handler.New("test"),
		CatalogHandler: handler.NewCatalogHandler(inv, coordinator),
		SyncHandler:    handler.NewSyncHandler(coordinator, inv),
		AuthHandler:    handler.NewAuthHandler(coordinator),
		Sessions:       coordinator,
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeData(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("response not successful: %s", envelope.Data)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func TestSessionGate(t *testing.T) {
	srv := newTestServer(t)

	// Health is public.
	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}

	// Everything behind the gate is 401 without a session.
	for _, path := range []string{"/api/v1/state", "/api/v1/export"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s without session = %d, want 401", path, resp.StatusCode)
		}
	}

	resp = postJSON(t, srv.URL+"/api/v1/sales", `{"productId": "p1", "quantity": 1}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("POST sales without session = %d, want 401", resp.StatusCode)
	}
}

func TestLoginMutateStateFlow(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/auth/login", `{"email": "nabil@example.com", "name": "Nabil"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	var cat struct {
		ID string `json:"id"`
	}
	resp = postJSON(t, srv.URL+"/api/v1/categories", `{"name": "Food"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add category status = %d, want 201", resp.StatusCode)
	}
	decodeData(t, resp, &cat)
	if cat.ID == "" {
		t.Fatal("created category has no id")
	}

	var prod struct {
		ID       string `json:"id"`
		Quantity int    `json:"quantity"`
	}
	resp = postJSON(t, srv.URL+"/api/v1/products",
		`{"name": "Sugar", "categoryId": "`+cat.ID+`", "price": "100/kg", "quantity": 5}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add product status = %d, want 201", resp.StatusCode)
	}
	decodeData(t, resp, &prod)

	resp = postJSON(t, srv.URL+"/api/v1/sales",
		`{"productId": "`+prod.ID+`", "quantity": 3, "unitPrice": 100}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("record sale status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	var state struct {
		Products []struct {
			ID       string `json:"id"`
			Quantity int    `json:"quantity"`
		} `json:"products"`
		Sales    []struct{ ID string } `json:"sales"`
		Earnings float64               `json:"earnings"`
		CurrentUser *struct {
			Email string `json:"email"`
		} `json:"currentUser"`
	}
	resp, err := http.Get(srv.URL + "/api/v1/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	decodeData(t, resp, &state)

	if len(state.Products) != 1 || state.Products[0].Quantity != 2 {
		t.Errorf("products = %+v, want one product at quantity 2", state.Products)
	}
	if len(state.Sales) != 1 {
		t.Errorf("sales = %+v, want one record", state.Sales)
	}
	if state.Earnings != 300 {
		t.Errorf("earnings = %v, want 300", state.Earnings)
	}
	if state.CurrentUser == nil || state.CurrentUser.Email != "nabil@example.com" {
		t.Errorf("currentUser = %+v", state.CurrentUser)
	}
}

func TestProductLookupByBarcode(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/auth/login", `{"email": "nabil@example.com"}`)
	resp.Body.Close()
	resp = postJSON(t, srv.URL+"/api/v1/products", `{"name": "Sugar", "barcode": "6194000512", "quantity": 3}`)
	resp.Body.Close()

	var prod struct {
		Name    string `json:"name"`
		Barcode string `json:"barcode"`
	}
	resp, err := http.Get(srv.URL + "/api/v1/products/barcode/6194000512")
	if err != nil {
		t.Fatalf("GET barcode: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("barcode lookup status = %d, want 200", resp.StatusCode)
	}
	decodeData(t, resp, &prod)
	if prod.Name != "Sugar" || prod.Barcode != "6194000512" {
		t.Errorf("barcode lookup = %+v, want Sugar/6194000512", prod)
	}

	resp, err = http.Get(srv.URL + "/api/v1/products/barcode/0000000000")
	if err != nil {
		t.Fatalf("GET unknown barcode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown barcode status = %d, want 404", resp.StatusCode)
	}
}

func TestSaleOfUnknownProductIs404(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/auth/login", `{"email": "nabil@example.com"}`)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/v1/sales", `{"productId": "ghost", "quantity": 1, "unitPrice": 5}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("sale of unknown product = %d, want 404", resp.StatusCode)
	}
}

func TestExportDownload(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/auth/login", `{"email": "nabil@example.com"}`)
	resp.Body.Close()
	resp = postJSON(t, srv.URL+"/api/v1/categories", `{"name": "Food"}`)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/v1/export")
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d, want 200", resp.StatusCode)
	}
	disposition := resp.Header.Get("Content-Disposition")
	if !strings.Contains(disposition, "nabil_inventory_backup_") || !strings.Contains(disposition, ".json") {
		t.Errorf("Content-Disposition = %q, want dated backup filename", disposition)
	}

	var snap struct {
		Categories []struct{ Name string } `json:"categories"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(snap.Categories) != 1 || snap.Categories[0].Name != "Food" {
		t.Errorf("exported categories = %+v, want Food", snap.Categories)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/auth/login", `{"email": "nabil@example.com"}`)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/v1/auth/logout", ``)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/api/v1/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("state after logout = %d, want 401", resp.StatusCode)
	}
}
