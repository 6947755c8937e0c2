package freshop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/wingsum93/dropit-fetcher/internal/config"
	"github.com/wingsum93/dropit-fetcher/internal/logger"
	"github.com/wingsum93/dropit-fetcher/internal/source"
)

func testConfig(baseURL string) *config.GroceryConfig {
	return &config.GroceryConfig{
		BaseURL:    baseURL,
		AppKey:     "test-key",
		StoreID:    "777",
		Token:      "test-token",
		RenderID:   "render-1",
		PageSize:   2,
		TimeoutSec: 5,
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(testConfig(srv.URL), nil, logger.NewDefault()), srv
}

func TestListDepartments(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/departments" {
			t.Errorf("path = %s, want /departments", r.URL.Path)
		}
		if got := r.URL.Query().Get("app_key"); got != "test-key" {
			t.Errorf("app_key = %s, want test-key", got)
		}
		if got := r.URL.Query().Get("store_id"); got != "777" {
			t.Errorf("store_id = %s, want 777", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[
			{"id":"10","name":"Produce","count":42},
			{"id":"11","name":"Bakery","parent_id":"10","count":7},
			{"id":"oops","name":"Broken"}
		],"total":3}`)
	}))

	departments, err := client.ListDepartments(context.Background(), "777")
	if err != nil {
		t.Fatalf("ListDepartments failed: %v", err)
	}

	// The non-numeric row is dropped, not fatal.
	if len(departments) != 2 {
		t.Fatalf("departments = %d, want 2", len(departments))
	}
	if departments[0].ID != 10 || departments[0].Name != "Produce" {
		t.Errorf("departments[0] = %+v", departments[0])
	}
	if departments[1].ParentID == nil || *departments[1].ParentID != 10 {
		t.Errorf("departments[1].ParentID = %v, want 10", departments[1].ParentID)
	}
	if departments[0].StoreID != 777 {
		t.Errorf("store_id = %d, want 777", departments[0].StoreID)
	}
}

func TestListItemsWalksAllPages(t *testing.T) {
	var skips []int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("department_id"); got != "5" {
			t.Errorf("department_id = %s, want 5", got)
		}
		if got := q.Get("limit"); got != "2" {
			t.Errorf("limit = %s, want 2", got)
		}
		skip, _ := strconv.Atoi(q.Get("skip"))
		skips = append(skips, skip)

		// Five items across three pages; the short last page ends the walk.
		all := []map[string]interface{}{
			{"id": "100"}, {"id": "101"}, {"id": "102"}, {"id": "103"}, {"id": "104"},
		}
		end := skip + 2
		if end > len(all) {
			end = len(all)
		}
		page := all[skip:end]
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"items": page, "total": len(all)})
	}))

	items, err := client.ListItemsInDepartment(context.Background(), 5, source.ListOptions{})
	if err != nil {
		t.Fatalf("ListItemsInDepartment failed: %v", err)
	}

	if len(items) != 5 {
		t.Fatalf("items = %d, want 5", len(items))
	}
	wantSkips := []int{0, 2, 4}
	if len(skips) != len(wantSkips) {
		t.Fatalf("skips = %v, want %v", skips, wantSkips)
	}
	for i, want := range wantSkips {
		if skips[i] != want {
			t.Errorf("skips[%d] = %d, want %d", i, skips[i], want)
		}
	}
	if items[0].ID != 100 || items[4].ID != 104 {
		t.Errorf("items span = [%d..%d], want [100..104]", items[0].ID, items[4].ID)
	}
}

func TestListItemsExactPageBoundary(t *testing.T) {
	var pages int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Header().Set("Content-Type", "application/json")
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		if skip == 0 {
			fmt.Fprint(w, `{"items":[{"id":"1"},{"id":"2"}],"total":2}`)
			return
		}
		// A full page forces one trailing empty page.
		fmt.Fprint(w, `{"items":[],"total":2}`)
	}))

	items, err := client.ListItemsInDepartment(context.Background(), 1, source.ListOptions{})
	if err != nil {
		t.Fatalf("ListItemsInDepartment failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("items = %d, want 2", len(items))
	}
	if pages != 2 {
		t.Errorf("pages fetched = %d, want 2", pages)
	}
}

func TestFetchItemDetailKeepsRawPayload(t *testing.T) {
	body := `{"id":"555","store_id":"777","name":"Oat Milk","status":"active","price":"3.49","department_ids":["5","9"],"vendor_blob":{"nested":true}}`
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/555" {
			t.Errorf("path = %s, want /products/555", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))

	detail, err := client.FetchItemDetail(context.Background(), 555)
	if err != nil {
		t.Fatalf("FetchItemDetail failed: %v", err)
	}

	if detail.Name != "Oat Milk" {
		t.Errorf("name = %s, want Oat Milk", detail.Name)
	}
	if detail.UnitPrice != 3.49 {
		t.Errorf("unit_price = %v, want 3.49", detail.UnitPrice)
	}
	if detail.StoreID != 777 {
		t.Errorf("store_id = %d, want 777", detail.StoreID)
	}
	if len(detail.DepartmentIDs) != 2 || detail.DepartmentIDs[0] != 5 {
		t.Errorf("department_ids = %v, want [5 9]", detail.DepartmentIDs)
	}
	// Raw payload survives verbatim, unknown vendor fields included.
	if string(detail.Raw) != body {
		t.Errorf("raw payload altered:\n got %s\nwant %s", detail.Raw, body)
	}
}

func TestFetchItemDetailUpstreamError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	if _, err := client.FetchItemDetail(context.Background(), 9); err == nil {
		t.Fatal("expected error for 404, got nil")
	}
}
