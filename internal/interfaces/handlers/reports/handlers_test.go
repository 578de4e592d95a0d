package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	reportsvc "rics-valuation/internal/application/reports"
	"rics-valuation/internal/domain"
	"rics-valuation/internal/infrastructure/kvstore"
	"rics-valuation/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func setupReportsTest(t *testing.T) (*fiber.App, *reportsvc.Store) {
	t.Helper()
	kv := kvstore.NewMemory(0)
	store := reportsvc.NewStore(kv, "ricsValuationReports")
	store.Now = func() time.Time { return testNow }
	store.Location = time.UTC

	ctx := context.Background()
	a := &domain.ValuationRecord{ID: "val_a", Status: domain.StatusWorking,
		Property: domain.Property{Address: "12 Acacia Avenue", Postcode: "N1 2AB"}}
	b := &domain.ValuationRecord{ID: "val_b", Status: domain.StatusComplete,
		Property: domain.Property{Address: "3 Baker Street", Postcode: "NW1 6XE"},
		Valuation: &domain.ValuationResult{Mode: domain.ModeManual, EstimatedValue: 450000, LowerRange: 430000, UpperRange: 470000}}
	require.NoError(t, store.Upsert(ctx, a))
	require.NoError(t, store.Upsert(ctx, b))

	h := &Handlers{Store: store, Now: func() time.Time { return testNow }}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(middleware.Session(kv))
	r := app.Group("/reports")
	r.Get("/", h.List)
	r.Get("/filters", h.Filters)
	r.Get("/:id", h.Get)
	r.Delete("/:id", h.Delete)
	r.Patch("/:id/status", h.ChangeStatus)
	r.Post("/:id/archive", h.Archive)
	r.Get("/:id/export", h.Export)
	return app, store
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestList_All(t *testing.T) {
	app, _ := setupReportsTest(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/reports", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	out := decode(t, resp)
	data, _ := out["data"].([]interface{})
	assert.Len(t, data, 2)
	meta, _ := out["metadata"].(map[string]interface{})
	assert.Equal(t, float64(2), meta["count"])
}

func TestList_SearchAndStatus(t *testing.T) {
	app, _ := setupReportsTest(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/reports?search=acacia", nil))
	require.NoError(t, err)
	data, _ := decode(t, resp)["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "val_a", data[0].(map[string]interface{})["id"])

	resp, err = app.Test(httptest.NewRequest("GET", "/reports?status=complete", nil))
	require.NoError(t, err)
	data, _ = decode(t, resp)["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "val_b", data[0].(map[string]interface{})["id"])

	resp, err = app.Test(httptest.NewRequest("GET", "/reports?status=all", nil))
	require.NoError(t, err)
	data, _ = decode(t, resp)["data"].([]interface{})
	assert.Len(t, data, 2)
}

func TestList_InvalidStatus(t *testing.T) {
	app, _ := setupReportsTest(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/reports?status=pending", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestList_InvalidDate(t *testing.T) {
	app, _ := setupReportsTest(t)
	for _, q := range []string{"start=yesterday", "start=2024-03-01&end=2024-02-30"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/reports?"+q, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestList_RemembersFilter(t *testing.T) {
	app, _ := setupReportsTest(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/reports?search=baker&start=2024-06-01", nil))
	require.NoError(t, err)
	var cookie string
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.SessionCookieName {
			cookie = ck.Name + "=" + ck.Value
		}
	}
	require.NotEmpty(t, cookie)

	req := httptest.NewRequest("GET", "/reports/filters", nil)
	req.Header.Set("Cookie", cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	data, _ := decode(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, "baker", data["search"])
	dr, _ := data["dateRange"].(map[string]interface{})
	assert.Equal(t, "2024-06-01", dr["start"])
}

func TestFilters_NoSession(t *testing.T) {
	app, _ := setupReportsTest(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/reports/filters", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data, _ := decode(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, "", data["search"])
}

func TestGet_NotFound(t *testing.T) {
	app, _ := setupReportsTest(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/reports/val_missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "Report not found", out["error"].(map[string]interface{})["message"])
}

func TestDelete(t *testing.T) {
	app, store := setupReportsTest(t)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/reports/val_a", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, store.LoadAll(context.Background()), 1)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/reports/val_a", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestChangeStatus(t *testing.T) {
	app, store := setupReportsTest(t)

	req := httptest.NewRequest("PATCH", "/reports/val_a/status", bytes.NewReader([]byte(`{"status":"complete"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	rec, ok := store.FindByID(context.Background(), "val_a")
	require.True(t, ok)
	assert.Equal(t, domain.StatusComplete, rec.Status)

	req = httptest.NewRequest("PATCH", "/reports/val_a/status", bytes.NewReader([]byte(`{"status":"sold"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestArchive(t *testing.T) {
	app, store := setupReportsTest(t)
	resp, err := app.Test(httptest.NewRequest("POST", "/reports/val_b/archive", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	rec, _ := store.FindByID(context.Background(), "val_b")
	assert.Equal(t, domain.StatusArchive, rec.Status)

	resp, err = app.Test(httptest.NewRequest("POST", "/reports/val_missing/archive", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestExport_PDF(t *testing.T) {
	app, _ := setupReportsTest(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/reports/val_b/export", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "RICS_Valuation_NW1_6XE_")

	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.HasPrefix(string(body), "%PDF-"))
}
