package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plant-nursery-api/internal/api"
	"github.com/plant-nursery-api/internal/config"
	"github.com/plant-nursery-api/internal/mocks"
	"github.com/plant-nursery-api/internal/models"
	"github.com/plant-nursery-api/internal/service"
	"github.com/rs/zerolog"
)

const testAPIKey = "test-admin-key"

type testMocks struct {
	catalog *mocks.MockCatalogService
	imports *mocks.MockImportService
	jobs    *mocks.MockJobService
	repair  *mocks.MockRepairService
}

func setupTestRouter() (*gin.Engine, *testMocks) {
	gin.SetMode(gin.TestMode)

	m := &testMocks{
		catalog: mocks.NewMockCatalogService(),
		imports: mocks.NewMockImportService(),
		jobs:    mocks.NewMockJobService(),
		repair:  mocks.NewMockRepairService(),
	}

	services := &service.Services{
		Catalog: m.catalog,
		Import:  m.imports,
		Job:     m.jobs,
		Repair:  m.repair,
	}

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080"},
		Admin: config.AdminConfig{
			APIKey:            testAPIKey,
			PublicPathMarkers: []string{"/public"},
		},
	}

	log := zerolog.Nop()
	router := api.NewRouter(services, cfg, log, nil)

	return router, m
}

func doRequest(router *gin.Engine, method, path string, body interface{}, apiKey string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set(api.APIKeyHeader, apiKey)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Response is not a JSON object: %v (%s)", err, w.Body.String())
	}
	return response
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupTestRouter()

	w := doRequest(router, "GET", "/health", nil, "")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	response := decode(t, w)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "plant-nursery-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

type fakeDB struct {
	err error
}

func (f *fakeDB) HealthCheck(ctx context.Context) error { return f.err }

func (f *fakeDB) Stats() sql.DBStats { return sql.DBStats{OpenConnections: 3, InUse: 1, Idle: 2} }

func TestHealthEndpoint_DatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	services := &service.Services{
		Catalog: mocks.NewMockCatalogService(),
		Import:  mocks.NewMockImportService(),
		Job:     mocks.NewMockJobService(),
		Repair:  mocks.NewMockRepairService(),
	}
	cfg := &config.Config{Admin: config.AdminConfig{APIKey: testAPIKey}}
	router := api.NewRouter(services, cfg, zerolog.Nop(), &fakeDB{err: errors.New("connection refused")})

	w := doRequest(router, "GET", "/health", nil, "")

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
	if response := decode(t, w); response["status"] != "unhealthy" {
		t.Errorf("Expected status 'unhealthy', got %v", response["status"])
	}

	w = doRequest(router, "GET", "/metrics", nil, "")
	db := decode(t, w)["database"].(map[string]interface{})
	if db["open_connections"].(float64) != 3 {
		t.Errorf("Expected pool stats in metrics, got %v", db)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, m := setupTestRouter()
	m.catalog.StatsFunc = func(ctx context.Context) (*service.CatalogStats, error) {
		return &service.CatalogStats{
			Categories: 15,
			Products:   1200,
			Jobs:       models.JobStatusCounts{models.JobStatusCompleted: 3},
		}, nil
	}

	w := doRequest(router, "GET", "/metrics", nil, "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	response := decode(t, w)
	db := response["database"].(map[string]interface{})
	if db["products"].(float64) != 1200 {
		t.Errorf("Expected 1200 products, got %v", db["products"])
	}
	jobs := response["jobs"].(map[string]interface{})
	if jobs["COMPLETED"].(float64) != 3 {
		t.Errorf("Expected 3 completed jobs, got %v", jobs["COMPLETED"])
	}
}

func TestAdminAuth(t *testing.T) {
	router, m := setupTestRouter()
	m.jobs.Jobs["job-1"] = &models.ScrapingJob{ID: "job-1", Status: models.JobStatusRunning}

	tests := []struct {
		name       string
		method     string
		path       string
		apiKey     string
		wantStatus int
	}{
		{"missing key", "GET", "/api/admin/import-jobs", "", http.StatusUnauthorized},
		{"wrong key", "GET", "/api/admin/import-jobs", "nope", http.StatusUnauthorized},
		{"valid key", "GET", "/api/admin/import-jobs", testAPIKey, http.StatusOK},
		{"public list", "GET", "/api/admin/import-jobs/public", "", http.StatusOK},
		{"public status", "GET", "/api/admin/import-jobs/job-1/public", "", http.StatusOK},
		{"stop needs key", "POST", "/api/admin/import-jobs/job-1/stop", "", http.StatusUnauthorized},
		{"repair needs key", "POST", "/api/admin/maintenance/repair-categories", "", http.StatusUnauthorized},
		{"public create needs key", "POST", "/api/products", "", http.StatusUnauthorized},
		{"public reads are open", "GET", "/api/products", "", http.StatusOK},
		{"marker mid-path is not public", "POST", "/api/admin/import-jobs/public/stop", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, tt.method, tt.path, nil, tt.apiKey)
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusUnauthorized {
				response := decode(t, w)
				if response["error"] != "Unauthorized" || response["message"] != "Invalid or missing API key" {
					t.Errorf("Unexpected 401 body: %v", response)
				}
			}
		})
	}
}

func TestCreateImportJob(t *testing.T) {
	router, m := setupTestRouter()

	body := map[string]interface{}{
		"type":        "INCREMENTAL",
		"useApi":      true,
		"categories":  []string{"trees", "natives"},
		"maxProducts": 50,
	}
	w := doRequest(router, "POST", "/api/admin/import-jobs", body, testAPIKey)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	response := decode(t, w)
	if response["jobId"] != "test-job-id" {
		t.Errorf("Expected jobId, got %v", response["jobId"])
	}
	if response["status"] != string(models.JobStatusPending) {
		t.Errorf("Expected PENDING, got %v", response["status"])
	}
	if len(m.imports.CreatedJobs) != 1 || !m.imports.CreatedJobs[0].UseAPI {
		t.Error("Expected one API job to be created")
	}
}

func TestCreateImportJob_EmptyBodyDefaults(t *testing.T) {
	router, m := setupTestRouter()

	w := doRequest(router, "POST", "/api/admin/import-jobs", nil, testAPIKey)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	if m.imports.CreatedJobs[0].Type != models.JobTypeFull {
		t.Errorf("Expected FULL default, got %s", m.imports.CreatedJobs[0].Type)
	}
}

func TestCreateImportJob_Validation(t *testing.T) {
	router, m := setupTestRouter()

	tests := []struct {
		name      string
		body      interface{}
		wantField string
	}{
		{"bad type", map[string]interface{}{"type": "PARTIAL"}, "type"},
		{"zero max", map[string]interface{}{"maxProducts": 0}, "maxProducts"},
		{"bad category slug", map[string]interface{}{"categories": []string{"Fruit Trees"}}, "categories[0]"},
		{"not json", "not-an-object", "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, "POST", "/api/admin/import-jobs", tt.body, testAPIKey)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
			}
			response := decode(t, w)
			details, ok := response["details"].([]interface{})
			if !ok || len(details) == 0 {
				t.Fatalf("Expected validation details, got %v", response)
			}
			if field := details[0].(map[string]interface{})["field"]; field != tt.wantField {
				t.Errorf("Expected field %s, got %v", tt.wantField, field)
			}
		})
	}

	if len(m.imports.CreatedJobs) != 0 {
		t.Error("Invalid requests must not create jobs")
	}
}

func TestCreateImportJob_SourceUnavailable(t *testing.T) {
	router, m := setupTestRouter()
	m.imports.CreateJobFunc = func(ctx context.Context, req *models.ImportJobRequest) (*models.ScrapingJob, error) {
		return nil, service.ErrSourceUnavailable
	}

	w := doRequest(router, "POST", "/api/admin/import-jobs", map[string]interface{}{"useApi": true}, testAPIKey)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestGetImportJob(t *testing.T) {
	router, m := setupTestRouter()
	now := time.Now()
	m.jobs.Jobs["job-1"] = &models.ScrapingJob{
		ID:              "job-1",
		Type:            models.JobTypeFull,
		Status:          models.JobStatusCompleted,
		ProductsFound:   120,
		ProductsCreated: 100,
		CreatedAt:       now,
		CompletedAt:     &now,
	}

	w := doRequest(router, "GET", "/api/admin/import-jobs/job-1", nil, testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Job    models.ScrapingJob `json:"job"`
		Active bool               `json:"active"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)

	if response.Job.ID != "job-1" || response.Job.ProductsCreated != 100 {
		t.Errorf("Unexpected job: %+v", response.Job)
	}
	if response.Active {
		t.Error("A completed job is not active")
	}

	w = doRequest(router, "GET", "/api/admin/import-jobs/missing", nil, testAPIKey)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestStopImportJob(t *testing.T) {
	router, m := setupTestRouter()
	m.jobs.Jobs["running"] = &models.ScrapingJob{ID: "running", Status: models.JobStatusRunning}
	m.jobs.Jobs["done"] = &models.ScrapingJob{ID: "done", Status: models.JobStatusCompleted}

	tests := []struct {
		id         string
		wantStatus int
	}{
		{"running", http.StatusOK},
		{"done", http.StatusConflict},
		{"missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			w := doRequest(router, "POST", "/api/admin/import-jobs/"+tt.id+"/stop", nil, testAPIKey)
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}

	stopped := m.jobs.Jobs["running"]
	if stopped.Status != models.JobStatusFailed || !stopped.Metadata.Bool(models.JobMetaStopped) {
		t.Errorf("Expected FAILED with stop marker, got %s %v", stopped.Status, stopped.Metadata)
	}
}

func TestStopImportJob_InternalError(t *testing.T) {
	router, m := setupTestRouter()
	m.jobs.StopJobFunc = func(ctx context.Context, id string) (*models.ScrapingJob, error) {
		return nil, errors.New("connection reset by peer")
	}

	w := doRequest(router, "POST", "/api/admin/import-jobs/x/stop", nil, testAPIKey)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	if response := decode(t, w); response["error"] != "Internal server error" {
		t.Errorf("Cause must not leak to the client, got %v", response["error"])
	}
}

func TestGetCategory(t *testing.T) {
	router, m := setupTestRouter()
	m.catalog.GetMainCategoryFunc = func(ctx context.Context, slug string, page service.Page) (*service.CategoryDetail, error) {
		if slug != "trees" {
			return nil, service.ErrNotFound
		}
		return &service.CategoryDetail{
			Category: models.Category{ID: "c1", Name: "Trees", Slug: "trees"},
			Products: []*models.Product{{ID: "p1"}, {ID: "p2"}},
			Count:    models.CategoryCount{Products: 2},
		}, nil
	}

	w := doRequest(router, "GET", "/api/categories/trees", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	response := decode(t, w)
	if response["name"] != "Trees" {
		t.Errorf("Expected category fields at the top level, got %v", response)
	}
	count := response["_count"].(map[string]interface{})
	if count["products"].(float64) != 2 {
		t.Errorf("Expected _count.products 2, got %v", count["products"])
	}

	w = doRequest(router, "GET", "/api/categories/subcategory", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestListProducts_Pagination(t *testing.T) {
	router, m := setupTestRouter()

	tests := []struct {
		name       string
		query      string
		wantPage   int
		wantOffset int
		wantLimit  int
	}{
		{"defaults", "", 1, 0, 20},
		{"page style", "?page=3&limit=10", 3, 20, 10},
		{"offset style", "?offset=40&limit=20", 3, 40, 20},
		{"limit capped", "?limit=5000", 1, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, "GET", "/api/products"+tt.query, nil, "")
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			got := m.catalog.LastQuery.Page
			if got.Page != tt.wantPage || got.Offset != tt.wantOffset || got.Limit != tt.wantLimit {
				t.Errorf("Expected page=%d offset=%d limit=%d, got %+v", tt.wantPage, tt.wantOffset, tt.wantLimit, got)
			}
		})
	}

	w := doRequest(router, "GET", "/api/products?productType=PLANT", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown productType, got %d", w.Code)
	}

	w = doRequest(router, "GET", "/api/products?categoryId=trees", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400 for a malformed categoryId, got %d", w.Code)
	}
	details := decode(t, w)["details"].([]interface{})
	if field := details[0].(map[string]interface{})["field"]; field != "categoryId" {
		t.Errorf("Expected categoryId error, got %v", field)
	}

	w = doRequest(router, "GET", "/api/products?categoryId=0b6f8c8e-6c1e-4d53-9a43-5c1f0f6d8a01", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for a UUID categoryId, got %d", w.Code)
	}
}

func TestCreateProduct(t *testing.T) {
	router, m := setupTestRouter()

	body := map[string]interface{}{"name": "Lemon Myrtle", "price": "29.95"}
	for _, path := range []string{"/api/products", "/api/admin/products"} {
		w := doRequest(router, "POST", path, body, testAPIKey)
		if w.Code != http.StatusCreated {
			t.Errorf("%s: expected status 201, got %d: %s", path, w.Code, w.Body.String())
		}
	}

	m.catalog.CreateProductFunc = func(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
		return nil, service.ErrConflict
	}
	w := doRequest(router, "POST", "/api/products", body, testAPIKey)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for a taken slug, got %d", w.Code)
	}

	w = doRequest(router, "POST", "/api/products", map[string]interface{}{"price": -1}, testAPIKey)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a missing name, got %d", w.Code)
	}
}

func TestAdminProducts(t *testing.T) {
	router, m := setupTestRouter()

	w := doRequest(router, "GET", "/api/admin/products?hasContent=false&q=lilly", nil, testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if m.catalog.LastQuery.HasContent == nil || *m.catalog.LastQuery.HasContent {
		t.Error("Expected hasContent=false to reach the service")
	}
	if m.catalog.LastQuery.Search != "lilly" {
		t.Errorf("Expected search term, got %q", m.catalog.LastQuery.Search)
	}

	w = doRequest(router, "GET", "/api/admin/products?hasContent=maybe", nil, testAPIKey)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestProductContent(t *testing.T) {
	router, _ := setupTestRouter()

	w := doRequest(router, "GET", "/api/admin/products/p1/content", nil, testAPIKey)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 before any content exists, got %d", w.Code)
	}

	w = doRequest(router, "POST", "/api/admin/products/p1/content",
		map[string]interface{}{"detailedDescription": "A compact hedge."}, testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if response := decode(t, w); response["productId"] != "p1" {
		t.Errorf("Expected productId p1, got %v", response["productId"])
	}

	w = doRequest(router, "POST", "/api/admin/products/p1/content", map[string]interface{}{}, testAPIKey)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for empty content, got %d", w.Code)
	}
}

func TestRepairCategories(t *testing.T) {
	router, m := setupTestRouter()

	w := doRequest(router, "POST", "/api/admin/maintenance/repair-categories?dryRun=true", nil, testAPIKey)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if len(m.repair.Calls) != 1 || !m.repair.Calls[0].DryRun {
		t.Errorf("Expected one dry run, got %+v", m.repair.Calls)
	}
	if response := decode(t, w); response["dryRun"] != true {
		t.Errorf("Expected dryRun in the report, got %v", response)
	}
}

func TestCORSHeaders(t *testing.T) {
	router, _ := setupTestRouter()

	req := httptest.NewRequest("OPTIONS", "/api/admin/import-jobs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS origin header")
	}
	if w.Header().Get("Access-Control-Allow-Headers") != "Content-Type, X-API-Key" {
		t.Errorf("Expected X-API-Key in allowed headers, got %q", w.Header().Get("Access-Control-Allow-Headers"))
	}
}
