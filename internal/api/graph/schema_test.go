package graph

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"gorm.io/driver/sqlite"

	"github.com/woedy/ProxyHome/internal/database"
	"github.com/woedy/ProxyHome/internal/domain"
	"github.com/woedy/ProxyHome/internal/security"
)

func setupGraphTestDB(t *testing.T) {
	t.Helper()

	t.Setenv("PROXY_ENCRYPTION_KEY", "graph-test-key")
	security.ResetProxyCipherForTests()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1&_busy_timeout=5000", t.Name())
	if _, err := database.SetupDB(func(cfg *database.Config) { cfg.Dialector = sqlite.Open(dsn) }); err != nil {
		t.Fatalf("setup test database: %v", err)
	}

	t.Cleanup(func() {
		database.DB = nil
		security.ResetProxyCipherForTests()
	})
}

func floatPtr(v float64) *float64 {
	return &v
}

func seedGraphFixtures(t *testing.T) domain.FetchJob {
	t.Helper()

	source := domain.Source{Name: "premium-elite", Tier: domain.TierPremium, URL: "https://premium.example/api", IsActive: true}
	if err := database.DB.Create(&source).Error; err != nil {
		t.Fatalf("seed source: %v", err)
	}

	proxies := []domain.Proxy{
		{
			Address:      "1.2.3.4",
			Port:         8080,
			ProtocolID:   domain.ProtocolHTTPID,
			Tier:         domain.TierPremium,
			Premium:      true,
			IsWorking:    true,
			ResponseTime: floatPtr(0.42),
			CountryCode:  "DE",
			SourceID:     &source.ID,
		},
		{
			Address:    "5.6.7.8",
			Port:       1080,
			ProtocolID: domain.ProtocolSOCKS5ID,
			Tier:       domain.TierPublic,
		},
	}
	if err := database.DB.Create(&proxies).Error; err != nil {
		t.Fatalf("seed proxies: %v", err)
	}

	job, err := database.CreateFetchJob(domain.JobTypePublic, true, 10*time.Second, 30)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := database.MarkJobRunning(job.ID); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	database.AppendJobLog(job.ID, "info", "Starting public proxy fetch")
	database.AppendJobLog(job.ID, "info", "Found 12 public proxies")
	if err := database.CompleteFetchJob(job.ID, database.JobCounts{
		ProxiesFound:      12,
		ProxiesWorking:    5,
		SourcesTried:      3,
		SourcesSuccessful: 2,
	}); err != nil {
		t.Fatalf("complete job: %v", err)
	}
	return job
}

func runQuery(t *testing.T, query string, variables map[string]interface{}) map[string]interface{} {
	t.Helper()

	schema, err := NewSchema()
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	result := graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  query,
		VariableValues: variables,
	})
	if len(result.Errors) > 0 {
		t.Fatalf("query errors: %v", result.Errors)
	}
	data, ok := result.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("result data has type %T", result.Data)
	}
	return data
}

func TestQueryProxiesFiltersWorking(t *testing.T) {
	setupGraphTestDB(t)
	seedGraphFixtures(t)

	data := runQuery(t, `{ proxies(working: true) { address port protocol tier premium } }`, nil)

	proxies, ok := data["proxies"].([]interface{})
	if !ok {
		t.Fatalf("proxies has type %T", data["proxies"])
	}
	if len(proxies) != 1 {
		t.Fatalf("working filter returned %d proxies, want 1", len(proxies))
	}
	row := proxies[0].(map[string]interface{})
	if row["address"] != "1.2.3.4" {
		t.Fatalf("address = %v, want 1.2.3.4", row["address"])
	}
	if row["port"] != 8080 {
		t.Fatalf("port = %v, want 8080", row["port"])
	}
	if row["protocol"] != "http" {
		t.Fatalf("protocol = %v, want http", row["protocol"])
	}
	if row["premium"] != true {
		t.Fatalf("premium = %v, want true", row["premium"])
	}
}

func TestQueryProxyByID(t *testing.T) {
	setupGraphTestDB(t)
	seedGraphFixtures(t)

	var stored domain.Proxy
	if err := database.DB.Where("address = ?", "1.2.3.4").First(&stored).Error; err != nil {
		t.Fatalf("load proxy: %v", err)
	}

	data := runQuery(t, `query ($id: ID!) { proxy(id: $id) { address country_code response_time } }`,
		map[string]interface{}{"id": fmt.Sprintf("%d", stored.ID)})

	row, ok := data["proxy"].(map[string]interface{})
	if !ok {
		t.Fatalf("proxy has type %T", data["proxy"])
	}
	if row["address"] != "1.2.3.4" || row["country_code"] != "DE" {
		t.Fatalf("proxy = %v, want 1.2.3.4 in DE", row)
	}
	if row["response_time"] != 0.42 {
		t.Fatalf("response_time = %v, want 0.42", row["response_time"])
	}

	missing := runQuery(t, `query ($id: ID!) { proxy(id: $id) { address } }`,
		map[string]interface{}{"id": "999999"})
	if missing["proxy"] != nil {
		t.Fatalf("unknown id resolved to %v, want null", missing["proxy"])
	}
}

func TestQueryJobsWithLogs(t *testing.T) {
	setupGraphTestDB(t)
	job := seedGraphFixtures(t)

	data := runQuery(t, `{ jobs(status: "completed") { id status proxies_found logs { level message } } }`, nil)

	jobs, ok := data["jobs"].([]interface{})
	if !ok {
		t.Fatalf("jobs has type %T", data["jobs"])
	}
	if len(jobs) != 1 {
		t.Fatalf("completed filter returned %d jobs, want 1", len(jobs))
	}
	row := jobs[0].(map[string]interface{})
	if row["id"] != fmt.Sprintf("%d", job.ID) {
		t.Fatalf("id = %v, want %d", row["id"], job.ID)
	}
	if row["status"] != domain.JobStatusCompleted {
		t.Fatalf("status = %v, want completed", row["status"])
	}
	if row["proxies_found"] != 12 {
		t.Fatalf("proxies_found = %v, want 12", row["proxies_found"])
	}

	logs, ok := row["logs"].([]interface{})
	if !ok {
		t.Fatalf("logs has type %T", row["logs"])
	}
	if len(logs) != 2 {
		t.Fatalf("job carries %d log lines, want 2", len(logs))
	}
	first := logs[0].(map[string]interface{})
	if first["message"] != "Starting public proxy fetch" {
		t.Fatalf("first log line = %v, want the fetch start", first["message"])
	}
}

func TestQuerySourcesWithProxyCounts(t *testing.T) {
	setupGraphTestDB(t)
	seedGraphFixtures(t)

	data := runQuery(t, `{ sources { name tier is_active proxies } }`, nil)

	sources, ok := data["sources"].([]interface{})
	if !ok {
		t.Fatalf("sources has type %T", data["sources"])
	}
	if len(sources) != 1 {
		t.Fatalf("listed %d sources, want 1", len(sources))
	}
	row := sources[0].(map[string]interface{})
	if row["name"] != "premium-elite" {
		t.Fatalf("name = %v, want premium-elite", row["name"])
	}
	if row["proxies"] != 1 {
		t.Fatalf("proxies = %v, want 1", row["proxies"])
	}
}

func TestNewHandlerServesQueries(t *testing.T) {
	setupGraphTestDB(t)
	seedGraphFixtures(t)

	h, err := NewHandler()
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}

	body := `{"query": "{ proxies { address } }"}`
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload struct {
		Data struct {
			Proxies []struct {
				Address string `json:"address"`
			} `json:"proxies"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Errors) > 0 {
		t.Fatalf("response carries errors: %v", payload.Errors)
	}
	if len(payload.Data.Proxies) != 2 {
		t.Fatalf("handler returned %d proxies, want 2", len(payload.Data.Proxies))
	}
}
