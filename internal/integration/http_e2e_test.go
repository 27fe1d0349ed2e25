//go:build integration || !unit

package integration

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	server "domu/internal/adapters/http_server"
	redisad "domu/internal/adapters/redis"
	"domu/internal/app"
	mysqlrepo "domu/internal/storage/mysql"
)

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startStack(t *testing.T) *httptest.Server {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=domu",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "domu")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	// Full wiring: real repo, real redis protocol via miniredis, real router.
	mr := miniredis.RunT(t)
	repo := mysqlrepo.New(db)
	cache := redisad.New(mr.Addr(), "", 0)
	q := app.NewQueryService(repo, repo, repo, repo, cache, 10*time.Minute)

	srv := server.New()
	srv.MountHandlers(&server.Handlers{
		Props:    app.NewPropertyService(repo, repo),
		Prices:   app.NewBasePriceService(repo, repo, q),
		Costs:    app.NewCostService(repo, repo, q),
		Rules:    app.NewRuleService(repo, repo, q),
		Bookings: app.NewBookingService(repo, repo, q),
		Q:        q,
	})

	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body map[string]any, want int) map[string]any {
	t.Helper()
	b, _ := json.Marshal(body)
	res, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		t.Fatalf("POST %s: status %d, want %d", url, res.StatusCode, want)
	}
	var out map[string]any
	_ = json.NewDecoder(res.Body).Decode(&out)
	return out
}

func getJSON(t *testing.T, url string, dst any) {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestHTTP_EndToEnd_CalendarAndSummary(t *testing.T) {
	ts := startStack(t)

	prop := postJSON(t, ts.URL+"/v1/properties", map[string]any{
		"name":          "Casa Azul",
		"address":       "Rua das Flores 12",
		"base_price":    100,
		"avg_stay_days": 3,
	}, http.StatusCreated)
	propID, _ := prop["id"].(string)
	if propID == "" {
		t.Fatalf("no property id in %+v", prop)
	}

	// Floor price: 30 per reservation / 3-day avg stay = 10/night.
	postJSON(t, ts.URL+"/v1/properties/"+propID+"/costs", map[string]any{
		"name":             "cleaning",
		"category":         "PER_RESERVATION",
		"calculation_type": "FIXED_AMOUNT",
		"value":            30,
	}, http.StatusCreated)

	// March sells at the floor.
	postJSON(t, ts.URL+"/v1/properties/"+propID+"/pricing-rules", map[string]any{
		"name":                  "march promo",
		"start_date":            "2030-03-01",
		"end_date":              "2030-03-31",
		"profitability_percent": 0,
	}, http.StatusCreated)

	stay := map[string]any{
		"property_id": propID,
		"check_in":    "2030-03-10",
		"check_out":   "2030-03-13",
		"summary":     "smith family",
	}
	postJSON(t, ts.URL+"/v1/bookings", stay, http.StatusCreated)

	// Double booking rejected.
	overlap := map[string]any{
		"property_id": propID,
		"check_in":    "2030-03-12",
		"check_out":   "2030-03-14",
		"summary":     "overlap",
	}
	postJSON(t, ts.URL+"/v1/bookings", overlap, http.StatusConflict)

	var days []struct {
		Date   string  `json:"date"`
		Status string  `json:"status"`
		Price  float64 `json:"price"`
	}
	getJSON(t, ts.URL+"/v1/properties/"+propID+"/calendar?start_date=2030-03-01&end_date=2030-03-31", &days)
	if len(days) != 31 {
		t.Fatalf("expected 31 days, got %d", len(days))
	}
	if days[0].Date != "2030-03-01" || days[30].Date != "2030-03-31" {
		t.Fatalf("range mismatch: %s .. %s", days[0].Date, days[30].Date)
	}
	if days[9].Status != "RESERVED" || days[12].Status != "AVAILABLE" {
		t.Fatalf("occupancy wrong: %s=%s %s=%s", days[9].Date, days[9].Status, days[12].Date, days[12].Status)
	}
	// 0% profitability sells at the floor.
	if days[9].Price != 10 {
		t.Fatalf("price: %v, want 10", days[9].Price)
	}

	var sum struct {
		TotalBookings int     `json:"total_bookings"`
		OccupiedDays  int     `json:"occupied_days"`
		TotalIncome   float64 `json:"total_income"`
		NetProfit     float64 `json:"net_profit"`
	}
	getJSON(t, ts.URL+"/v1/properties/"+propID+"/financial-summary?year=2030&month=3", &sum)
	if sum.TotalBookings != 1 || sum.OccupiedDays != 3 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	// 3 nights at the 10 floor, minus the 30 cleaning fee.
	if sum.TotalIncome != 30 || sum.NetProfit != 0 {
		t.Fatalf("unexpected money: %+v", sum)
	}
}

func TestHTTP_EndToEnd_BasePriceVersioning(t *testing.T) {
	ts := startStack(t)

	prop := postJSON(t, ts.URL+"/v1/properties", map[string]any{
		"name":       "Loft 7",
		"address":    "Main St 7",
		"base_price": 80,
	}, http.StatusCreated)
	propID, _ := prop["id"].(string)

	future := time.Now().UTC().AddDate(0, 1, 0).Format("2006-01-02")
	postJSON(t, ts.URL+"/v1/properties/"+propID+"/base-price/modify", map[string]any{
		"value":      120,
		"start_date": future,
	}, http.StatusOK)

	// Effective date in the past is refused.
	postJSON(t, ts.URL+"/v1/properties/"+propID+"/base-price/modify", map[string]any{
		"value":      90,
		"start_date": "2020-01-01",
	}, http.StatusUnprocessableEntity)

	var hist []struct {
		Value   float64 `json:"value"`
		EndDate *string `json:"end_date"`
	}
	getJSON(t, ts.URL+"/v1/properties/"+propID+"/base-price/history", &hist)
	if len(hist) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(hist))
	}
	if hist[0].EndDate == nil || hist[1].EndDate != nil {
		t.Fatalf("chain shape wrong: %+v", hist)
	}

	postJSON(t, ts.URL+"/v1/properties/"+propID+"/base-price/revert", nil, http.StatusOK)
	getJSON(t, ts.URL+"/v1/properties/"+propID+"/base-price/history", &hist)
	if len(hist) != 1 || hist[0].Value != 80 || hist[0].EndDate != nil {
		t.Fatalf("revert did not restore the root: %+v", hist)
	}

	// Nothing left to revert.
	postJSON(t, ts.URL+"/v1/properties/"+propID+"/base-price/revert", nil, http.StatusNotFound)
}
