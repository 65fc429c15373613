package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dil-najha/Performance-Insights-sub001/internal/analysis"
	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
	"github.com/dil-najha/Performance-Insights-sub001/internal/testutil"
)

func benchmarkBody(b *testing.B, n int) string {
	b.Helper()
	data := testutil.NewTestDataGenerator(7)
	baseline := data.Metrics(n)
	body, err := json.Marshal(CompareRequest{
		Baseline: testutil.ReportJSON("base", baseline),
		Current:  testutil.ReportJSON("cur", data.Drift(baseline, 0.3)),
	})
	if err != nil {
		b.Fatal(err)
	}
	return string(body)
}

func BenchmarkAPI_Compare(b *testing.B) {
	h := NewRESTHandler(Options{
		Analyzer: analysis.New(analysis.Options{Config: config.DefaultConfig().Analysis}),
		Logger:   testutil.TestLogger(),
	})
	router := SetupRoutes(h)
	body := benchmarkBody(b, 100)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/compare", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			b.Fatalf("compare failed with status: %d", w.Code)
		}
	}
}
