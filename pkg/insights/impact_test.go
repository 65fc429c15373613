package insights

import (
	"encoding/json"
	"strings"
	"testing"
)

func aggregate(baseline, current map[string]float64) *ImpactSummary {
	return Aggregate(CompareReports(report(baseline), report(current)))
}

func TestAggregateEmptyResult(t *testing.T) {
	for _, result := range []*ComparisonResult{nil, {}} {
		s := Aggregate(result)
		if s.PerformanceScore != 0 || s.AvgImprovementPct != 0 || s.NetImprovementScore != 0 {
			t.Errorf("expected zero scores, got %+v", s)
		}
		if s.CoreWebVitals != nil {
			t.Error("expected no vitals without vital metrics")
		}
		if s.LatencyImprovementMs != nil || s.LatencyImprovementPct != nil {
			t.Error("expected no latency improvement")
		}
		if s.BusinessImpact.RevenueRisk != RiskLow {
			t.Errorf("revenue risk = %q, want low", s.BusinessImpact.RevenueRisk)
		}
		if s.BusinessImpact.UserExperience != UXGood {
			t.Errorf("ux = %q, want good", s.BusinessImpact.UserExperience)
		}
		if s.BusinessImpact.SEOImpact != SEONeutral {
			t.Errorf("seo = %q, want neutral", s.BusinessImpact.SEOImpact)
		}
		if s.TopImproved == nil || s.TopRegressed == nil {
			t.Error("top lists must be empty, not nil")
		}
	}
}

func TestAggregateCounts(t *testing.T) {
	s := aggregate(
		map[string]float64{"responseTimeAvg": 100, "throughput": 1000, "cpu": 50, "errorRate": 2},
		map[string]float64{"responseTimeAvg": 200, "throughput": 1200, "cpu": 51, "memory": 10},
	)

	if s.ImprovedCount != 1 || s.WorseCount != 1 || s.SameCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", s.ImprovedCount, s.WorseCount, s.SameCount)
	}
	if s.NetImprovementScore != 0 {
		t.Errorf("net score = %d, want 0", s.NetImprovementScore)
	}
	if !approxEqual(s.AvgImprovementPct, 20) {
		t.Errorf("avg improvement = %v, want 20", s.AvgImprovementPct)
	}
	// (+20 - 100) / 2
	if !approxEqual(s.PerformanceScore, -40) {
		t.Errorf("performance score = %v, want -40", s.PerformanceScore)
	}
}

func TestAggregatePerformanceScoreClamped(t *testing.T) {
	s := aggregate(
		map[string]float64{"responseTimeAvg": 10},
		map[string]float64{"responseTimeAvg": 100},
	)
	if s.PerformanceScore != -100 {
		t.Errorf("performance score = %v, want -100", s.PerformanceScore)
	}
}

func TestAggregateLatencySelection(t *testing.T) {
	tests := []struct {
		name       string
		baseline   map[string]float64
		current    map[string]float64
		wantMetric string
		wantMs     *float64
		wantPct    *float64
	}{
		{
			name:       "improved central metric preferred",
			baseline:   map[string]float64{"responseTimeAvg": 200, "latency.p99": 500, "loadTime": 900},
			current:    map[string]float64{"responseTimeAvg": 150, "latency.p99": 800, "loadTime": 400},
			wantMetric: "responseTimeAvg",
			wantMs:     float64Ptr(50),
			wantPct:    float64Ptr(25),
		},
		{
			name:       "regressed central metric has no improvement",
			baseline:   map[string]float64{"latency.p99": 500, "loadTime": 900},
			current:    map[string]float64{"latency.p99": 800, "loadTime": 400},
			wantMetric: "latency.p99",
		},
		{
			name:       "falls back to latency pattern only",
			baseline:   map[string]float64{"loadTime": 900},
			current:    map[string]float64{"loadTime": 450},
			wantMetric: "loadTime",
			wantMs:     float64Ptr(450),
			wantPct:    float64Ptr(50),
		},
		{
			name:     "no latency metric",
			baseline: map[string]float64{"throughput": 10},
			current:  map[string]float64{"throughput": 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := aggregate(tt.baseline, tt.current)
			if s.LatencyMetric != tt.wantMetric {
				t.Errorf("latency metric = %q, want %q", s.LatencyMetric, tt.wantMetric)
			}
			checkPtr(t, "latencyImprovementMs", s.LatencyImprovementMs, tt.wantMs)
			checkPtr(t, "latencyImprovementPct", s.LatencyImprovementPct, tt.wantPct)
		})
	}
}

func checkPtr(t *testing.T, name string, got, want *float64) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("%s = %v, want nil", name, *got)
	case want != nil && got == nil:
		t.Errorf("%s = nil, want %v", name, *want)
	case want != nil && !approxEqual(*got, *want):
		t.Errorf("%s = %v, want %v", name, *got, *want)
	}
}

func TestAggregateCoreWebVitals(t *testing.T) {
	s := aggregate(
		map[string]float64{"lcp": 2000, "webVitals.cls": 0.05, "ttfb": 300},
		map[string]float64{"lcp": 3000, "webVitals.cls": 0.3, "ttfb": 200},
	)
	if s.CoreWebVitals == nil {
		t.Fatal("expected vitals classification")
	}
	if s.CoreWebVitals.Score != VitalPoor {
		t.Errorf("vitals score = %q, want poor", s.CoreWebVitals.Score)
	}

	ratings := map[string]VitalRating{}
	for _, m := range s.CoreWebVitals.Metrics {
		ratings[m.Name] = m.Rating
	}
	want := map[string]VitalRating{"LCP": VitalNeedsImprovement, "CLS": VitalPoor, "TTFB": VitalGood}
	for name, rating := range want {
		if ratings[name] != rating {
			t.Errorf("%s rating = %q, want %q", name, ratings[name], rating)
		}
	}
	if s.BusinessImpact.SEOImpact != SEONegative {
		t.Errorf("seo = %q, want negative with poor vitals", s.BusinessImpact.SEOImpact)
	}
}

func TestAggregateVitalsAllGood(t *testing.T) {
	s := aggregate(
		map[string]float64{"largest_contentful_paint": 2400, "fcp": 1500},
		map[string]float64{"largest_contentful_paint": 1800, "fcp": 1000},
	)
	if s.CoreWebVitals == nil || s.CoreWebVitals.Score != VitalGood {
		t.Fatalf("expected good vitals, got %+v", s.CoreWebVitals)
	}
	if len(s.CoreWebVitals.Metrics) != 2 {
		t.Errorf("expected 2 vitals, got %d", len(s.CoreWebVitals.Metrics))
	}
	if s.BusinessImpact.SEOImpact != SEOPositive {
		t.Errorf("seo = %q, want positive", s.BusinessImpact.SEOImpact)
	}
	if s.BusinessImpact.UserExperience != UXExcellent {
		t.Errorf("ux = %q, want excellent", s.BusinessImpact.UserExperience)
	}
}

func TestAggregateVitalsIgnoresEmbeddedLetters(t *testing.T) {
	s := aggregate(
		map[string]float64{"confidence": 0.9, "classCount": 4},
		map[string]float64{"confidence": 0.8, "classCount": 5},
	)
	if s.CoreWebVitals != nil {
		t.Errorf("expected no vitals, got %+v", s.CoreWebVitals)
	}
}

func TestAggregateRevenueRisk(t *testing.T) {
	tests := []struct {
		name     string
		baseline map[string]float64
		current  map[string]float64
		want     RiskLevel
	}{
		{"stable", map[string]float64{"errorRate": 1, "throughput": 100}, map[string]float64{"errorRate": 1, "throughput": 100}, RiskLow},
		{"errors up 20%", map[string]float64{"errorRate": 100}, map[string]float64{"errorRate": 120}, RiskMedium},
		{"throughput down 20%", map[string]float64{"throughput": 100}, map[string]float64{"throughput": 80}, RiskHigh},
		{"errors doubled", map[string]float64{"errorRate": 1}, map[string]float64{"errorRate": 2}, RiskCritical},
		{"errors from zero", map[string]float64{"errorCount": 0}, map[string]float64{"errorCount": 3}, RiskCritical},
		{"memory up 60%", map[string]float64{"memoryUsage": 100}, map[string]float64{"memoryUsage": 160}, RiskHigh},
		{"errors improved", map[string]float64{"errorRate": 4}, map[string]float64{"errorRate": 1}, RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := aggregate(tt.baseline, tt.current)
			if s.BusinessImpact.RevenueRisk != tt.want {
				t.Errorf("revenue risk = %q, want %q", s.BusinessImpact.RevenueRisk, tt.want)
			}
		})
	}
}

func TestAggregateWithCustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.RevenueRisk = []RiskBand{{Level: RiskCritical, ErrorRateRisePct: 15}}

	result := CompareReports(
		report(map[string]float64{"errorRate": 100}),
		report(map[string]float64{"errorRate": 120}),
	)
	if got := AggregateWith(result, th).BusinessImpact.RevenueRisk; got != RiskCritical {
		t.Errorf("revenue risk = %q, want critical", got)
	}

	// Empty sections fall back to defaults.
	if got := AggregateWith(result, Thresholds{}).BusinessImpact.RevenueRisk; got != RiskMedium {
		t.Errorf("revenue risk = %q, want medium", got)
	}
}

func TestAggregateUserExperience(t *testing.T) {
	tests := []struct {
		name     string
		baseline float64
		current  float64
		want     UXLevel
	}{
		{"much faster", 1000, 500, UXExcellent},
		{"slightly faster", 1000, 900, UXGood},
		{"slower", 1000, 1100, UXDegraded},
		{"much slower", 1000, 1500, UXPoor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := aggregate(
				map[string]float64{"responseTimeAvg": tt.baseline},
				map[string]float64{"responseTimeAvg": tt.current},
			)
			if s.BusinessImpact.UserExperience != tt.want {
				t.Errorf("ux = %q, want %q", s.BusinessImpact.UserExperience, tt.want)
			}
		})
	}
}

func TestAggregateCategoryScores(t *testing.T) {
	s := aggregate(
		map[string]float64{"errorRate": 10, "throughput": 100, "lcp": 2000},
		map[string]float64{"errorRate": 5, "throughput": 150, "lcp": 2200},
	)

	if !approxEqual(s.CategoryScores.SystemReliability, 50) {
		t.Errorf("reliability = %v, want 50", s.CategoryScores.SystemReliability)
	}
	if !approxEqual(s.CategoryScores.Performance, 50) {
		t.Errorf("performance = %v, want 50", s.CategoryScores.Performance)
	}
	if !approxEqual(s.CategoryScores.UserExperience, -10) {
		t.Errorf("user experience = %v, want -10", s.CategoryScores.UserExperience)
	}
}

func TestAggregateTopLists(t *testing.T) {
	s := aggregate(
		map[string]float64{"a_time": 100, "b_time": 100, "c_time": 100, "d_time": 100, "e_time": 100, "f_time": 100},
		map[string]float64{"a_time": 90, "b_time": 50, "c_time": 70, "d_time": 60, "e_time": 130, "f_time": 101},
	)

	wantImproved := []string{"b_time", "d_time", "c_time"}
	if len(s.TopImproved) != len(wantImproved) {
		t.Fatalf("top improved = %+v", s.TopImproved)
	}
	for i, key := range wantImproved {
		if s.TopImproved[i].Key != key {
			t.Errorf("topImproved[%d] = %q, want %q", i, s.TopImproved[i].Key, key)
		}
		if s.TopImproved[i].Pct == nil || *s.TopImproved[i].Pct <= 0 {
			t.Errorf("topImproved[%d] pct = %v, want positive", i, s.TopImproved[i].Pct)
		}
	}

	if len(s.TopRegressed) != 1 || s.TopRegressed[0].Key != "e_time" {
		t.Errorf("top regressed = %+v, want only e_time", s.TopRegressed)
	}
	if s.TopRegressed[0].Pct == nil || !approxEqual(*s.TopRegressed[0].Pct, -30) {
		t.Errorf("regressed pct = %v, want -30", s.TopRegressed[0].Pct)
	}
}

func TestAggregateTopListsZeroBaseline(t *testing.T) {
	s := aggregate(
		map[string]float64{"errorCount": 0, "a_time": 100, "b_time": 100, "c_time": 100, "throughput": 0},
		map[string]float64{"errorCount": 12, "a_time": 110, "b_time": 150, "c_time": 300, "throughput": 40},
	)

	// 0 -> 12 errors ranks at the unknown-pct weight (100%), ahead of the
	// 50% regression and behind the 200% one.
	wantRegressed := []string{"c_time", "errorCount", "b_time"}
	if len(s.TopRegressed) != len(wantRegressed) {
		t.Fatalf("top regressed = %+v", s.TopRegressed)
	}
	for i, key := range wantRegressed {
		if s.TopRegressed[i].Key != key {
			t.Errorf("topRegressed[%d] = %q, want %q", i, s.TopRegressed[i].Key, key)
		}
	}
	if s.TopRegressed[1].Pct != nil {
		t.Errorf("zero-baseline pct = %v, want nil", *s.TopRegressed[1].Pct)
	}

	if len(s.TopImproved) != 1 || s.TopImproved[0].Key != "throughput" || s.TopImproved[0].Pct != nil {
		t.Errorf("top improved = %+v, want only throughput with nil pct", s.TopImproved)
	}

	data, err := json.Marshal(s.TopRegressed[1])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"pct":null`) {
		t.Errorf("expected null pct in %s", data)
	}
}

func TestAggregateJSONFieldNames(t *testing.T) {
	s := aggregate(map[string]float64{"lcp": 2000}, map[string]float64{"lcp": 1500})
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{
		"improvedCount", "worseCount", "sameCount", "avgImprovementPct",
		"netImprovementScore", "latencyImprovementMs", "latencyImprovementPct",
		"performanceScore", "categoryScores", "coreWebVitals", "businessImpact",
		"topImproved", "topRegressed",
	} {
		if _, ok := decoded[field]; !ok {
			t.Errorf("summary JSON missing field %q", field)
		}
	}

	impact := decoded["businessImpact"].(map[string]interface{})
	for _, field := range []string{"revenueRisk", "userExperience", "seoImpact"} {
		if _, ok := impact[field]; !ok {
			t.Errorf("businessImpact JSON missing field %q", field)
		}
	}
}

func TestAggregateDeterministic(t *testing.T) {
	b := map[string]float64{"lcp": 2000, "errorRate": 1, "throughput": 50, "cpu": 30, "memory": 100, "responseTimeAvg": 300}
	c := map[string]float64{"lcp": 2600, "errorRate": 3, "throughput": 45, "cpu": 60, "memory": 90, "responseTimeAvg": 250}

	first, _ := json.Marshal(aggregate(b, c))
	for i := 0; i < 5; i++ {
		again, _ := json.Marshal(aggregate(b, c))
		if string(again) != string(first) {
			t.Fatal("aggregate output changed between identical calls")
		}
	}
}
