package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hiveworks/swarmkernel/pkg/api"
	"github.com/hiveworks/swarmkernel/pkg/kernel"
	"github.com/hiveworks/swarmkernel/pkg/logging"
	"github.com/hiveworks/swarmkernel/pkg/metrics"
	"github.com/hiveworks/swarmkernel/pkg/ratelimit"
)

func newTestServer(t *testing.T) (*api.Server, *kernel.Kernel) {
	t.Helper()
	k := kernel.New()
	if err := k.RegisterProcess("harvest", 100, false, func() kernel.Process {
		return kernel.ProcessFunc(func(*kernel.Context) error { return nil })
	}); err != nil {
		t.Fatalf("Failed to register process: %v", err)
	}
	if err := k.RegisterProcess("report", 10, true, func() kernel.Process {
		return kernel.ProcessFunc(func(*kernel.Context) error { return nil })
	}); err != nil {
		t.Fatalf("Failed to register process: %v", err)
	}

	reg := prometheus.NewRegistry()
	metrics.NewRecorder(reg).Record("tick_cpu", 1.5)

	log := logging.New(logging.ERROR, false)
	return api.NewServer("127.0.0.1:0", k, reg, log), k
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("Expected healthy status, got: %s", w.Body.String())
	}
}

func TestSummaryEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	// Before any invocation completes, there is nothing to report.
	req := httptest.NewRequest("GET", "/summary", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 before first tick, got %d", w.Code)
	}

	s.RecordSummary(&kernel.RunSummary{
		ID:       "run-1",
		Tick:     42,
		Executed: []string{"harvest", "report"},
		TotalCPU: 3.5,
	})

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/summary", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Response: %s", w.Code, w.Body.String())
	}

	var sum kernel.RunSummary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if sum.Tick != 42 {
		t.Errorf("Expected tick 42, got %d", sum.Tick)
	}
	if len(sum.Executed) != 2 {
		t.Errorf("Expected 2 executed processes, got %v", sum.Executed)
	}
}

func TestProcessesEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/processes", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var descriptors []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &descriptors); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("Expected 2 descriptors, got %d", len(descriptors))
	}
	// Execution order: harvest (100) before report (10).
	if descriptors[0]["name"] != "harvest" {
		t.Errorf("Expected harvest first, got %v", descriptors[0]["name"])
	}
	if descriptors[1]["singleton"] != true {
		t.Errorf("Expected report to be a singleton, got %v", descriptors[1])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "swarm_kernel_value") {
		t.Errorf("Expected kernel metrics in exposition, got: %s", w.Body.String())
	}
}

func TestSummaryConcurrentWithPublish(t *testing.T) {
	s, _ := newTestServer(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for tick := uint64(1); tick <= 200; tick++ {
			s.RecordSummary(&kernel.RunSummary{
				ID:       "run",
				Tick:     tick,
				Executed: []string{"harvest"},
			})
		}
	}()

	// Readers race the publisher the way mux handlers race the tick loop.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				w := httptest.NewRecorder()
				s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/summary", nil))
				if w.Code != http.StatusOK && w.Code != http.StatusNotFound {
					t.Errorf("Unexpected status %d", w.Code)
					return
				}
				if w.Code != http.StatusOK {
					continue
				}
				var sum kernel.RunSummary
				if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
					t.Errorf("Failed to parse response: %v", err)
					return
				}
				if sum.Tick == 0 || sum.Tick > 200 {
					t.Errorf("Observed torn summary with tick %d", sum.Tick)
					return
				}
			}
		}()
	}

	wg.Wait()
	<-done
}

func TestRateLimitedServer(t *testing.T) {
	k := kernel.New()
	reg := prometheus.NewRegistry()
	log := logging.New(logging.ERROR, false)

	s := api.NewServer("127.0.0.1:0", k, reg, log,
		api.WithRateLimit(ratelimit.NewLimiter(1, 1)))

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.RemoteAddr = "198.51.100.7:4242"

	first := httptest.NewRecorder()
	s.Handler().ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("First request should pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	s.Handler().ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 once the burst is spent, got %d", second.Code)
	}
}

func TestUnknownMethodRejected(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/summary", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}
