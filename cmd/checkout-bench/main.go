package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nazeru/storefront-checkout-go/internal/cart"
	"github.com/nazeru/storefront-checkout-go/internal/checkout"
	"github.com/nazeru/storefront-checkout-go/internal/domain"
	"github.com/nazeru/storefront-checkout-go/internal/state"
	"github.com/nazeru/storefront-checkout-go/internal/storefront"
	"github.com/nazeru/storefront-checkout-go/pkg/magento"
)

type benchResult struct {
	Timestamp           string         `json:"timestamp"`
	BaseURL             string         `json:"base_url"`
	Checkouts           int            `json:"checkouts"`
	Concurrency         int            `json:"concurrency"`
	StepsPerCheckout    int            `json:"steps_per_checkout"`
	SuccessfulCheckouts int            `json:"successful_checkouts"`
	ErrorCheckouts      int            `json:"error_checkouts"`
	DurationSeconds     float64        `json:"duration_seconds"`
	AvgLatencyMs        float64        `json:"avg_latency_ms"`
	MinLatencyMs        float64        `json:"min_latency_ms"`
	MaxLatencyMs        float64        `json:"max_latency_ms"`
	P50LatencyMs        float64        `json:"p50_latency_ms"`
	P90LatencyMs        float64        `json:"p90_latency_ms"`
	P95LatencyMs        float64        `json:"p95_latency_ms"`
	P99LatencyMs        float64        `json:"p99_latency_ms"`
	ThroughputRPS       float64        `json:"throughput_rps"`
	StatusCounts        map[string]int `json:"status_counts"`
	ErrorClasses        map[string]int `json:"error_classes"`
	FirstError          string         `json:"first_error"`
}

type step struct {
	name  string
	thunk func(sf *storefront.Storefront) state.Thunk
}

type metrics struct {
	mu           sync.Mutex
	success      int
	errors       int
	total        time.Duration
	minLatency   time.Duration
	maxLatency   time.Duration
	latenciesMs  []float64
	statusCounts map[string]int
	errorClasses map[string]int
	firstError   string
}

func newMetrics() *metrics {
	return &metrics{
		statusCounts: make(map[string]int),
		errorClasses: make(map[string]int),
	}
}

func (m *metrics) recordCheckout(latency time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, class := classifyError(err)
	m.statusCounts[strconv.Itoa(status)]++
	if err != nil {
		m.errors++
		m.errorClasses[class]++
		if m.firstError == "" {
			m.firstError = err.Error()
		}
		return
	}
	m.success++
	m.total += latency
	if m.minLatency == 0 || latency < m.minLatency {
		m.minLatency = latency
	}
	if latency > m.maxLatency {
		m.maxLatency = latency
	}
	m.latenciesMs = append(m.latenciesMs, float64(latency.Milliseconds()))
}

func main() {
	baseURL := flag.String("base-url", getenv("MAGENTO_BASE_URL", "http://localhost:8080"), "Magento base URL")
	total := flag.Int("total", 200, "total number of guest checkouts")
	concurrency := flag.Int("concurrency", 10, "number of concurrent shoppers")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	region := flag.String("region", "CA", "shipping region code")
	output := flag.String("output", "", "optional output path for JSON result")
	flag.Parse()

	if *total <= 0 {
		fmt.Fprintln(os.Stderr, "total must be > 0")
		os.Exit(1)
	}
	if *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency must be > 0")
		os.Exit(1)
	}

	payload := checkout.InputPayload{FormValues: domain.Address{
		"firstname":   "Bench",
		"lastname":    "Shopper",
		"email":       "bench@example.com",
		"telephone":   "555-0100",
		"street":      []string{"1 Main St"},
		"city":        "Los Angeles",
		"postcode":    "90001",
		"region_code": *region,
	}}
	steps := buildSteps(payload)
	client := magento.New(*baseURL, magento.WithTimeout(*timeout))

	tasks := make(chan struct{})
	var wg sync.WaitGroup
	m := newMetrics()

	start := time.Now()
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range tasks {
				latency, err := runCheckout(context.Background(), client, steps)
				m.recordCheckout(latency, err)
			}
		}()
	}

	for i := 0; i < *total; i++ {
		tasks <- struct{}{}
	}
	close(tasks)
	wg.Wait()

	duration := time.Since(start)
	avgLatency := 0.0
	minLatency := 0.0
	maxLatency := 0.0
	if m.success > 0 {
		avgLatency = float64(m.total.Milliseconds()) / float64(m.success)
		minLatency = float64(m.minLatency.Milliseconds())
		maxLatency = float64(m.maxLatency.Milliseconds())
	}
	p50, p90, p95, p99 := calcPercentiles(m.latenciesMs)

	result := benchResult{
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
		BaseURL:             *baseURL,
		Checkouts:           *total,
		Concurrency:         *concurrency,
		StepsPerCheckout:    len(steps),
		SuccessfulCheckouts: m.success,
		ErrorCheckouts:      m.errors,
		DurationSeconds:     duration.Seconds(),
		AvgLatencyMs:        avgLatency,
		MinLatencyMs:        minLatency,
		MaxLatencyMs:        maxLatency,
		P50LatencyMs:        p50,
		P90LatencyMs:        p90,
		P95LatencyMs:        p95,
		P99LatencyMs:        p99,
		ThroughputRPS:       float64(m.success) / duration.Seconds(),
		StatusCounts:        m.statusCounts,
		ErrorClasses:        m.errorClasses,
		FirstError:          m.firstError,
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		os.Exit(1)
	}

	if *output != "" {
		if err := writeJSON(*output, result); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write output: %v\n", err)
			os.Exit(1)
		}
	}
}

func buildSteps(payload checkout.InputPayload) []step {
	return []step{
		{name: "submit-cart", thunk: func(sf *storefront.Storefront) state.Thunk { return sf.Checkout.SubmitCart() }},
		{name: "submit-input", thunk: func(sf *storefront.Storefront) state.Thunk { return sf.Checkout.SubmitInput(payload) }},
		{name: "submit-order", thunk: func(sf *storefront.Storefront) state.Thunk { return sf.Checkout.SubmitOrder() }},
	}
}

// runCheckout drives one shopper from a fresh guest cart to a placed order.
func runCheckout(ctx context.Context, client *magento.Client, steps []step) (time.Duration, error) {
	start := time.Now()
	sf := storefront.New(client, storefront.Options{IDStore: cart.NewMemoryIDStore()})
	defer sf.Close()

	if err := sf.Start(ctx); err != nil {
		return time.Since(start), fmt.Errorf("start: %w", err)
	}
	if err := sf.State().Cart.Err; err != nil {
		return time.Since(start), fmt.Errorf("start: %w", err)
	}
	for _, s := range steps {
		if err := sf.Run(ctx, s.thunk(sf)); err != nil {
			return time.Since(start), fmt.Errorf("%s: %w", s.name, err)
		}
		if err := sf.State().Checkout.Err; err != nil {
			return time.Since(start), fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return time.Since(start), nil
}

func classifyError(err error) (int, string) {
	if err == nil {
		return 200, ""
	}
	var respErr *magento.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.StatusCode >= 500:
			return respErr.StatusCode, "http_5xx"
		case respErr.StatusCode >= 400:
			return respErr.StatusCode, "http_4xx"
		}
		return respErr.StatusCode, "unexpected_status"
	}
	if errors.Is(err, checkout.ErrRegionUnavailable) || errors.Is(err, checkout.ErrCountryUnavailable) {
		return 0, "address_rejected"
	}
	return 0, "transport"
}

func writeJSON(path string, result benchResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func calcPercentiles(values []float64) (float64, float64, float64, float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sort.Float64s(values)
	return percentile(values, 0.50), percentile(values, 0.90), percentile(values, 0.95), percentile(values, 0.99)
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
