package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"
)

// CLI flags
var (
	apiURL      = flag.String("api-url", "http://localhost:3000", "pagefetch API base URL")
	apiKey      = flag.String("api-key", "", "API key for authenticated requests")
	runs        = flag.Int("runs", 3, "Number of runs per URL")
	concurrency = flag.Int("concurrency", 4, "Requests in flight at once")
	timeoutMs   = flag.Int("timeout", 15000, "Per-attempt navigation timeout sent with each request (ms)")
	output      = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering different response shapes.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"JSON", "https://httpbin.org/json"},
	{"NotFound", "https://httpbin.org/status/404"},
	{"Complex", "https://github.com/go-rod/rod"},
}

type scrapeRequest struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout"`
}

type scrapeResponse struct {
	Content        string  `json:"content"`
	PageStatusCode *int    `json:"pageStatusCode"`
	ContentType    *string `json:"contentType"`
	PageError      string  `json:"pageError"`
	Error          string  `json:"error"`
}

type runResult struct {
	Label         string `json:"label"`
	URL           string `json:"url"`
	Run           int    `json:"run"`
	LatencyMs     int64  `json:"latency_ms"`
	HTTPStatus    int    `json:"http_status"`
	PageStatus    int    `json:"page_status,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	ContentLength int    `json:"content_length"`
	PageError     string `json:"page_error,omitempty"`
	Error         string `json:"error,omitempty"`
}

type benchmarkReport struct {
	Timestamp   string      `json:"timestamp"`
	APIURL      string      `json:"api_url"`
	RunsPerURL  int         `json:"runs_per_url"`
	Concurrency int         `json:"concurrency"`
	Results     []runResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== pagefetch benchmark ===")
	fmt.Printf("API URL:      %s\n", *apiURL)
	fmt.Printf("Runs/URL:     %d\n", *runs)
	fmt.Printf("Concurrency:  %d\n", *concurrency)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		APIURL:      *apiURL,
		RunsPerURL:  *runs,
		Concurrency: *concurrency,
	}

	client := &http.Client{Timeout: 2*time.Duration(*timeoutMs)*time.Millisecond + 30*time.Second}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*concurrency)

	start := time.Now()
	for _, t := range testURLs {
		for i := 1; i <= *runs; i++ {
			g.Go(func() error {
				rr := benchmarkURL(ctx, client, t.Label, t.URL, i)
				mu.Lock()
				report.Results = append(report.Results, rr)
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()
	wall := time.Since(start)

	slices.SortFunc(report.Results, func(a, b runResult) int {
		if c := strings.Compare(a.Label, b.Label); c != 0 {
			return c
		}
		return a.Run - b.Run
	})
	printTable(report.Results)
	fmt.Printf("Wall time: %s for %d requests\n", wall.Round(time.Millisecond), len(report.Results))

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Detailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned %s", resp.Status)
	}
	return nil
}

func benchmarkURL(ctx context.Context, client *http.Client, label, url string, run int) runResult {
	rr := runResult{Label: label, URL: url, Run: run}

	bodyBytes, err := json.Marshal(scrapeRequest{URL: url, Timeout: *timeoutMs})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *apiURL+"/scrape", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var sr scrapeResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&sr)
	rr.LatencyMs = time.Since(start).Milliseconds()
	rr.HTTPStatus = resp.StatusCode
	if decodeErr != nil {
		rr.Error = fmt.Sprintf("decode error: %v", decodeErr)
		return rr
	}

	rr.Error = sr.Error
	rr.PageError = sr.PageError
	rr.ContentLength = len(sr.Content)
	if sr.PageStatusCode != nil {
		rr.PageStatus = *sr.PageStatusCode
	}
	if sr.ContentType != nil {
		rr.ContentType = *sr.ContentType
	}
	return rr
}

func printTable(results []runResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Label\tRun\tLatency\tHTTP\tPage\tContent Len\tNote\n")
	fmt.Fprintf(w, "─────\t───\t───────\t────\t────\t───────────\t────\n")
	for _, r := range results {
		note := r.PageError
		if r.Error != "" {
			note = r.Error
		}
		fmt.Fprintf(w, "%s\t%d\t%dms\t%d\t%d\t%d\t%s\n",
			r.Label, r.Run, r.LatencyMs, r.HTTPStatus, r.PageStatus, r.ContentLength, truncate(note, 40))
	}
	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
