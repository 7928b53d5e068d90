package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scrapeRequest mirrors the pagefetch POST /scrape payload.
type scrapeRequest struct {
	URL           string            `json:"url"`
	WaitAfterLoad int               `json:"wait_after_load,omitempty"`
	Timeout       int               `json:"timeout,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	CheckSelector string            `json:"check_selector,omitempty"`
}

// scrapeResponse mirrors both the 200 and the error bodies of POST /scrape.
type scrapeResponse struct {
	Content        string  `json:"content"`
	PageStatusCode *int    `json:"pageStatusCode"`
	ContentType    *string `json:"contentType"`
	PageError      string  `json:"pageError"`
	Error          string  `json:"error"`
}

func main() {
	apiURL := strings.TrimRight(os.Getenv("PAGEFETCH_API_URL"), "/")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3000"
	}
	apiKey := os.Getenv("PAGEFETCH_API_KEY")

	s := server.NewMCPServer(
		"pagefetch",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	fetchPageTool := mcp.NewTool("fetch_page",
		mcp.WithDescription("Render a web page in a headless browser and return its HTML (or the raw body for JSON and plain-text responses) together with the HTTP status and content type."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute URL of the page to fetch"),
		),
		mcp.WithNumber("wait_after_load",
			mcp.Description("Extra settle delay in milliseconds after the page loads (default: 0)"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Per-attempt navigation timeout in milliseconds (default: 15000)"),
		),
		mcp.WithString("check_selector",
			mcp.Description("CSS selector that must be present before the page is considered ready"),
		),
		mcp.WithObject("headers",
			mcp.Description("Extra HTTP headers sent with every request the page makes"),
		),
	)
	s.AddTool(fetchPageTool, handleFetchPage(apiURL, apiKey, &http.Client{Timeout: 120 * time.Second}))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleFetchPage(apiURL, apiKey string, client *http.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := scrapeRequest{
			URL:           url,
			WaitAfterLoad: request.GetInt("wait_after_load", 0),
			Timeout:       request.GetInt("timeout", 0),
			CheckSelector: request.GetString("check_selector", ""),
			Headers:       stringMap(request.GetArguments()["headers"]),
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/scrape", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var scrapeResp scrapeResponse
		if err := json.Unmarshal(respBody, &scrapeResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if resp.StatusCode != http.StatusOK {
			errMsg := scrapeResp.Error
			if errMsg == "" {
				errMsg = resp.Status
			}
			return mcp.NewToolResultError(fmt.Sprintf("[%d] %s", resp.StatusCode, errMsg)), nil
		}

		return mcp.NewToolResultText(formatResult(&scrapeResp)), nil
	}
}

// formatResult puts response metadata in a short header above the content.
func formatResult(r *scrapeResponse) string {
	var b strings.Builder
	if r.PageStatusCode != nil {
		fmt.Fprintf(&b, "Status: %d\n", *r.PageStatusCode)
	} else {
		b.WriteString("Status: none\n")
	}
	if r.ContentType != nil {
		fmt.Fprintf(&b, "Content-Type: %s\n", *r.ContentType)
	}
	if r.PageError != "" {
		fmt.Fprintf(&b, "Page error: %s\n", r.PageError)
	}
	b.WriteString("\n")
	b.WriteString(r.Content)
	return b.String()
}

// stringMap converts a decoded JSON object into string headers, dropping
// non-string values.
func stringMap(v any) map[string]string {
	obj, ok := v.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, val := range obj {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}
