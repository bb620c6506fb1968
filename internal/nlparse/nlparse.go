// Package nlparse turns free-form text like "worked 9 to 12 then
// gym" into structured hour-log entries via the OpenAI chat
// completions API. Parsed entries are staged suggestions; the
// caller decides what to save.
package nlparse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	// Low temperature keeps hour assignments stable across
	// retries of the same text.
	temperature = 0.3
)

// ParsedEntry is one hour-log suggestion extracted from text.
// Category is a name, resolved against the catalog by the caller;
// Rating is nil when the text gives no signal.
type ParsedEntry struct {
	Hour     int    `json:"hour"`
	Category string `json:"category"`
	Notes    string `json:"notes"`
	Rating   *int   `json:"rating,omitempty"`
}

// Request carries the text to parse plus the context the model
// needs to place entries: the day being filled, the hour span
// still open, and the category names it may use.
type Request struct {
	Text       string
	Day        string // ISO date
	FromHour   int
	ToHour     int
	Categories []string
	Recent     []string // short human-readable lines, newest first
}

// Client calls the chat completions endpoint. The zero value is
// not usable; construct with NewClient.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the given API key. An empty
// model selects the default.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// systemPrompt renders the instruction block for one request.
func systemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You convert a personal activity description into hourly time log entries.\n")
	fmt.Fprintf(&b, "The day is %s. Fill only hours from %d to %d (24-hour clock).\n",
		req.Day, req.FromHour, req.ToHour)
	b.WriteString("Allowed categories: ")
	b.WriteString(strings.Join(req.Categories, ", "))
	b.WriteString(".\n")
	if len(req.Recent) > 0 {
		b.WriteString("Recent entries for context:\n")
		for _, line := range req.Recent {
			b.WriteString("- " + line + "\n")
		}
	}
	b.WriteString(`Respond with JSON: {"entries": [{"hour": <int>, ` +
		`"category": <name or "">, "notes": <short string>, ` +
		`"rating": <1-10 int or null>}]}. ` +
		`One entry per hour, no hours outside the span, ` +
		`omit hours the text says nothing about.`)
	return b.String()
}

// Parse sends the text to the model and returns the extracted
// entries. Entries outside the requested hour span are dropped.
func (c *Client) Parse(ctx context.Context, req Request) ([]ParsedEntry, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("no OpenAI API key configured")
	}

	payload, err := json.Marshal(map[string]any{
		"model":       c.model,
		"temperature": temperature,
		"response_format": map[string]string{
			"type": "json_object",
		},
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt(req)},
			{"role": "user", "content": req.Text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling completion payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		c.baseURL+"/chat/completions",
		strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("creating completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("openai API error: %d: %s",
			resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading completion response: %w", err)
	}
	content := gjson.GetBytes(body, "choices.0.message.content").Str
	if content == "" {
		return nil, fmt.Errorf("openai response has no content")
	}

	entries, err := extractEntries(content)
	if err != nil {
		return nil, err
	}

	out := entries[:0]
	for _, e := range entries {
		if e.Hour < req.FromHour || e.Hour > req.ToHour {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// extractEntries pulls the entry array out of the model's JSON.
// Models wrap the array under varying keys despite the prompt,
// so try the known wrappers before falling back to a bare array.
func extractEntries(content string) ([]ParsedEntry, error) {
	if !gjson.Valid(content) {
		return nil, fmt.Errorf("model returned invalid JSON")
	}

	doc := gjson.Parse(content)
	arr := doc
	if !doc.IsArray() {
		for _, key := range []string{"entries", "logs", "data"} {
			if v := doc.Get(key); v.IsArray() {
				arr = v
				break
			}
		}
	}
	if !arr.IsArray() {
		return nil, fmt.Errorf("model returned no entry array")
	}

	var entries []ParsedEntry
	for _, item := range arr.Array() {
		e := ParsedEntry{
			Hour:     int(item.Get("hour").Int()),
			Category: item.Get("category").Str,
			Notes:    item.Get("notes").Str,
		}
		if r := item.Get("rating"); r.Exists() && r.Type == gjson.Number {
			rating := int(r.Int())
			e.Rating = &rating
		}
		entries = append(entries, e)
	}
	return entries, nil
}
