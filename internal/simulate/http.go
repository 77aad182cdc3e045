package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// getJSON fetches path and decodes the body into v.
func (c *HTTPClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("GET %s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}

// submit posts s and classifies the answer.
func (c *HTTPClient) submit(ctx context.Context, s Submission) Outcome {
	data, err := json.Marshal(s)
	if err != nil {
		return OutcomeFailed
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submit", bytes.NewReader(data))
	if err != nil {
		return OutcomeFailed
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return OutcomeFailed
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return OutcomeFailed
	}
	return classify(resp.StatusCode, resp.Header.Get("Content-Type"), body)
}

// classify maps a /submit response to an outcome. Duplicates are the only
// 400 answered with JSON.
func classify(status int, contentType string, body []byte) Outcome {
	switch {
	case status == http.StatusOK:
		return OutcomeSaved
	case status == http.StatusBadRequest && strings.HasPrefix(contentType, "application/json"):
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && strings.Contains(e.Error, "already submitted") {
			return OutcomeDuplicate
		}
		return OutcomeFailed
	case status == http.StatusBadRequest:
		return OutcomeInvalid
	default:
		return OutcomeFailed
	}
}

// uploadRoster replaces the server roster with climbers.
func (c *HTTPClient) uploadRoster(ctx context.Context, climbers []string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "climbers.csv")
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.WriteString(fw, strings.Join(climbers, "\n")+"\n"); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-climbers", &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload roster: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload roster: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

type recorded struct {
	sub     Submission
	outcome Outcome
}

// submitAll posts subs with cfg.Workers concurrent workers.
func submitAll(ctx context.Context, cfg *Config, client *HTTPClient, subs []Submission, stats *Stats) []recorded {
	var (
		saved, duplicate, invalid, failed, submitted int64
		mu                                           sync.Mutex
		out                                          = make([]recorded, 0, len(subs))
	)

	subChan := make(chan Submission, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range subChan {
				o := client.submit(ctx, s)
				atomic.AddInt64(&submitted, 1)
				switch o {
				case OutcomeSaved:
					atomic.AddInt64(&saved, 1)
				case OutcomeDuplicate:
					atomic.AddInt64(&duplicate, 1)
				case OutcomeInvalid:
					atomic.AddInt64(&invalid, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
				mu.Lock()
				out = append(out, recorded{sub: s, outcome: o})
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(subChan)
		for _, s := range subs {
			select {
			case <-ctx.Done():
				return
			case subChan <- s:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(submitted)
	stats.Saved = int(saved)
	stats.Duplicate = int(duplicate)
	stats.Invalid = int(invalid)
	stats.Failed = int(failed)
	return out
}
