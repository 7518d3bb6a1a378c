package scorer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const defaultRemoteTimeout = 60 * time.Second

// RemoteOptions configures a Remote scorer.
type RemoteOptions struct {
	// URL is the full scoring endpoint, e.g. http://gpu-node:8500/v1/score.
	URL     string
	Timeout time.Duration
	Headers map[string]string
	Client  *http.Client
}

// Remote scores batches by posting them to a model server.
//
// Request:  {"input_ids": [[...]], "token_type_ids": [[...]]}
// Response: {"logits": [[...]]}, one vector per row at its last position.
type Remote struct {
	url     string
	headers map[string]string
	do      func(*http.Request) (*http.Response, error)
}

type scoreRequest struct {
	InputIDs     [][]int `json:"input_ids"`
	TokenTypeIDs [][]int `json:"token_type_ids"`
}

type scoreResponse struct {
	Logits [][]float32 `json:"logits"`
}

// UpstreamError reports a non-2xx answer from the model server.
type UpstreamError struct {
	Status int
	Msg    string
}

func (e *UpstreamError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("scorer upstream %d", e.Status)
	}
	return fmt.Sprintf("scorer upstream %d: %s", e.Status, e.Msg)
}

// Temporary reports whether retrying later may succeed.
func (e *UpstreamError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status/100 == 5
}

func NewRemote(opts RemoteOptions) (*Remote, error) {
	u := strings.TrimSpace(opts.URL)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return nil, fmt.Errorf("remote scorer: url must be http(s), got %q", opts.URL)
	}
	hc := opts.Client
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultRemoteTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Remote{url: u, headers: opts.Headers, do: hc.Do}, nil
}

func (r *Remote) Score(ctx context.Context, ids, segments [][]int) ([][]float32, error) {
	body, err := json.Marshal(scoreRequest{InputIDs: ids, TokenTypeIDs: segments})
	if err != nil {
		return nil, fmt.Errorf("remote scorer: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("remote scorer: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	for k, v := range r.headers {
		if k != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := r.do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
		}
		return nil, fmt.Errorf("remote scorer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &UpstreamError{Status: resp.StatusCode, Msg: strings.TrimSpace(string(slurp))}
	}

	var sr scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("remote scorer: decode: %w", err)
	}
	if len(sr.Logits) != len(ids) {
		return nil, fmt.Errorf("remote scorer: got %d score rows for %d inputs", len(sr.Logits), len(ids))
	}
	return sr.Logits, nil
}
