package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/config"
	"github.com/evanofslack/adsmutate/internal/metrics"
	"github.com/evanofslack/adsmutate/internal/mutate"
)

const adwordsScope = "https://www.googleapis.com/auth/adwords"

type Httper interface {
	Do(req *http.Request) (*http.Response, error)
}

// REST is the JSON binding of Client.
type REST struct {
	endpoint        string
	version         string
	developerToken  string
	loginCustomerID string
	// mutateHTTP never retries: resubmitting a batch that was applied
	// remotely would duplicate its creates.
	mutateHTTP Httper
	searchHTTP Httper
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
}

// NewREST exchanges the configured refresh token for an access token and
// returns a client authenticated with it. The token exchange is the step
// that fails on bad credentials, so it runs here rather than on first use.
func NewREST(ctx context.Context, cfg config.API, m *metrics.Metrics) (*REST, error) {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{adwordsScope},
	}
	// The token source outlives the call that created it.
	base := context.WithoutCancel(ctx)
	ts := oauth2.ReuseTokenSource(nil, oc.TokenSource(base, &oauth2.Token{RefreshToken: cfg.RefreshToken}))
	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("fetch access token: %w", err)
	}
	hc := oauth2.NewClient(base, ts)
	hc.Timeout = cfg.Timeout
	return newREST(cfg, hc, m), nil
}

func newREST(cfg config.API, hc *http.Client, m *metrics.Metrics) *REST {
	retry := retryablehttp.NewClient()
	retry.HTTPClient = hc
	retry.RetryMax = 3
	retry.RetryWaitMin = 200 * time.Millisecond
	retry.RetryWaitMax = 2 * time.Second
	retry.Logger = slog.Default()
	retry.ErrorHandler = retryablehttp.PassthroughErrorHandler

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &REST{
		endpoint:        strings.TrimRight(cfg.Endpoint, "/"),
		version:         cfg.Version,
		developerToken:  cfg.DeveloperToken,
		loginCustomerID: strings.ReplaceAll(cfg.LoginCustomerID, "-", ""),
		mutateHTTP:      hc,
		searchHTTP:      retry.StandardClient(),
		limiter:         rate.NewLimiter(limit, 1),
		metrics:         m,
	}
}

func (r *REST) Mutate(ctx context.Context, customerID string, ops []mutate.Operation, opts MutateOptions) (MutateResponse, error) {
	slog.DebugContext(ctx, "Submitting mutate request", "customer", customerID, "operations", len(ops), "partial_failure", opts.PartialFailure)
	start := time.Now()

	encoded, err := encodeOperations(ops)
	if err != nil {
		return MutateResponse{}, err
	}
	req := mutateRequest{
		MutateOperations: encoded,
		PartialFailure:   opts.PartialFailure,
		ValidateOnly:     opts.ValidateOnly,
	}

	var resp mutateResponse
	if err := r.post(ctx, r.mutateHTTP, customerID, "mutate", req, &resp); err != nil {
		r.metrics.IncAPIRequest("mutate", false)
		return MutateResponse{}, err
	}
	r.metrics.IncAPIRequest("mutate", true)

	out := decodeMutateResponse(resp)
	slog.DebugContext(ctx, "Mutate request complete", "customer", customerID, "results", len(out.Results), "failures", len(out.PartialFailure), "duration", time.Since(start))
	return out, nil
}

func (r *REST) Search(ctx context.Context, customerID, query string) ([]Row, error) {
	slog.DebugContext(ctx, "Running search", "customer", customerID)
	start := time.Now()

	var rows []Row
	req := searchRequest{Query: query}
	for {
		var resp searchResponse
		if err := r.post(ctx, r.searchHTTP, customerID, "search", req, &resp); err != nil {
			r.metrics.IncAPIRequest("search", false)
			return nil, err
		}
		rows = append(rows, resp.Results...)
		if resp.NextPageToken == "" {
			break
		}
		req.PageToken = resp.NextPageToken
	}

	r.metrics.IncAPIRequest("search", true)
	slog.DebugContext(ctx, "Search complete", "customer", customerID, "rows", len(rows), "duration", time.Since(start))
	return rows, nil
}

func (r *REST) post(ctx context.Context, hc Httper, customerID, method string, in, out any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}
	body, err := json.Marshal(in)
	if err != nil {
		return apierr.Validationf(method, "encode request: %v", err)
	}

	url := fmt.Sprintf("%s/%s/customers/%s/googleAds:%s", r.endpoint, r.version, customerID, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("developer-token", r.developerToken)
	if r.loginCustomerID != "" {
		req.Header.Set("login-customer-id", r.loginCustomerID)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return apierr.RemoteBatch(method, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierr.RemoteBatch(method, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		var env errorEnvelope
		if jerr := json.Unmarshal(raw, &env); jerr != nil || env.Error == nil {
			return apierr.RemoteBatch(method, fmt.Sprintf("api request, status=%d, body=%s", resp.StatusCode, truncate(raw, 512)), nil)
		}
		return apierr.FromStatus(method, resp.StatusCode, env.Error)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apierr.RemoteBatch(method, "parse response", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
