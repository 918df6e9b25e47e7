package repute

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reputelabs/repute-go/x402"
)

const headerRequestID = "X-Request-Id"

// authMode is the authentication variant a client was constructed with.
// The two modes are mutually exclusive: a bearer credential covers the
// initial request, a signer answers 402 challenges.
type authMode int

const (
	authNone authMode = iota
	authBearer
	authSigner
)

// Client queries the reputation API. Configuration is fixed at
// construction; a Client is safe for concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	mode           authMode
	token          string
	signer         x402.Signer
	validityWindow time.Duration
	hooks          x402.Hooks
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client used for all requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBearerToken configures static bearer-token authentication.
func WithBearerToken(token string) ClientOption {
	return func(c *Client) {
		c.mode = authBearer
		c.token = token
		c.signer = nil
	}
}

// WithSigner configures x402 payment mode with the given signing
// capability. 402 responses are answered with a signed payment header and
// retried exactly once.
func WithSigner(signer x402.Signer) ClientOption {
	return func(c *Client) {
		c.mode = authSigner
		c.signer = signer
		c.token = ""
	}
}

// WithValidityWindow overrides how long signed authorizations stay valid.
func WithValidityWindow(window time.Duration) ClientOption {
	return func(c *Client) {
		c.validityWindow = window
	}
}

// WithPaymentHooks registers payment lifecycle hooks.
func WithPaymentHooks(hooks x402.Hooks) ClientOption {
	return func(c *Client) {
		c.hooks = hooks
	}
}

// NewClient creates a client for the reputation API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		httpClient:     http.DefaultClient,
		validityWindow: x402.DefaultValidityWindow,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetScore returns the trust score for a subject.
func (c *Client) GetScore(ctx context.Context, subject string) (*Score, error) {
	query := url.Values{}
	query.Set("subject", subject)

	var out Score
	if err := c.get(ctx, "/score", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAudit returns the score breakdown for a subject.
func (c *Client) GetAudit(ctx context.Context, subject string) (*Audit, error) {
	query := url.Values{}
	query.Set("subject", subject)

	var out Audit
	if err := c.get(ctx, "/audit", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPersonalizedScore scores a target from a viewer's perspective.
func (c *Client) GetPersonalizedScore(ctx context.Context, viewer, target string) (*PersonalizedScore, error) {
	query := url.Values{}
	query.Set("viewer", viewer)
	query.Set("target", target)

	var out PersonalizedScore
	if err := c.get(ctx, "/personalized", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTopSubjects returns the top-ranked subjects, at most limit entries.
func (c *Client) GetTopSubjects(ctx context.Context, limit int) ([]RankedSubject, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var out []RankedSubject
	if err := c.get(ctx, "/top", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetStats returns service statistics.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.get(ctx, "/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get performs one logical GET exchange: the initial request plus, when a
// 402 challenge arrives and a signer is configured, exactly one paid
// retry. The retry response is terminal whatever its status; a second 402
// is surfaced, never retried again.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	// Same id on the initial request and the paid retry.
	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, requestID)
	if c.mode == authBearer {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusPaymentRequired && c.mode == authSigner {
		retryResp, retryErr := c.payAndRetry(ctx, target, requestID, resp)
		drainAndClose(resp)
		if retryErr != nil {
			return retryErr
		}
		resp = retryResp
	}

	return c.decodeResponse(resp, out)
}

// payAndRetry answers a 402 challenge: decode it, sign an authorization
// for its first accepted requirement, and reissue the request carrying
// only the payment header. The bearer credential, if any, never applies
// here: payment supersedes credential auth for this exchange.
func (c *Client) payAndRetry(ctx context.Context, target, requestID string, challengeResp *http.Response) (*http.Response, error) {
	challenge, err := x402.DecodePaymentRequired(challengeResp.Header)
	if err != nil {
		return nil, err
	}

	if len(challenge.Accepts) == 0 {
		return nil, x402.NewPaymentError(x402.ErrCodeNoAcceptedPaymentMethod,
			"challenge offers no payment requirements", map[string]interface{}{
				"error": challenge.Error,
			})
	}

	// First requirement wins; the server lists preferred options first.
	requirement := challenge.Accepts[0]

	pc := x402.PaymentContext{
		Ctx:         ctx,
		Requirement: requirement,
		Resource:    challenge.Resource,
		Timestamp:   time.Now(),
	}

	abort, err := c.hooks.RunBefore(pc)
	if err != nil {
		return nil, fmt.Errorf("before-payment hook failed: %w", err)
	}
	if abort != nil {
		return nil, fmt.Errorf("payment aborted: %s", abort.Reason)
	}

	start := time.Now()
	payload, err := x402.BuildPaymentPayload(ctx, challenge.X402Version, requirement, challenge.Resource, c.signer, c.validityWindow)
	if err != nil {
		c.hooks.RunFailure(x402.PaymentFailureContext{
			PaymentContext: pc,
			Error:          err,
			Duration:       time.Since(start),
		})
		return nil, err
	}

	if err := c.hooks.RunAfter(x402.PaymentResultContext{
		PaymentContext: pc,
		Payload:        payload,
		Duration:       time.Since(start),
	}); err != nil {
		return nil, fmt.Errorf("after-payment hook failed: %w", err)
	}

	header, err := x402.EncodePaymentHeader(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build retry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set(x402.HeaderPayment, header)

	return c.httpClient.Do(req)
}

// decodeResponse consumes the terminal response: 2xx bodies decode into
// out, everything else classifies by status code.
func (c *Client) decodeResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return newStatusError(resp.StatusCode, resp.Header, body)
}

func drainAndClose(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}
