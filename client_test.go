package repute

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reputelabs/repute-go/x402"
)

type mockSigner struct {
	address string
	calls   int
}

func (m *mockSigner) Address() string {
	return m.address
}

func (m *mockSigner) SignTypedData(
	ctx context.Context,
	domain x402.TypedDataDomain,
	types map[string][]x402.TypedDataField,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
	m.calls++
	return bytes.Repeat([]byte{0x01}, 65), nil
}

func testChallenge() x402.PaymentRequired {
	return x402.PaymentRequired{
		X402Version: 2,
		Error:       "payment required",
		Resource: &x402.ResourceInfo{
			URL:         "https://api.example.com/score",
			Description: "Trust score lookup",
			MimeType:    "application/json",
		},
		Accepts: []x402.PaymentRequirements{
			{
				Scheme:            x402.SchemeExact,
				Network:           "eip155:42220",
				Asset:             "0xAsset",
				Amount:            "1000",
				PayTo:             "0xPay",
				MaxTimeoutSeconds: 60,
				Extra: &x402.RequirementExtra{
					Name:    "USD Coin",
					Version: "2",
				},
			},
		},
	}
}

func setChallengeHeader(t *testing.T, w http.ResponseWriter, challenge x402.PaymentRequired) {
	t.Helper()
	data, err := json.Marshal(challenge)
	require.NoError(t, err)
	w.Header().Set(x402.HeaderPaymentRequired, base64.StdEncoding.EncodeToString(data))
}

func TestGetScorePaysOn402(t *testing.T) {
	challenge := testChallenge()

	var calls int
	var initialReq, retryReq *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get(x402.HeaderPayment) == "" {
			initialReq = r.Clone(context.Background())
			setChallengeHeader(t, w, challenge)
			w.WriteHeader(http.StatusPaymentRequired)
			return
		}
		retryReq = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Score{Subject: "alice", Score: 87, Found: true})
	}))
	defer server.Close()

	signer := &mockSigner{address: "0x1111111111111111111111111111111111111111"}
	client := NewClient(server.URL, WithSigner(signer))

	score, err := client.GetScore(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 87, score.Score)
	assert.Equal(t, 2, calls, "expected exactly one retry")
	assert.Equal(t, 1, signer.calls)

	require.NotNil(t, retryReq)
	assert.Empty(t, retryReq.Header.Get("Authorization"), "credential auth must be dropped on the paid retry")
	assert.Equal(t, initialReq.Header.Get(headerRequestID), retryReq.Header.Get(headerRequestID))
	assert.Equal(t, "alice", retryReq.URL.Query().Get("subject"))

	payload, err := x402.DecodePaymentHeader(retryReq.Header.Get(x402.HeaderPayment))
	require.NoError(t, err)
	assert.Equal(t, challenge.Accepts[0], payload.Accepted)
	assert.Equal(t, challenge.Resource, payload.Resource)
	assert.Equal(t, challenge.X402Version, payload.X402Version)
	assert.Equal(t, signer.address, payload.Payload.Authorization.From)
	assert.Equal(t, "0xPay", payload.Payload.Authorization.To)
	assert.Equal(t, "1000", payload.Payload.Authorization.Value)
}

func TestBearerTokenOnInitialRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Score{Subject: "alice", Score: 42, Found: true})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithBearerToken("sekrit"))

	score, err := client.GetScore(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 42, score.Score)
}

func TestPaymentRequiredWithoutSigner(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		setChallengeHeader(t, w, testChallenge())
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithBearerToken("sekrit"))

	_, err := client.GetScore(context.Background(), "alice")
	require.Error(t, err)

	var pre *PaymentRequiredError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, http.StatusPaymentRequired, pre.StatusCode)
	require.NotNil(t, pre.Challenge)
	assert.Len(t, pre.Challenge.Accepts, 1)
	assert.Equal(t, 1, calls, "no retry without a signer")
}

func TestEmptyAcceptsNoRetry(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		setChallengeHeader(t, w, x402.PaymentRequired{X402Version: 2, Error: "payments disabled"})
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	signer := &mockSigner{address: "0x1111111111111111111111111111111111111111"}
	client := NewClient(server.URL, WithSigner(signer))

	_, err := client.GetScore(context.Background(), "alice")
	require.Error(t, err)
	assert.True(t, x402.IsCode(err, x402.ErrCodeNoAcceptedPaymentMethod))
	assert.Equal(t, 1, calls)
	assert.Zero(t, signer.calls, "signer must not be invoked for an empty challenge")
}

func TestMissingChallengeHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	signer := &mockSigner{address: "0x1111111111111111111111111111111111111111"}
	client := NewClient(server.URL, WithSigner(signer))

	_, err := client.GetScore(context.Background(), "alice")
	require.Error(t, err)
	assert.True(t, x402.IsCode(err, x402.ErrCodeMissingChallenge))
	assert.Zero(t, signer.calls)
}

func TestSecondPaymentRequiredIsTerminal(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		setChallengeHeader(t, w, testChallenge())
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	signer := &mockSigner{address: "0x1111111111111111111111111111111111111111"}
	client := NewClient(server.URL, WithSigner(signer))

	_, err := client.GetScore(context.Background(), "alice")
	require.Error(t, err)

	var pre *PaymentRequiredError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, 2, calls, "a rejected payment must not trigger another retry")
	assert.Equal(t, 1, signer.calls)
}

func TestBeforePaymentHookAbort(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		setChallengeHeader(t, w, testChallenge())
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	signer := &mockSigner{address: "0x1111111111111111111111111111111111111111"}
	client := NewClient(server.URL,
		WithSigner(signer),
		WithPaymentHooks(x402.Hooks{
			Before: []x402.BeforePaymentHook{
				func(pc x402.PaymentContext) (*x402.BeforeHookResult, error) {
					return &x402.BeforeHookResult{Abort: true, Reason: "amount over budget"}, nil
				},
			},
		}),
	)

	_, err := client.GetScore(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount over budget")
	assert.Equal(t, 1, calls)
	assert.Zero(t, signer.calls, "aborted payments must not reach the signer")
}

func TestAfterPaymentHookObservesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(x402.HeaderPayment) == "" {
			setChallengeHeader(t, w, testChallenge())
			w.WriteHeader(http.StatusPaymentRequired)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Score{Subject: "alice", Score: 87, Found: true})
	}))
	defer server.Close()

	signer := &mockSigner{address: "0x1111111111111111111111111111111111111111"}

	var observed []x402.PaymentResultContext
	client := NewClient(server.URL,
		WithSigner(signer),
		WithPaymentHooks(x402.Hooks{
			After: []x402.AfterPaymentHook{
				func(rc x402.PaymentResultContext) error {
					observed = append(observed, rc)
					return nil
				},
			},
		}),
	)

	_, err := client.GetScore(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, observed, 1)
	assert.Equal(t, "0xPay", observed[0].Payload.Payload.Authorization.To)
	assert.Equal(t, "eip155:42220", string(observed[0].Requirement.Network))
}

func TestGetTopSubjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/top", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]RankedSubject{
			{Subject: "alice", Score: 99, Followers: 1200},
			{Subject: "bob", Score: 95, Followers: 800},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	top, err := client.GetTopSubjects(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "alice", top[0].Subject)
}

func TestGetPersonalizedScoreQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/personalized", r.URL.Path)
		assert.Equal(t, "alice", r.URL.Query().Get("viewer"))
		assert.Equal(t, "bob", r.URL.Query().Get("target"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(PersonalizedScore{Viewer: "alice", Target: "bob", Score: 61})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	score, err := client.GetPersonalizedScore(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, 61, score.Score)
}
