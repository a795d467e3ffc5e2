// Package directory implements the gateway adapter for the national key
// directory (DICT). It is the only component that talks to the directory;
// everything else sees the ports.DirectoryGateway interface and the
// transient/rejected error split from errors.go.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chaveiro/internal/keys/models"
	"chaveiro/internal/platform/metrics"
)

var tracer = otel.Tracer("chaveiro/internal/directory")

// Gateway is an HTTP JSON client for the directory API. Every request
// carries a short-lived HS256 bearer token identifying the participant.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	signingKey []byte
	ispb       string
	tokenTTL   time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default HTTP client (tests use this to point
// at an httptest server with aggressive timeouts).
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// WithMetrics records per-operation latency on the gateway histogram.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithClock sets the time source for token issuance.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// New builds a directory gateway. The request timeout doubles as the upper
// bound on how long a state transition blocks on the directory.
func New(baseURL, ispb string, signingKey []byte, timeout time.Duration, logger *slog.Logger, opts ...Option) (*Gateway, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("directory base URL is required")
	}
	if ispb == "" {
		return nil, fmt.Errorf("participant ISPB is required")
	}
	if len(signingKey) == 0 {
		return nil, fmt.Errorf("signing key is required")
	}
	g := &Gateway{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		signingKey: signingKey,
		ispb:       ispb,
		tokenTTL:   2 * time.Minute,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

type claimPayload struct {
	ID                 string    `json:"id"`
	KeyValue           string    `json:"key"`
	Type               string    `json:"type"`
	Status             string    `json:"status"`
	DonorISPB          string    `json:"donor_ispb"`
	ClaimerISPB        string    `json:"claimer_ispb"`
	ResolutionDeadline time.Time `json:"resolution_deadline"`
	ModifiedAt         time.Time `json:"modified_at"`
}

func (p claimPayload) toModel() *models.Claim {
	return &models.Claim{
		ID:                  p.ID,
		KeyValue:            p.KeyValue,
		Type:                models.ClaimType(p.Type),
		Status:              models.ClaimStatus(p.Status),
		DonorISPB:           p.DonorISPB,
		ClaimerISPB:         p.ClaimerISPB,
		ResolutionDeadline:  p.ResolutionDeadline,
		DirectoryModifiedAt: p.ModifiedAt,
	}
}

type rejectionPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateEntry registers the key value with the directory.
func (g *Gateway) CreateEntry(ctx context.Context, key *models.Key, participantISPB string) error {
	body := map[string]string{
		"key":         key.KeyValue,
		"key_type":    string(key.KeyType),
		"account":     key.AccountID,
		"participant": participantISPB,
	}
	return g.do(ctx, "create-entry", http.MethodPost, "/entries", body, nil)
}

// DeleteEntry removes the key value from the directory.
func (g *Gateway) DeleteEntry(ctx context.Context, keyValue string, participantISPB string) error {
	path := "/entries/" + url.PathEscape(keyValue) + "?participant=" + url.QueryEscape(participantISPB)
	return g.do(ctx, "delete-entry", http.MethodDelete, path, nil, nil)
}

// CreateClaim opens a claim for the key value.
func (g *Gateway) CreateClaim(ctx context.Context, claimType models.ClaimType, keyValue string, participantISPB string) (*models.Claim, error) {
	body := map[string]string{
		"type":        string(claimType),
		"key":         keyValue,
		"participant": participantISPB,
	}
	var out claimPayload
	if err := g.do(ctx, "create-claim", http.MethodPost, "/claims", body, &out); err != nil {
		return nil, err
	}
	return out.toModel(), nil
}

// ConfirmClaim confirms the claim on the directory side.
func (g *Gateway) ConfirmClaim(ctx context.Context, claimID string) (models.ClaimStatus, time.Time, error) {
	var out struct {
		Status     string    `json:"status"`
		ResolvedAt time.Time `json:"resolved_at"`
	}
	path := "/claims/" + url.PathEscape(claimID) + "/confirm"
	if err := g.do(ctx, "confirm-claim", http.MethodPost, path, nil, &out); err != nil {
		return "", time.Time{}, err
	}
	return models.ClaimStatus(out.Status), out.ResolvedAt, nil
}

// CancelClaim cancels the claim, mapping the local reason to the directory's
// cancellation code.
func (g *Gateway) CancelClaim(ctx context.Context, claimID string, reason models.ClaimReason) (models.ClaimStatus, error) {
	var out struct {
		Status string `json:"status"`
	}
	body := map[string]string{"reason": cancelCode(reason)}
	path := "/claims/" + url.PathEscape(claimID) + "/cancel"
	if err := g.do(ctx, "cancel-claim", http.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	return models.ClaimStatus(out.Status), nil
}

// ListClaims pages through claims involving the issuer modified within the
// lookback window.
func (g *Gateway) ListClaims(ctx context.Context, issuerISPB string, pageSize int, lookbackDays int, pageToken string) ([]*models.Claim, string, error) {
	q := url.Values{}
	q.Set("issuer", issuerISPB)
	q.Set("page_size", strconv.Itoa(pageSize))
	q.Set("lookback_days", strconv.Itoa(lookbackDays))
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}
	var out struct {
		Claims        []claimPayload `json:"claims"`
		NextPageToken string         `json:"next_page_token"`
	}
	if err := g.do(ctx, "list-claims", http.MethodGet, "/claims?"+q.Encode(), nil, &out); err != nil {
		return nil, "", err
	}
	claims := make([]*models.Claim, 0, len(out.Claims))
	for _, p := range out.Claims {
		claims = append(claims, p.toModel())
	}
	return claims, out.NextPageToken, nil
}

// cancelCode maps local claim reasons to the directory's cancellation codes.
func cancelCode(reason models.ClaimReason) string {
	switch reason {
	case models.ReasonUserRequested:
		return "USER_REQUESTED"
	case models.ReasonFraud:
		return "FRAUD"
	case models.ReasonAccountClosure:
		return "ACCOUNT_CLOSURE"
	default:
		return "DEFAULT_OPERATION"
	}
}

// do issues one request, classifying failures into TransientError (network,
// timeout, 5xx) or RejectedError (4xx with a directory error body).
func (g *Gateway) do(ctx context.Context, op, method, path string, body any, out any) error {
	ctx, span := tracer.Start(ctx, "directory."+op, trace.WithAttributes(
		attribute.String("directory.op", op),
	))
	defer span.End()
	if g.metrics != nil {
		timer := prometheus.NewTimer(g.metrics.GatewayLatency.WithLabelValues(op))
		defer timer.ObserveDuration()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := g.bearerToken()
	if err != nil {
		return fmt.Errorf("sign %s token: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransientError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var rejection rejectionPayload
		if err := json.NewDecoder(resp.Body).Decode(&rejection); err != nil || rejection.Code == "" {
			rejection.Code = http.StatusText(resp.StatusCode)
		}
		if g.logger != nil {
			g.logger.WarnContext(ctx, "directory rejected request",
				"op", op, "status", resp.StatusCode, "code", rejection.Code)
		}
		span.SetAttributes(attribute.String("directory.rejection", rejection.Code))
		return &RejectedError{Op: op, StatusCode: resp.StatusCode, Code: rejection.Code, Message: rejection.Message}
	default:
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		return &TransientError{Op: op, StatusCode: resp.StatusCode}
	}
}

// bearerToken signs a short-lived participant token for the directory.
func (g *Gateway) bearerToken() (string, error) {
	now := g.now()
	claims := jwt.MapClaims{
		"iss": g.ispb,
		"iat": now.Unix(),
		"exp": now.Add(g.tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.signingKey)
}

// IsTransient reports whether err should go through the retry router.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsRejected reports whether err is a permanent directory rejection and, if
// so, returns it.
func IsRejected(err error) (*RejectedError, bool) {
	var r *RejectedError
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
