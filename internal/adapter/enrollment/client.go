package enrollment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"coursepay/config"
	"coursepay/internal/core/domain"
	"coursepay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// accessRequest is the JSON body sent to the enrollment service.
type accessRequest struct {
	UserID    string `json:"user_id"`
	ItemID    string `json:"item_id"`
	ItemType  string `json:"item_type"`
	Action    string `json:"action"` // "grant" or "revoke"
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// Client implements ports.AccessGranter against the external enrollment
// service. Requests are HMAC-signed with the shared secret. The
// enrollment side treats grant and revoke as idempotent, so retries and
// settlement replays are safe.
type Client struct {
	baseURL    string
	secret     string
	sigSvc     ports.SignatureService
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates an enrollment client.
func NewClient(cfg config.EnrollmentConfig, sigSvc ports.SignatureService, httpClient HTTPClient, log zerolog.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		secret:     cfg.Secret,
		sigSvc:     sigSvc,
		httpClient: httpClient,
		log:        log,
	}
}

// GrantAccess notifies the enrollment service that a user may access an
// item.
func (c *Client) GrantAccess(ctx context.Context, userID, itemID uuid.UUID, itemType domain.PaymentItemType) error {
	return c.post(ctx, "grant", userID, itemID, itemType)
}

// RevokeAccess withdraws a previously granted access.
func (c *Client) RevokeAccess(ctx context.Context, userID, itemID uuid.UUID, itemType domain.PaymentItemType) error {
	return c.post(ctx, "revoke", userID, itemID, itemType)
}

func (c *Client) post(ctx context.Context, action string, userID, itemID uuid.UUID, itemType domain.PaymentItemType) error {
	body := accessRequest{
		UserID:    userID.String(),
		ItemID:    itemID.String(),
		ItemType:  string(itemType),
		Action:    action,
		Timestamp: time.Now().Unix(),
	}

	unsigned, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal access request: %w", err)
	}
	body.Signature = c.sigSvc.Sign(c.secret, string(unsigned))

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal access request: %w", err)
	}

	url := c.baseURL + "/internal/v1/access"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create access request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("enrollment %s call: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("enrollment %s returned status %d", action, resp.StatusCode)
	}

	c.log.Info().
		Str("action", action).
		Str("user_id", userID.String()).
		Str("item_id", itemID.String()).
		Str("item_type", string(itemType)).
		Msg("enrollment access updated")

	return nil
}
