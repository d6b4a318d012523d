package access

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/quorix-labs/botlink/internal/domain"
)

// HTTPGate asks the identity service over HTTP.
type HTTPGate struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGate creates a gate against the identity service at baseURL.
func NewHTTPGate(baseURL string, timeout time.Duration) *HTTPGate {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPGate{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type checkRequest struct {
	UserID  string `json:"user_id"`
	BotID   string `json:"bot_id"`
	MinRole string `json:"min_role"`
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

// Require asks whether userID holds at least minRole on botID.
func (g *HTTPGate) Require(ctx context.Context, userID, botID string, minRole domain.Role) error {
	body, err := json.Marshal(checkRequest{UserID: userID, BotID: botID, MinRole: string(minRole)})
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToBuildRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+CheckPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToBuildRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToCallIdentity, domain.ErrExternalUnavailable)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var verdict checkResponse
		if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
			return fmt.Errorf("%s: %w", ErrMsgFailedToDecodeVerdict, domain.ErrExternalUnavailable)
		}
		if !verdict.Allowed {
			return domain.ErrAccessDenied
		}
		return nil
	case http.StatusForbidden:
		return domain.ErrAccessDenied
	case http.StatusNotFound:
		return fmt.Errorf("bot %s: %w", botID, domain.ErrNotFound)
	default:
		return fmt.Errorf("%s %d: %w", ErrMsgUnexpectedStatus, resp.StatusCode, domain.ErrExternalUnavailable)
	}
}
