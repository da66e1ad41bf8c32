package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SessionRecord is the wire format for one session accounting record
type SessionRecord struct {
	SessionID           string  `json:"session_id"`
	ProjectPath         string  `json:"project_path"`
	InputTokens         int64   `json:"input_tokens"`
	OutputTokens        int64   `json:"output_tokens"`
	CacheCreationTokens int64   `json:"cache_creation_tokens"`
	CacheReadTokens     int64   `json:"cache_read_tokens"`
	EnergyWh            float64 `json:"energy_wh"`
	CO2Grams            float64 `json:"co2_grams"`
	StartedAt           string  `json:"started_at"`
}

// TokenSet is the credential refresh response
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Transport is the remote accounting service contract. Batch delivery
// is all-or-nothing per call; at most 100 records per batch.
type Transport interface {
	UploadSessions(ctx context.Context, accessToken, orgID string, records []SessionRecord) error
	ResolveOrganization(ctx context.Context, accessToken, accountID string) (string, error)
	RefreshCredentials(ctx context.Context, refreshToken string) (*TokenSet, error)
}

// Client is the HTTP implementation of Transport
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// uploadRequest is the batch upload API request body
type uploadRequest struct {
	OrganizationID string          `json:"organization_id,omitempty"`
	Records        []SessionRecord `json:"records"`
}

// apiResponse is the common API response envelope
type apiResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// NewClient creates a transport client against the given endpoint
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// UploadSessions delivers one batch of records
func (c *Client) UploadSessions(ctx context.Context, accessToken, orgID string, records []SessionRecord) error {
	body := uploadRequest{OrganizationID: orgID, Records: records}

	var resp apiResponse
	if err := c.post(ctx, "/v1/usage/batch", accessToken, body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		errMsg := resp.Error
		if errMsg == "" {
			errMsg = resp.Message
		}
		return fmt.Errorf("upload rejected: %s", errMsg)
	}
	return nil
}

// ResolveOrganization looks up the organization for an account
func (c *Client) ResolveOrganization(ctx context.Context, accessToken, accountID string) (string, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/organization", c.endpoint, accountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.OrganizationID == "" {
		return "", fmt.Errorf("no organization for account %s", accountID)
	}
	return out.OrganizationID, nil
}

// RefreshCredentials exchanges a refresh token for new tokens
func (c *Client) RefreshCredentials(ctx context.Context, refreshToken string) (*TokenSet, error) {
	body := map[string]string{"refresh_token": refreshToken}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/v1/oauth/refresh", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var tokens TokenSet
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (c *Client) post(ctx context.Context, path, accessToken string, body any, out *apiResponse) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
