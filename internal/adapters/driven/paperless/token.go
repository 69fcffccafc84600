package paperless

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

const tokenPath = "api/token/"

// tokenResponse holds the response from a token exchange.
type tokenResponse struct {
	Token string `json:"token"`
}

// ObtainToken exchanges a username and password for an API token.
func ObtainToken(ctx context.Context, baseURL, username, password string) (string, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return "", err
	}
	if username == "" || password == "" {
		return "", fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}

	data := url.Values{}
	data.Set("username", username)
	data.Set("password", password)

	endpoint := base.ResolveReference(&url.URL{Path: tokenPath}).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: DefaultTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := newAPIError(resp)
		// Bad credentials come back as 400 with a field error.
		if apiErr.StatusCode == http.StatusBadRequest {
			return "", fmt.Errorf("%w: %s", domain.ErrAuthInvalid, apiErr.Message)
		}
		return "", fmt.Errorf("token request: %w", apiErr)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if tr.Token == "" {
		return "", fmt.Errorf("%w: empty token", ErrInvalidResponse)
	}
	return tr.Token, nil
}
