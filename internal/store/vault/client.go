package vault

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/systmms/secretsync/internal/secrets"
	"github.com/systmms/secretsync/internal/store"
)

// DefaultTimeout bounds each Vault request.
const DefaultTimeout = 30 * time.Second

func (c *Client) dataPath(application string) string {
	return c.config.Mount + "/data/" + strings.TrimSuffix(c.config.Path, "/") + "/" + application
}

func (c *Client) metadataPath(application string) string {
	return c.config.Mount + "/metadata/" + strings.TrimSuffix(c.config.Path, "/") + "/" + application
}

// listApplications lists the application names under the environment
// prefix. A missing prefix is an empty environment, not an error.
func (c *Client) listApplications(ctx context.Context) ([]string, error) {
	path := c.config.Mount + "/metadata/" + strings.TrimSuffix(c.config.Path, "/")
	status, body, err := c.do(ctx, "LIST", path, nil)
	if err != nil {
		return nil, &store.Error{Op: "list", Err: err}
	}
	if status == 404 {
		return nil, nil
	}
	if status != 200 {
		return nil, &store.Error{Op: "list", Err: fmt.Errorf("vault returned status %d: %s", status, body)}
	}

	var response struct {
		Data struct {
			Keys []string `json:"keys"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &store.Error{Op: "list", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return response.Data.Keys, nil
}

// readApplication reads one application's key map. Returns nil for an
// absent entry.
func (c *Client) readApplication(ctx context.Context, application string) (map[string]secrets.Value, error) {
	status, body, err := c.do(ctx, "GET", c.dataPath(application), nil)
	if err != nil {
		return nil, &store.Error{Op: "read", Application: application, Err: err}
	}
	if status == 404 {
		return nil, nil
	}
	if status != 200 {
		return nil, &store.Error{Op: "read", Application: application,
			Err: fmt.Errorf("vault returned status %d: %s", status, body)}
	}

	var response struct {
		Data struct {
			Data map[string]string `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &store.Error{Op: "read", Application: application,
			Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	values := make(map[string]secrets.Value, len(response.Data.Data))
	for key, raw := range response.Data.Data {
		values[key] = secrets.NewValue(raw)
	}
	return values, nil
}

// do executes one Vault API request. The token is decrypted only for
// the duration of the request.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	url := strings.TrimSuffix(c.config.Address, "/") + "/v1/" + strings.TrimPrefix(path, "/")

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var status int
	var responseBody []byte
	err = c.token.Use(func(plaintext []byte) error {
		req.Header.Set("X-Vault-Token", string(plaintext))
		resp, err := c.httpClient().Do(req)
		if err != nil {
			return fmt.Errorf("failed to make request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		status = resp.StatusCode
		responseBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return status, responseBody, nil
}

// httpClient creates an HTTP client with appropriate TLS settings
func (c *Client) httpClient() *http.Client {
	client := &http.Client{Timeout: DefaultTimeout}
	if c.config.TLSSkip {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client
}
