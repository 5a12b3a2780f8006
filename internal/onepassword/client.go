package onepassword

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/systmms/secretsync/internal/secrets"
)

// DefaultTimeout bounds each Connect request.
const DefaultTimeout = 30 * time.Second

type connectVault struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type connectItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type connectSection struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type connectField struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Value   string `json:"value"`
	Section *struct {
		ID string `json:"id"`
	} `json:"section,omitempty"`
}

type connectItemDetail struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Sections []connectSection `json:"sections"`
	Fields   []connectField   `json:"fields"`
}

// fieldValues maps field labels to values, ignoring sectioned fields.
func (i *connectItemDetail) fieldValues() map[string]string {
	values := make(map[string]string, len(i.Fields))
	for _, field := range i.Fields {
		if field.Section != nil || field.Label == "" {
			continue
		}
		values[field.Label] = field.Value
	}
	return values
}

// pullSecret reads registry credentials out of a pull-secret item. Each
// section is one registry: the section label is the registry host and
// its username/password/email fields are the credential.
func (i *connectItemDetail) pullSecret() *secrets.PullSecret {
	labels := make(map[string]string, len(i.Sections))
	for _, section := range i.Sections {
		labels[section.ID] = section.Label
	}

	registries := make(map[string]secrets.RegistryCredential)
	for _, field := range i.Fields {
		if field.Section == nil {
			continue
		}
		registry := labels[field.Section.ID]
		if registry == "" {
			continue
		}
		credential := registries[registry]
		switch field.Label {
		case "username":
			credential.Username = field.Value
		case "password":
			credential.Password = secrets.NewValue(field.Value)
		case "email":
			credential.Email = field.Value
		}
		registries[registry] = credential
	}

	if len(registries) == 0 {
		return nil
	}
	return &secrets.PullSecret{Registries: registries}
}

func (c *Client) listVaults(ctx context.Context) ([]connectVault, error) {
	filter := url.QueryEscape(fmt.Sprintf("title eq %q", c.config.VaultTitle))
	var vaults []connectVault
	if err := c.get(ctx, "/v1/vaults?filter="+filter, &vaults); err != nil {
		return nil, err
	}
	return vaults, nil
}

func (c *Client) listItems(ctx context.Context, vaultID string) ([]connectItem, error) {
	var items []connectItem
	if err := c.get(ctx, "/v1/vaults/"+vaultID+"/items", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) getItem(ctx context.Context, vaultID, itemID string) (*connectItemDetail, error) {
	var item connectItemDetail
	if err := c.get(ctx, "/v1/vaults/"+vaultID+"/items/"+itemID, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// get executes one Connect API request. The token is decrypted only
// for the duration of the request.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	url := strings.TrimSuffix(c.config.ConnectURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	var body []byte
	err = c.token.Use(func(plaintext []byte) error {
		req.Header.Set("Authorization", "Bearer "+string(plaintext))
		client := &http.Client{Timeout: DefaultTimeout}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to make request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode != 200 {
			return fmt.Errorf("connect server returned status %d: %s", resp.StatusCode, body)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
