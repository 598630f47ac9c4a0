// Package sources implements the consumed ports against the surrounding CRM
// services' internal JSON APIs.
package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	batchdomain "github.com/HDZ65/crm-final-sub010/internal/batch/domain"
	"github.com/HDZ65/crm-final-sub010/internal/config"
	expeditiondomain "github.com/HDZ65/crm-final-sub010/internal/expedition/domain"
	snapshotdomain "github.com/HDZ65/crm-final-sub010/internal/snapshot/domain"
)

// Client calls the billing, directory, preference and expedition services.
type Client struct {
	http *http.Client
	cfg  config.SourcesConfig
}

// NewClient builds the shared HTTP client.
func NewClient(cfg config.Config) *Client {
	timeout := cfg.Sources.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		cfg:  cfg.Sources,
	}
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("GET %s: status %d: %s", rawURL, resp.StatusCode, body)
	}
	return true, json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postJSON(ctx context.Context, rawURL string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("POST %s: status %d: %s", rawURL, resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListDue implements batchdomain.ChargedSubscriptionSource.
func (c *Client) ListDue(ctx context.Context, orgID, legalEntityID string, batchDate time.Time) ([]batchdomain.ShipmentCandidate, error) {
	endpoint := fmt.Sprintf(
		"%s/internal/fulfillment/due?organisation_id=%s&legal_entity_id=%s&batch_date=%s",
		c.cfg.BillingBaseURL,
		url.QueryEscape(orgID),
		url.QueryEscape(legalEntityID),
		url.QueryEscape(batchDate.UTC().Format(time.RFC3339)),
	)
	var candidates []batchdomain.ShipmentCandidate
	if _, err := c.getJSON(ctx, endpoint, &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

// FindBySubscriptionID implements batchdomain.ChargedSubscriptionSource.
func (c *Client) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*batchdomain.SubscriptionDetails, error) {
	endpoint := fmt.Sprintf(
		"%s/internal/subscriptions/%s",
		c.cfg.BillingBaseURL,
		url.PathEscape(subscriptionID),
	)
	var details batchdomain.SubscriptionDetails
	found, err := c.getJSON(ctx, endpoint, &details)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &details, nil
}

// GetClientAddress implements batchdomain.AddressSource.
func (c *Client) GetClientAddress(ctx context.Context, orgID, clientID string) (*snapshotdomain.Address, error) {
	endpoint := fmt.Sprintf(
		"%s/internal/clients/%s/address?organisation_id=%s",
		c.cfg.DirectoryBaseURL,
		url.PathEscape(clientID),
		url.QueryEscape(orgID),
	)
	var address snapshotdomain.Address
	found, err := c.getJSON(ctx, endpoint, &address)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &address, nil
}

// GetSubscriptionPreferences implements batchdomain.PreferenceSource.
func (c *Client) GetSubscriptionPreferences(ctx context.Context, orgID, subscriptionID string) (map[string]any, error) {
	endpoint := fmt.Sprintf(
		"%s/internal/subscriptions/%s/preferences?organisation_id=%s",
		c.cfg.PreferenceBaseURL,
		url.PathEscape(subscriptionID),
		url.QueryEscape(orgID),
	)
	preferences := map[string]any{}
	if _, err := c.getJSON(ctx, endpoint, &preferences); err != nil {
		return nil, err
	}
	return preferences, nil
}

// CreateExpedition implements expeditiondomain.Bridge.
func (c *Client) CreateExpedition(ctx context.Context, req expeditiondomain.CreateExpeditionRequest) (*expeditiondomain.Expedition, error) {
	var exp expeditiondomain.Expedition
	if err := c.postJSON(ctx, c.cfg.ExpeditionBaseURL+"/internal/expeditions", req, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}
