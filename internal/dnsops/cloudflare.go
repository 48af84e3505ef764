package dnsops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const cloudflareAPIBase = "https://api.cloudflare.com/client/v4"

// CloudflareProvider manages DNS records through the Cloudflare API.
type CloudflareProvider struct {
	apiToken string
	zoneID   string
	target   string
	client   *http.Client
	log      *zap.Logger
}

// NewCloudflareProvider creates a Cloudflare DNS provider.
func NewCloudflareProvider(apiToken, zoneID, target string, log *zap.Logger) *CloudflareProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &CloudflareProvider{
		apiToken: apiToken,
		zoneID:   zoneID,
		target:   target,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
}

type dnsRecordRequest struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Proxied bool   `json:"proxied"`
	TTL     int    `json:"ttl"`
}

// EnsureSubdomain creates a proxied CNAME routing the subdomain to the
// platform edge.
func (p *CloudflareProvider) EnsureSubdomain(ctx context.Context, subdomain string) error {
	return p.createRecord(ctx, dnsRecordRequest{
		Type:    "CNAME",
		Name:    subdomain,
		Content: p.target,
		Proxied: true,
		TTL:     1, // automatic
	})
}

// EnsureCustomDomain creates a CNAME for a merchant-owned hostname.
func (p *CloudflareProvider) EnsureCustomDomain(ctx context.Context, host string) error {
	return p.createRecord(ctx, dnsRecordRequest{
		Type:    "CNAME",
		Name:    host,
		Content: p.target,
		Proxied: true,
		TTL:     1,
	})
}

// RemoveSubdomain deletes the record for a subdomain.
func (p *CloudflareProvider) RemoveSubdomain(ctx context.Context, subdomain string) error {
	url := fmt.Sprintf("%s/zones/%s/dns_records?type=CNAME&name=%s", cloudflareAPIBase, p.zoneID, subdomain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("list dns records: %w", err)
	}
	defer resp.Body.Close()

	var listResp struct {
		Success bool `json:"success"`
		Result  []struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return fmt.Errorf("decode dns record list: %w", err)
	}

	for _, rec := range listResp.Result {
		delURL := fmt.Sprintf("%s/zones/%s/dns_records/%s", cloudflareAPIBase, p.zoneID, rec.ID)
		delReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, delURL, nil)
		if err != nil {
			return err
		}
		p.authorize(delReq)
		delResp, err := p.client.Do(delReq)
		if err != nil {
			return fmt.Errorf("delete dns record %s: %w", rec.ID, err)
		}
		io.Copy(io.Discard, delResp.Body)
		delResp.Body.Close()
	}
	return nil
}

func (p *CloudflareProvider) createRecord(ctx context.Context, record dnsRecordRequest) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/zones/%s/dns_records", cloudflareAPIBase, p.zoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	p.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("create dns record %s: %w", record.Name, err)
	}
	defer resp.Body.Close()

	var apiResp struct {
		Success bool `json:"success"`
		Errors  []struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("decode dns response for %s: %w", record.Name, err)
	}
	if !apiResp.Success {
		// 81057 is "record already exists", which is the ensured state.
		for _, e := range apiResp.Errors {
			if e.Code == 81057 {
				return nil
			}
		}
		p.log.Warn("cloudflare record creation failed",
			zap.String("name", record.Name),
			zap.Any("errors", apiResp.Errors))
		return fmt.Errorf("create dns record %s: cloudflare returned failure", record.Name)
	}
	return nil
}

func (p *CloudflareProvider) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.apiToken)
}
