package reconcile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/dmitrymomot/accountbilling/svc/account"
)

const (
	ipnVerifyPrefix = "cmd=_notify-validate&"
	ipnVerified     = "VERIFIED"
)

// IPNVerifier posts a notification back to PayPal to confirm PayPal sent it.
type IPNVerifier struct {
	client *http.Client
	url    string
}

func NewIPNVerifier(cfg IPNConfig) *IPNVerifier {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = cfg.Timeout
	return NewIPNVerifierWithClient(cfg.URL, client)
}

func NewIPNVerifierWithClient(url string, client *http.Client) *IPNVerifier {
	if url == "" {
		panic("ipn verification url cannot be empty")
	}
	if client == nil {
		client = cleanhttp.DefaultClient()
	}
	return &IPNVerifier{client: client, url: url}
}

// Verify re-posts raw, in its original encoding and order, with the
// validation command prepended. Only a body of exactly VERIFIED proves the
// notification authentic; a transport failure is returned as an error so the
// caller can retry.
func (v *IPNVerifier) Verify(ctx context.Context, raw string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, strings.NewReader(ipnVerifyPrefix+raw))
	if err != nil {
		return false, fmt.Errorf("build ipn verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "accountbilling-ipn-verifier")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: ipn verification: %w", account.ErrExternalProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return false, fmt.Errorf("%w: read ipn verification response: %w", account.ErrExternalProvider, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return false, fmt.Errorf("%w: ipn verification returned %d", account.ErrExternalProvider, resp.StatusCode)
	}
	return resp.StatusCode == http.StatusOK && string(body) == ipnVerified, nil
}
