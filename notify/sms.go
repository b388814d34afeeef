package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-otp-auth/verification"
)

// SMSChannel posts messages to an HTTP SMS gateway as a form.
type SMSChannel struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

var _ Channel = (*SMSChannel)(nil)

func NewSMSChannel(endpoint, apiKey, from string) *SMSChannel {
	return &SMSChannel{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SMSChannel) Deliver(ctx context.Context, identifier string, _ verification.Kind, code string) error {
	form := url.Values{}
	form.Set("to", identifier)
	form.Set("from", c.from)
	form.Set("message", messageText(code))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("SMSChannel.Deliver: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("SMSChannel.Deliver: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("SMSChannel.Deliver: gateway returned %d", resp.StatusCode)
	}
	return nil
}
