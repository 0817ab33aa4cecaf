// Package reminder sends outbound customer and staff notices over SMS and
// LINE Notify, either on a cron schedule or on demand.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/erazemk/zastavljalnica/internal/config"
)

// Channel delivers one text message to one address.
type Channel interface {
	Send(ctx context.Context, address, message string) error
}

// SMSChannel posts messages to an HTTP SMS gateway as a form.
type SMSChannel struct {
	client   *resty.Client
	url      string
	username string
	password string
	sender   string
}

// NewSMSChannel builds an SMS channel from configuration.
func NewSMSChannel(cfg config.SMSConfig) *SMSChannel {
	client := resty.New().
		SetHeader("Accept", "application/json").
		SetTimeout(15 * time.Second)

	return &SMSChannel{
		client:   client,
		url:      cfg.URL,
		username: cfg.Username,
		password: cfg.Password,
		sender:   cfg.Sender,
	}
}

// Send posts message to the phone number in address.
func (c *SMSChannel) Send(ctx context.Context, address, message string) error {
	if strings.TrimSpace(address) == "" {
		return errors.New("sms recipient is empty")
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": c.username,
			"password": c.password,
			"from":     c.sender,
			"to":       address,
			"message":  message,
		}).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("sending sms: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// LineChannel posts messages to a LINE Notify endpoint. The token decides the
// destination, so address is ignored.
type LineChannel struct {
	client *resty.Client
	url    string
}

// NewLineChannel builds a LINE Notify channel. It reports false when no token
// is configured.
func NewLineChannel(cfg config.LineConfig) (*LineChannel, bool) {
	if cfg.Token == "" {
		return nil, false
	}

	client := resty.New().
		SetAuthToken(cfg.Token).
		SetTimeout(15 * time.Second)

	return &LineChannel{client: client, url: cfg.URL}, true
}

// Send posts message to the configured LINE Notify token.
func (c *LineChannel) Send(ctx context.Context, _ string, message string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"message": message}).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("sending line notice: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("line notify returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
