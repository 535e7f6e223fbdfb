// Package sms sends transactional text messages through a pluggable provider.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/wipay/subscriber-api/pkg/logger"
)

var internationalPattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// Provider delivers one message. Implementations must be safe for concurrent
// use.
type Provider interface {
	Send(ctx context.Context, to, message string) error
}

// Service normalizes and validates recipient numbers before delegating to the
// provider.
type Service struct {
	provider           Provider
	defaultCountryCode string
	logger             *logger.Logger
}

func NewService(provider Provider, defaultCountryCode string, logger *logger.Logger) *Service {
	return &Service{
		provider:           provider,
		defaultCountryCode: defaultCountryCode,
		logger:             logger,
	}
}

// Send normalizes the number, rejects anything that is not a plausible
// international number, and delivers. One failed send is one reported
// failure; there are no retries here.
func (s *Service) Send(ctx context.Context, to, message string) error {
	number := s.Normalize(to)
	if !internationalPattern.MatchString(number) {
		return fmt.Errorf("invalid phone number: %s", to)
	}
	if err := s.provider.Send(ctx, number, message); err != nil {
		return fmt.Errorf("sms delivery failed: %w", err)
	}
	s.logger.Debug("sms sent", "to", number)
	return nil
}

// Normalize prefixes the default country code when the number is in local
// form.
func (s *Service) Normalize(raw string) string {
	n := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	switch {
	case strings.HasPrefix(n, "+"):
		return n
	case strings.HasPrefix(n, "0"):
		return s.defaultCountryCode + n[1:]
	default:
		return s.defaultCountryCode + n
	}
}

// HTTPProvider posts messages to a gateway endpoint.
type HTTPProvider struct {
	endpoint   string
	apiKey     string
	senderID   string
	httpClient *http.Client
}

type HTTPProviderConfig struct {
	Endpoint string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPProvider{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		senderID:   cfg.SenderID,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *HTTPProvider) Send(ctx context.Context, to, message string) error {
	body, err := json.Marshal(map[string]string{
		"to":      to,
		"from":    p.senderID,
		"message": message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
