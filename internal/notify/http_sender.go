package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPSender delivers codes through a provider REST API (Twilio-style
// form-encoded message create). Delivery faults are logged and reported as
// false, never raised.
type HTTPSender struct {
	providerURL string
	authToken   string
	sender      string
	emailFrom   string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewHTTPSender constructs the provider-backed sender.
func NewHTTPSender(providerURL, authToken, sender, emailFrom string, client *http.Client, logger *zap.Logger) *HTTPSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.L()
	}
	return &HTTPSender{
		providerURL: providerURL,
		authToken:   authToken,
		sender:      sender,
		emailFrom:   emailFrom,
		httpClient:  client,
		logger:      logger,
	}
}

func (s *HTTPSender) SendCode(ctx context.Context, channel Channel, destination, code string) bool {
	data := url.Values{}
	data.Set("To", destination)
	data.Set("Body", fmt.Sprintf("Your OTP is %s", code))
	switch channel {
	case ChannelEmail:
		data.Set("From", s.emailFrom)
		data.Set("Subject", "Your OTP Code")
	default:
		data.Set("From", s.sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.providerURL, strings.NewReader(data.Encode()))
	if err != nil {
		s.logger.Error("build delivery request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("code delivery request failed",
			zap.String("channel", string(channel)),
			zap.Error(err),
		)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Error("code delivery rejected by provider",
			zap.String("channel", string(channel)),
			zap.Int("status", resp.StatusCode),
		)
		return false
	}

	s.logger.Info("code delivered",
		zap.String("channel", string(channel)),
		zap.String("destination", destination),
	)
	return true
}
