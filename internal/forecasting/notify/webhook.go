package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"genfleet-cloud/internal/auth"
)

const eventForecastAlert = "forecast.alert"

// Message is one alert ready for delivery: the structured finding plus the
// operator-facing text rendered from the template.
type Message struct {
	Alert      Alert
	AsOf       time.Time
	Suggestion string
	Text       string
}

// Channel delivers alert messages.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// alertPayload is the JSON body posted to the alert webhook.
type alertPayload struct {
	Event         string `json:"event"`
	Key           string `json:"key"`
	Category      string `json:"category"`
	CategoryLabel string `json:"category_label"`
	Grid          string `json:"grid"`
	Subject       string `json:"subject,omitempty"`
	RiskLevel     string `json:"risk_level"`
	Detail        string `json:"detail"`
	AsOf          string `json:"as_of"`
	Suggestion    string `json:"suggestion,omitempty"`
	Text          string `json:"text"`
}

func newAlertPayload(msg Message) alertPayload {
	a := msg.Alert
	return alertPayload{
		Event:         eventForecastAlert,
		Key:           a.Key(),
		Category:      a.Category,
		CategoryLabel: categoryLabel(a.Category),
		Grid:          a.Grid,
		Subject:       a.Subject,
		RiskLevel:     a.RiskLevel,
		Detail:        a.Detail,
		AsOf:          msg.AsOf.Format("2006-01-02"),
		Suggestion:    msg.Suggestion,
		Text:          msg.Text,
	}
}

// WebhookChannel posts forecast alerts as JSON. When a secret is set the body
// is signed the same way machine uploads are: X-Alert-Signature carries hex
// HMAC-SHA256 over "<X-Alert-Timestamp>\n<body>".
type WebhookChannel struct {
	url    string
	secret []byte
	client *http.Client
	now    func() time.Time
}

// WebhookOption configures the webhook channel.
type WebhookOption func(*WebhookChannel)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(ch *WebhookChannel) {
		if client != nil {
			ch.client = client
		}
	}
}

// WithSigningSecret signs every delivery with secret.
func WithSigningSecret(secret string) WebhookOption {
	return func(ch *WebhookChannel) {
		if secret != "" {
			ch.secret = []byte(secret)
		}
	}
}

// NewWebhookChannel constructs a webhook channel.
func NewWebhookChannel(url string, opts ...WebhookOption) (*WebhookChannel, error) {
	if url == "" {
		return nil, errors.New("webhook channel: empty url")
	}
	channel := &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(channel)
	}
	return channel, nil
}

// Send posts one alert. X-Alert-Key lets receivers drop redeliveries.
func (w *WebhookChannel) Send(ctx context.Context, msg Message) error {
	if w == nil || w.url == "" {
		return errors.New("webhook channel: empty url")
	}
	body, err := json.Marshal(newAlertPayload(msg))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Alert-Key", msg.Alert.Key())
	if len(w.secret) > 0 {
		ts := strconv.FormatInt(w.now().Unix(), 10)
		req.Header.Set("X-Alert-Timestamp", ts)
		req.Header.Set("X-Alert-Signature", auth.SignUpload(w.secret, ts, body))
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook channel: alert %s got status %d", msg.Alert.Key(), resp.StatusCode)
	}
	return nil
}
