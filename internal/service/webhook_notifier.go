package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"siteclock/internal/reconcile"
)

// AnomalyAlert is the webhook body sent when reconciliation finds invalid sessions
type AnomalyAlert struct {
	Kind        string              `json:"kind"`
	Period      string              `json:"period"`
	Count       int                 `json:"count"`
	Anomalies   []reconcile.Session `json:"anomalies"`
	GeneratedAt time.Time           `json:"generatedAt"`
}

// WebhookNotifier posts anomaly alerts to an external endpoint
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookNotifier{httpClient: client, url: url, logger: logger}
}

// Enabled reports whether a webhook URL is configured
func (n *WebhookNotifier) Enabled() bool {
	return n != nil && n.url != ""
}

// NotifyAnomalies is a no-op without a URL or without anomalies
func (n *WebhookNotifier) NotifyAnomalies(ctx context.Context, period string, anomalies []reconcile.Session) error {
	if !n.Enabled() || len(anomalies) == 0 {
		return nil
	}
	alert := AnomalyAlert{
		Kind:        "attendance.anomalies",
		Period:      period,
		Count:       len(anomalies),
		Anomalies:   anomalies,
		GeneratedAt: time.Now(),
	}

	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(alert).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post anomaly alert: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("anomaly webhook returned status %d", resp.StatusCode())
	}

	n.logger.Info("Anomaly alert sent",
		zap.String("period", period),
		zap.Int("count", len(anomalies)),
		zap.Int("status", resp.StatusCode()),
	)
	return nil
}
