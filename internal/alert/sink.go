package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/quakewatch/internal/model"
)

// NotificationTitle は重大イベント通知の固定タイトル。
const NotificationTitle = "Significant Earthquake Detected!"

// NotificationBody は通知本文 "M<マグニチュード小数1桁> - <場所>" を構築する。
// 場所が欠落している場合は "unknown location" を使用する。
func NotificationBody(ev model.Event) string {
	place := ev.Place
	if place == "" {
		place = "unknown location"
	}
	return fmt.Sprintf("M%.1f - %s", ev.MagnitudeOrZero(), place)
}

// Sink は通知要求を受け取るインターフェース。
// イベントIDごとの重複排除は呼び出し側（Detector）が行うため、
// Sinkは受け取った通知をそのまま出力する。
// 実装はプラットフォーム側の都合（通知権限の拒否等）で無効化される場合があるが、
// その場合もエラーを返さず黙ってno-opとなることが許される。
type Sink interface {
	// Name はログ用のSink識別名を返す。
	Name() string
	// Notify は1件のイベントをユーザー可視の通知として出力する。
	Notify(ctx context.Context, ev model.Event) error
}

// --- LogSink ---

// LogSink は通知を構造化ログとして出力するSink。
// 通知チャネルを持たない環境での既定の出力先。
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink はLogSinkの新しいインスタンスを生成する。
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Name はSink識別名を返す。
func (s *LogSink) Name() string { return "log" }

// Notify は通知をログレコードとして出力する。失敗モードはない。
func (s *LogSink) Notify(_ context.Context, ev model.Event) error {
	s.logger.Info("notification",
		slog.String("title", NotificationTitle),
		slog.String("body", NotificationBody(ev)),
		slog.String("event_id", ev.ID),
		slog.String("detail_url", ev.DetailURL),
	)
	return nil
}

// --- WebhookSink ---

// WebhookSink は通知をJSONペイロードとして外部WebhookへPOSTするSink。
// URLが未設定の場合はno-opとして動作する。
type WebhookSink struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookSink はWebhookSinkの新しいインスタンスを生成する。
// httpClientにはsecurity.OutboundGuardが生成するSSRF防止付きクライアントを渡す。
func NewWebhookSink(url string, httpClient *http.Client, logger *slog.Logger) *WebhookSink {
	return &WebhookSink{
		url:        url,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name はSink識別名を返す。
func (s *WebhookSink) Name() string { return "webhook" }

// webhookPayload はWebhookへ送信する通知ペイロード。
type webhookPayload struct {
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	EventID    string    `json:"event_id"`
	Magnitude  float64   `json:"magnitude"`
	Place      string    `json:"place,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	DetailURL  string    `json:"detail_url,omitempty"`
}

// Notify は通知ペイロードをWebhookへPOSTする。
// URL未設定の場合は何もせずnilを返す。
func (s *WebhookSink) Notify(ctx context.Context, ev model.Event) error {
	if s.url == "" {
		return nil
	}

	payload := webhookPayload{
		Title:      NotificationTitle,
		Body:       NotificationBody(ev),
		EventID:    ev.ID,
		Magnitude:  ev.MagnitudeOrZero(),
		Place:      ev.Place,
		OccurredAt: ev.OccurredAt,
		DetailURL:  ev.DetailURL,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ペイロードのエンコードに失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Webhook送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Webhookが異常なステータスを返しました: %d", resp.StatusCode)
	}

	return nil
}
