// Package alert は新たに観測された重大イベントの検出と通知ディスパッチを提供する。
// 検出は表示フィルタとは無関係に、フェッチで得た生のイベント集合に対して行う。
package alert

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/quakewatch/internal/model"
)

// DefaultThreshold はアラート対象となるマグニチュードの既定閾値。
const DefaultThreshold = 5.5

// MetricsRecorder はアラート関連メトリクスの記録インターフェース。
type MetricsRecorder interface {
	RecordAlertEmitted()
}

// Detector は成功フェッチごとに新規の重大イベントを検出する。
//
// セッション中に一度通知したイベントIDは記録され、同じIDが再フェッチされても
// 二度と通知しない（記録は増える一方で期限切れはない）。
// 起動後最初の成功フェッチはベースライン確立として扱い、その時点で閾値を
// 超えているイベントは通知せずに通知済みとして記録する。
// マグニチュードが欠落したイベントは0として比較され、通知対象にならない。
type Detector struct {
	mu        sync.Mutex
	threshold float64
	alerted   map[string]struct{}
	baselined bool
	sinks     []Sink
	logger    *slog.Logger
	metrics   MetricsRecorder
}

// NewDetector はDetectorの新しいインスタンスを生成する。
// thresholdが0以下の場合はDefaultThresholdを使用する。
func NewDetector(threshold float64, sinks []Sink, logger *slog.Logger, metrics MetricsRecorder) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{
		threshold: threshold,
		alerted:   make(map[string]struct{}),
		sinks:     sinks,
		logger:    logger,
		metrics:   metrics,
	}
}

// Inspect は成功フェッチで得た生のイベント集合を検査し、
// 未通知かつ閾値以上のイベントを各Sinkへ通知する。
// Sinkの失敗はログに記録するのみで、検出処理には伝播しない。
func (d *Detector) Inspect(ctx context.Context, events []model.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.baselined {
		// 初回フェッチはベースライン確立: 既存の重大イベントを一括通知しない
		count := 0
		for _, ev := range events {
			if ev.MagnitudeOrZero() >= d.threshold {
				d.alerted[ev.ID] = struct{}{}
				count++
			}
		}
		d.baselined = true
		d.logger.Info("アラートベースラインを確立しました",
			slog.Int("event_count", len(events)),
			slog.Int("suppressed_count", count),
		)
		return
	}

	for _, ev := range events {
		if ev.MagnitudeOrZero() < d.threshold {
			continue
		}
		if _, ok := d.alerted[ev.ID]; ok {
			continue
		}

		d.alerted[ev.ID] = struct{}{}
		d.dispatch(ctx, ev)
	}
}

// dispatch は1件のイベントを全Sinkへ通知する。
func (d *Detector) dispatch(ctx context.Context, ev model.Event) {
	d.logger.Info("重大イベントを検出しました",
		slog.String("event_id", ev.ID),
		slog.Float64("magnitude", ev.MagnitudeOrZero()),
		slog.String("place", ev.Place),
	)

	if d.metrics != nil {
		d.metrics.RecordAlertEmitted()
	}

	for _, sink := range d.sinks {
		if err := sink.Notify(ctx, ev); err != nil {
			// Sinkの失敗は致命的でない（通知権限の拒否等は黙って縮退する）
			d.logger.Warn("通知の送信に失敗しました",
				slog.String("event_id", ev.ID),
				slog.String("sink", sink.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// AlertedCount は通知済みとして記録されたイベントID数を返す。
// テストおよびメトリクス用。
func (d *Detector) AlertedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.alerted)
}
