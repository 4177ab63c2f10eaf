// Package refresh は地震フィードの定期・手動リフレッシュサイクルを駆動する。
// スケジューラ、同時フェッチの排他制御、リトライ/バックオフ戦略を含む。
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/quakewatch/internal/model"
	"github.com/hitoshi/quakewatch/internal/timewindow"
)

// FeedFetcher はフィードへの1回のクエリ実行インターフェース。
type FeedFetcher interface {
	Fetch(ctx context.Context, minMagnitude float64, bounds model.RegionBounds, window timewindow.Window) ([]model.Event, error)
}

// StateStore はスケジューラが必要とするストア操作のインターフェース。
type StateStore interface {
	// MarkInFlight はフェッチ開始を記録する。
	MarkInFlight(at time.Time)
	// ApplyFetchResult はフェッチ結果をスナップショットに反映する。
	ApplyFetchResult(events []model.Event, fetchErr error, at time.Time)
	// Criteria は現在の検索条件を返す。
	Criteria() model.QueryCriteria
}

// AlertInspector は成功フェッチ後のアラート検出インターフェース。
type AlertInspector interface {
	Inspect(ctx context.Context, events []model.Event)
}

// MetricsRecorder はフェッチサイクルのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordFetchSuccess()
	RecordFetchFailure()
	RecordFetchLatency(duration time.Duration)
	RecordSnapshotSize(count int)
	RecordRefreshCoalesced()
}

// Config はSchedulerの動作設定を保持する。
type Config struct {
	// Interval は定期リフレッシュの間隔。手動リフレッシュでリセットされない。
	Interval time.Duration
	// FetchTimeout は1回のフェッチに許容する時間。
	FetchTimeout time.Duration
	// Bounds は固定クエリ領域。
	Bounds model.RegionBounds
}

// Scheduler は定期ティッカーと手動要求からフェッチサイクルを駆動する。
//
// 不変条件: 実行中のフェッチは常に高々1つ。
// 実行中に到着したリフレッシュ要求はpendingフラグに合流（コアレス）され、
// 実行中のフェッチ完了直後に1回だけ追加フェッチを実行する。
// 複数の要求が実行中に到着しても追加フェッチは1回に畳み込まれる。
//
// 世代カウンタにより、破棄されたフェッチの遅延応答が新しい状態を
// 上書きすることはない。コンテキストのキャンセルで定期ティッカーは停止し、
// 未完了のフェッチは結果を破棄して放棄される（キャンセル後の状態変更はない）。
type Scheduler struct {
	fetcher  FeedFetcher
	store    StateStore
	detector AlertInspector
	logger   *slog.Logger
	metrics  MetricsRecorder
	config   Config

	requests chan struct{}

	mu                sync.Mutex
	closed            bool
	inFlight          bool
	pending           bool
	generation        uint64
	consecutiveErrors int
	retryTimer        *time.Timer
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// Intervalが0以下の場合はデフォルト値5分、FetchTimeoutが0以下の場合は10秒を使用する。
func NewScheduler(
	fetcher FeedFetcher,
	store StateStore,
	detector AlertInspector,
	logger *slog.Logger,
	metrics MetricsRecorder,
	config Config,
) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = 10 * time.Second
	}
	return &Scheduler{
		fetcher:  fetcher,
		store:    store,
		detector: detector,
		logger:   logger,
		metrics:  metrics,
		config:   config,
		requests: make(chan struct{}, 1),
	}
}

// Start は定期ティッカーでスケジューラを起動する。
// 起動直後に1回フェッチを実行し、以降はティッカーと手動要求で駆動する。
// コンテキストがキャンセルされるまで実行を継続する（ブロッキング呼び出し）。
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Info("リフレッシュスケジューラを開始しました",
		slog.Duration("interval", s.config.Interval),
		slog.Duration("fetch_timeout", s.config.FetchTimeout),
	)

	// 起動直後に1回実行
	s.startFetch(ctx)

	for {
		select {
		case <-ctx.Done():
			s.teardown()
			s.logger.Info("リフレッシュスケジューラを停止しました")
			return
		case <-ticker.C:
			s.startFetch(ctx)
		case <-s.requests:
			s.startFetch(ctx)
		}
	}
}

// RequestRefresh は手動リフレッシュを要求する。非ブロッキング。
// フェッチ実行中に呼ばれた場合は完了直後の追加フェッチ1回に合流される。
// 既に追加フェッチが予約済みの場合も同じ1回に畳み込まれる。
func (s *Scheduler) RequestRefresh() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.inFlight {
		if !s.pending {
			s.pending = true
		}
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordRefreshCoalesced()
		}
		s.logger.Info("実行中のフェッチにリフレッシュ要求を合流しました")
		return
	}
	s.mu.Unlock()

	// 実行中でなければ要求キューへ（バッファ1、満杯なら既に要求済み）
	select {
	case s.requests <- struct{}{}:
	default:
	}
}

// startFetch はフェッチを1回開始する。実行中の場合はpendingに合流する。
func (s *Scheduler) startFetch(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.inFlight {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	go s.doFetch(ctx, gen)
}

// doFetch は1回のフェッチサイクルを実行する。
func (s *Scheduler) doFetch(ctx context.Context, gen uint64) {
	start := time.Now()
	s.store.MarkInFlight(start)

	criteria := s.store.Criteria()
	window := timewindow.Calculate(criteria.TimeRange, start)

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	events, err := s.fetcher.Fetch(fetchCtx, criteria.MinMagnitude, s.config.Bounds, window)
	s.completeFetch(ctx, gen, events, err, time.Since(start))
}

// completeFetch はフェッチ結果を状態へ反映し、合流済みの追加フェッチを起動する。
// ティアダウン後・世代の古い結果は破棄し、一切の状態変更を行わない。
func (s *Scheduler) completeFetch(ctx context.Context, gen uint64, events []model.Event, fetchErr error, duration time.Duration) {
	s.mu.Lock()
	if s.closed || ctx.Err() != nil || gen != s.generation {
		s.mu.Unlock()
		s.logger.Info("破棄されたフェッチの結果を無視します",
			slog.Uint64("generation", gen),
		)
		return
	}
	s.inFlight = false
	hadPending := s.pending
	s.pending = false

	if fetchErr != nil {
		s.consecutiveErrors++
		delay := CalculateBackoff(s.consecutiveErrors - 1)
		s.scheduleRetryLocked(delay)
		s.mu.Unlock()

		s.store.ApplyFetchResult(nil, fetchErr, time.Now())
		if s.metrics != nil {
			s.metrics.RecordFetchFailure()
			s.metrics.RecordFetchLatency(duration)
		}
		s.logger.Error("フェッチサイクルが失敗しました",
			slog.String("error", fetchErr.Error()),
			slog.Duration("retry_in", delay),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
	} else {
		s.consecutiveErrors = 0
		s.stopRetryLocked()
		s.mu.Unlock()

		s.store.ApplyFetchResult(events, nil, time.Now())
		s.detector.Inspect(ctx, events)
		if s.metrics != nil {
			s.metrics.RecordFetchSuccess()
			s.metrics.RecordFetchLatency(duration)
			s.metrics.RecordSnapshotSize(len(events))
		}
		s.logger.Info("フェッチサイクルが完了しました",
			slog.Int("event_count", len(events)),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
	}

	// 実行中に合流した要求があれば完了直後に1回だけ追加フェッチ
	if hadPending {
		s.logger.Info("合流済みのリフレッシュ要求を実行します")
		s.startFetch(ctx)
	}
}

// scheduleRetryLocked はバックオフ後の自動リトライを予約する。呼び出し元がロックを保持する。
func (s *Scheduler) scheduleRetryLocked(delay time.Duration) {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
	}
	s.retryTimer = time.AfterFunc(delay, func() {
		select {
		case s.requests <- struct{}{}:
		default:
		}
	})
}

// stopRetryLocked は予約済みのリトライを取り消す。呼び出し元がロックを保持する。
func (s *Scheduler) stopRetryLocked() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

// teardown はスケジューラを停止状態にし、以降の状態変更を禁止する。
func (s *Scheduler) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopRetryLocked()
}
