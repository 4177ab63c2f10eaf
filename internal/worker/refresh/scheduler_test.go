package refresh

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/quakewatch/internal/model"
	"github.com/hitoshi/quakewatch/internal/timewindow"
)

// --- モック定義 ---

// mockFetcher はFeedFetcherのテスト用モック。
type mockFetcher struct {
	fetchFn func(ctx context.Context, minMagnitude float64, bounds model.RegionBounds, window timewindow.Window) ([]model.Event, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, minMagnitude float64, bounds model.RegionBounds, window timewindow.Window) ([]model.Event, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, minMagnitude, bounds, window)
	}
	return nil, nil
}

// appliedResult はmockStoreが記録したApplyFetchResult呼び出し。
type appliedResult struct {
	events []model.Event
	err    error
}

// mockStore はStateStoreのテスト用モック。
type mockStore struct {
	mu       sync.Mutex
	criteria model.QueryCriteria
	applied  []appliedResult
	inFlight int
}

func newMockStore() *mockStore {
	return &mockStore{criteria: model.DefaultQueryCriteria()}
}

func (m *mockStore) MarkInFlight(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight++
}

func (m *mockStore) ApplyFetchResult(events []model.Event, fetchErr error, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, appliedResult{events: events, err: fetchErr})
}

func (m *mockStore) Criteria() model.QueryCriteria {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.criteria
}

func (m *mockStore) appliedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applied)
}

func (m *mockStore) lastApplied() (appliedResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.applied) == 0 {
		return appliedResult{}, false
	}
	return m.applied[len(m.applied)-1], true
}

// mockInspector はAlertInspectorのテスト用モック。
type mockInspector struct {
	mu        sync.Mutex
	inspected [][]model.Event
}

func (m *mockInspector) Inspect(ctx context.Context, events []model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inspected = append(m.inspected, events)
}

func (m *mockInspector) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inspected)
}

func newTestLogger() *slog.Logger {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func testConfig() Config {
	return Config{
		// 定期ティッカーがテストに割り込まないよう長い間隔にする
		Interval:     time.Hour,
		FetchTimeout: 5 * time.Second,
		Bounds:       model.DefaultRegionBounds(),
	}
}

// waitFor はチャネル受信をタイムアウト付きで待つテストヘルパー。
func waitFor(t *testing.T, ch <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal(msg)
	}
}

// --- 単一フライトとコアレスのテスト ---

func TestScheduler_SingleFlightWithCoalescing(t *testing.T) {
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	var active, maxActive, total int32

	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, minMag float64, bounds model.RegionBounds, window timewindow.Window) ([]model.Event, error) {
			cur := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxActive)
				if cur <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, cur) {
					break
				}
			}
			atomic.AddInt32(&total, 1)
			started <- struct{}{}
			<-release
			atomic.AddInt32(&active, -1)
			return nil, nil
		},
	}

	store := newMockStore()
	s := NewScheduler(fetcher, store, &mockInspector{}, newTestLogger(), nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	// 起動直後のフェッチが開始される
	waitFor(t, started, "初回フェッチが開始されない")

	// 実行中に複数のリフレッシュ要求 → 完了後の1回に合流
	s.RequestRefresh()
	s.RequestRefresh()
	s.RequestRefresh()

	release <- struct{}{}
	waitFor(t, started, "合流済みフェッチが開始されない")
	release <- struct{}{}

	// 追加のフェッチが走らないことを確認
	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&total); got != 2 {
		t.Errorf("フェッチ実行回数 = %d, want 2（初回+合流分）", got)
	}
	if got := atomic.LoadInt32(&maxActive); got != 1 {
		t.Errorf("同時実行数の最大 = %d, want 1", got)
	}

	cancel()
	waitFor(t, done, "Startが終了しない")
}

func TestScheduler_ManualRefreshWhenIdle(t *testing.T) {
	started := make(chan struct{}, 10)
	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, minMag float64, bounds model.RegionBounds, window timewindow.Window) ([]model.Event, error) {
			started <- struct{}{}
			return nil, nil
		},
	}

	store := newMockStore()
	s := NewScheduler(fetcher, store, &mockInspector{}, newTestLogger(), nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	waitFor(t, started, "初回フェッチが開始されない")

	s.RequestRefresh()
	waitFor(t, started, "手動リフレッシュでフェッチが開始されない")
}

// --- 成功・失敗パスのテスト ---

func TestScheduler_SuccessAppliesResultAndInspects(t *testing.T) {
	events := []model.Event{{ID: "a", OccurredAt: time.Now()}}

	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, minMag float64, bounds model.RegionBounds, window timewindow.Window) ([]model.Event, error) {
			return events, nil
		},
	}
	store := newMockStore()
	inspector := &mockInspector{}
	s := NewScheduler(fetcher, store, inspector, newTestLogger(), nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		s.Start(ctx)
	}()

	// 結果反映を待つ
	deadline := time.After(2 * time.Second)
	for store.appliedCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("ApplyFetchResultが呼ばれない")
		case <-time.After(10 * time.Millisecond):
		}
	}

	last, _ := store.lastApplied()
	if last.err != nil {
		t.Errorf("err = %v, want nil", last.err)
	}
	if len(last.events) != 1 || last.events[0].ID != "a" {
		t.Errorf("events = %+v", last.events)
	}

	// 成功時は生のイベント集合に対してアラート検査が走る
	for inspector.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("Inspectが呼ばれない")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScheduler_FailureAppliesErrorWithoutInspect(t *testing.T) {
	fetchErr := errors.New("connection refused")
	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, minMag float64, bounds model.RegionBounds, window timewindow.Window) ([]model.Event, error) {
			return nil, fetchErr
		},
	}
	store := newMockStore()
	inspector := &mockInspector{}
	s := NewScheduler(fetcher, store, inspector, newTestLogger(), nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	deadline := time.After(2 * time.Second)
	for store.appliedCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("ApplyFetchResultが呼ばれない")
		case <-time.After(10 * time.Millisecond):
		}
	}

	last, _ := store.lastApplied()
	if last.err == nil {
		t.Error("失敗がストアへ伝わっていない")
	}
	if inspector.count() != 0 {
		t.Error("失敗時にアラート検査が実行された")
	}
}

// --- ティアダウンのテスト ---

func TestScheduler_TeardownAbandonsOutstandingFetch(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, minMag float64, bounds model.RegionBounds, window timewindow.Window) ([]model.Event, error) {
			started <- struct{}{}
			<-release
			return []model.Event{{ID: "late"}}, nil
		},
	}
	store := newMockStore()
	s := NewScheduler(fetcher, store, &mockInspector{}, newTestLogger(), nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	waitFor(t, started, "初回フェッチが開始されない")

	// フェッチ未完了のままティアダウン
	cancel()
	waitFor(t, done, "Startが終了しない")

	// 遅延して到着した結果は破棄され、状態変更は発生しない
	close(release)
	time.Sleep(100 * time.Millisecond)

	if got := store.appliedCount(); got != 0 {
		t.Errorf("ティアダウン後に %d 回の状態変更が発生した, want 0", got)
	}
}

// --- クエリ構築のテスト ---

func TestScheduler_FetchUsesCriteriaAndWindow(t *testing.T) {
	type call struct {
		minMag float64
		bounds model.RegionBounds
		window timewindow.Window
	}
	calls := make(chan call, 1)

	fetcher := &mockFetcher{
		fetchFn: func(ctx context.Context, minMag float64, bounds model.RegionBounds, window timewindow.Window) ([]model.Event, error) {
			calls <- call{minMag: minMag, bounds: bounds, window: window}
			return nil, nil
		},
	}

	store := newMockStore()
	store.criteria.MinMagnitude = 2.5
	store.criteria.TimeRange = model.TimeRangeDay

	s := NewScheduler(fetcher, store, &mockInspector{}, newTestLogger(), nil, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	var got call
	select {
	case got = <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("フェッチが実行されない")
	}

	if got.minMag != 2.5 {
		t.Errorf("minMagnitude = %v, want 2.5", got.minMag)
	}
	if got.bounds != model.DefaultRegionBounds() {
		t.Errorf("bounds = %+v", got.bounds)
	}
	if d := got.window.End.Sub(got.window.Start); d != 24*time.Hour {
		t.Errorf("ウィンドウ幅 = %v, want 24h", d)
	}
}

// --- バックオフのテスト ---

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		consecutiveErrors int
		want              time.Duration
	}{
		{0, 30 * time.Second},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{4, 8 * time.Minute},
		{5, 10 * time.Minute},  // 上限
		{20, 10 * time.Minute}, // 上限を超えない
	}

	for _, tt := range tests {
		if got := CalculateBackoff(tt.consecutiveErrors); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.consecutiveErrors, got, tt.want)
		}
	}
}
