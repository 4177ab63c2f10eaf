// Package store は直近フェッチ結果のスナップショットと検索条件を保持し、
// フィルタ・ソート済みの派生ビューを提供する。
// 全ての状態変更はこのパッケージの名前付き操作を通してのみ行われ、
// 内部のミューテックスで直列化される。
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/quakewatch/internal/model"
)

// Store は地震イベントのスナップショット・検索条件・フェッチ状態・選択状態を
// 所有する状態オブジェクト。
//
// 不変条件:
//   - スナップショットは成功フェッチのたびに全置換され、差分マージは行わない
//   - 派生ビューは (スナップショット, 検索条件) の純関数であり、
//     どちらかが変わったときにのみ再計算される
//   - スナップショットに存在しなくなった選択イベントはクリアされる
//   - フェッチ失敗時はスナップショットと派生ビューを変更しない
//     （空表示より古いデータの継続表示を優先する）
type Store struct {
	mu         sync.RWMutex
	events     []model.Event
	view       []model.Event // キャッシュ済み派生ビュー
	criteria   model.QueryCriteria
	state      model.RefreshState
	selectedID string
	logger     *slog.Logger
}

// New は空のスナップショットと指定の初期条件を持つStoreを生成する。
func New(criteria model.QueryCriteria, logger *slog.Logger) *Store {
	return &Store{
		criteria: criteria,
		state:    model.RefreshState{Status: model.RefreshStatusIdle},
		logger:   logger,
	}
}

// MarkInFlight はフェッチ開始を記録する。RefreshSchedulerがフェッチ発行直前に呼ぶ。
func (s *Store) MarkInFlight(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = model.RefreshState{Status: model.RefreshStatusInFlight, At: at}
}

// ApplyFetchResult はフェッチ結果をスナップショットに反映する。
// 成功時はイベント集合を全置換し、スナップショットから消えた選択をクリアして
// 派生ビューを再計算する。失敗時は状態をFailedにするだけで、
// 既存のスナップショットと派生ビューは変更しない。
func (s *Store) ApplyFetchResult(events []model.Event, fetchErr error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fetchErr != nil {
		s.state = model.RefreshState{
			Status: model.RefreshStatusFailed,
			Reason: fetchErr.Error(),
			At:     at,
		}
		s.logger.Warn("フェッチ失敗を記録しました（既存データは保持）",
			slog.String("reason", fetchErr.Error()),
		)
		return
	}

	s.events = events
	s.state = model.RefreshState{Status: model.RefreshStatusSucceeded, At: at}

	if s.selectedID != "" && !containsID(events, s.selectedID) {
		s.logger.Info("選択中のイベントが新しいスナップショットに存在しないため選択を解除します",
			slog.String("event_id", s.selectedID),
		)
		s.selectedID = ""
	}

	s.view = ComputeView(s.events, s.criteria)
}

// SetCriteria はパッチで指定されたフィールドを検索条件にマージする。
// TimeRangeまたはMinMagnitudeが実際に変化した場合はtrueを返し、
// 呼び出し側は再フェッチを要求しなければならない。
// SearchTerm・SortField・SortDirectionの変更は派生ビューの再計算のみ行う。
func (s *Store) SetCriteria(patch model.CriteriaPatch) (needsRefetch bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	viewChanged := false

	if patch.TimeRange != nil && *patch.TimeRange != s.criteria.TimeRange {
		s.criteria.TimeRange = *patch.TimeRange
		needsRefetch = true
	}
	if patch.MinMagnitude != nil && *patch.MinMagnitude != s.criteria.MinMagnitude {
		s.criteria.MinMagnitude = *patch.MinMagnitude
		needsRefetch = true
	}
	if patch.SearchTerm != nil && *patch.SearchTerm != s.criteria.SearchTerm {
		s.criteria.SearchTerm = *patch.SearchTerm
		viewChanged = true
	}
	if patch.SortField != nil && *patch.SortField != s.criteria.SortField {
		s.criteria.SortField = *patch.SortField
		viewChanged = true
	}
	if patch.SortDirection != nil && *patch.SortDirection != s.criteria.SortDirection {
		s.criteria.SortDirection = *patch.SortDirection
		viewChanged = true
	}

	if viewChanged {
		s.view = ComputeView(s.events, s.criteria)
	}

	return needsRefetch
}

// Select は選択状態をトグルする。既に選択中のIDを指定すると選択解除になる。
// スナップショットに存在しないIDを指定した場合はエラーを返す。
func (s *Store) Select(eventID string) *model.APIError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selectedID == eventID {
		s.selectedID = ""
		return nil
	}
	if !containsID(s.events, eventID) {
		return model.NewEventNotFoundError(eventID)
	}
	s.selectedID = eventID
	return nil
}

// DerivedView は現在の検索条件でフィルタ・ソートされたビューのコピーを返す。
func (s *Store) DerivedView() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Event, len(s.view))
	copy(out, s.view)
	return out
}

// Snapshot は生のイベント集合・フェッチ状態・選択IDのコピーを返す。
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]model.Event, len(s.events))
	copy(events, s.events)
	return model.Snapshot{
		Events:     events,
		State:      s.state,
		SelectedID: s.selectedID,
	}
}

// Criteria は現在の検索条件を返す。
func (s *Store) Criteria() model.QueryCriteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

// State は現在のフェッチ状態を返す。
func (s *Store) State() model.RefreshState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// EventByID はスナップショット内のイベントをIDで検索する。
func (s *Store) EventByID(eventID string) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ev := range s.events {
		if ev.ID == eventID {
			return ev, true
		}
	}
	return model.Event{}, false
}

// containsID はイベント集合に指定IDが含まれるかを返す。
func containsID(events []model.Event, id string) bool {
	for _, ev := range events {
		if ev.ID == id {
			return true
		}
	}
	return false
}
