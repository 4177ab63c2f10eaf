package handler

import (
	"github.com/hitoshi/quakewatch/internal/model"
)

// mockStore はStoreInterfaceのテスト用モック。
// 各フィールドに関数を設定して挙動を差し替える。
type mockStore struct {
	derivedViewFn func() []model.Event
	snapshotFn    func() model.Snapshot
	stateFn       func() model.RefreshState
	eventByIDFn   func(eventID string) (model.Event, bool)
	selectFn      func(eventID string) *model.APIError
	criteriaFn    func() model.QueryCriteria
	setCriteriaFn func(patch model.CriteriaPatch) bool
}

func (m *mockStore) DerivedView() []model.Event {
	if m.derivedViewFn != nil {
		return m.derivedViewFn()
	}
	return nil
}

func (m *mockStore) Snapshot() model.Snapshot {
	if m.snapshotFn != nil {
		return m.snapshotFn()
	}
	return model.Snapshot{}
}

func (m *mockStore) State() model.RefreshState {
	if m.stateFn != nil {
		return m.stateFn()
	}
	return model.RefreshState{Status: model.RefreshStatusIdle}
}

func (m *mockStore) EventByID(eventID string) (model.Event, bool) {
	if m.eventByIDFn != nil {
		return m.eventByIDFn(eventID)
	}
	return model.Event{}, false
}

func (m *mockStore) Select(eventID string) *model.APIError {
	if m.selectFn != nil {
		return m.selectFn(eventID)
	}
	return nil
}

func (m *mockStore) Criteria() model.QueryCriteria {
	if m.criteriaFn != nil {
		return m.criteriaFn()
	}
	return model.DefaultQueryCriteria()
}

func (m *mockStore) SetCriteria(patch model.CriteriaPatch) bool {
	if m.setCriteriaFn != nil {
		return m.setCriteriaFn(patch)
	}
	return false
}

// mockRefresher はRefresherのテスト用モック。
type mockRefresher struct {
	requestCount int
}

func (m *mockRefresher) RequestRefresh() {
	m.requestCount++
}

// mockAlertCounter はAlertCounterのテスト用モック。
type mockAlertCounter struct {
	count int
}

func (m *mockAlertCounter) AlertedCount() int {
	return m.count
}

// floatPtr はテスト用のfloat64ポインタを返す。
func floatPtr(v float64) *float64 { return &v }

// strPtr はテスト用のstringポインタを返す。
func strPtr(v string) *string { return &v }
