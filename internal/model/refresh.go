// Package model はドメインモデルを定義する。
package model

import "time"

// RefreshStatus はフェッチサイクルの状態を表す。
type RefreshStatus string

const (
	// RefreshStatusIdle は初期状態（まだ一度もフェッチしていない）。
	RefreshStatusIdle RefreshStatus = "idle"
	// RefreshStatusInFlight はフェッチ実行中。
	RefreshStatusInFlight RefreshStatus = "in_flight"
	// RefreshStatusSucceeded は直近のフェッチが成功した状態。
	RefreshStatusSucceeded RefreshStatus = "succeeded"
	// RefreshStatusFailed は直近のフェッチが失敗した状態。
	RefreshStatusFailed RefreshStatus = "failed"
)

// RefreshState はフェッチサイクルの状態と付随情報を表す。
// Failedの場合のみReasonに人間可読な失敗理由が入る。
type RefreshState struct {
	Status RefreshStatus
	Reason string
	At     time.Time
}

// Snapshot は直近の成功フェッチで得た生のイベント集合と、
// フェッチ状態・現在の選択イベントIDをまとめたもの。
// Eventsはフィードの返却順を保持し、成功フェッチのたびに全置換される。
type Snapshot struct {
	Events     []Event
	State      RefreshState
	SelectedID string
}
