package handler

import (
	"net/http"

	"github.com/hitoshi/quakewatch/internal/model"
)

// StatusStoreInterface は状態ハンドラーが必要とするストア操作のインターフェース。
type StatusStoreInterface interface {
	Snapshot() model.Snapshot
	DerivedView() []model.Event
	Criteria() model.QueryCriteria
}

// AlertCounter はこれまでにアラート対象として記録されたイベント数の参照インターフェース。
type AlertCounter interface {
	AlertedCount() int
}

// StatusHandler は手動リフレッシュとシステム状態のHTTPハンドラー。
type StatusHandler struct {
	store     StatusStoreInterface
	refresher Refresher
	alerts    AlertCounter
}

// NewStatusHandler はStatusHandlerを生成する。
func NewStatusHandler(store StatusStoreInterface, refresher Refresher, alerts AlertCounter) *StatusHandler {
	return &StatusHandler{
		store:     store,
		refresher: refresher,
		alerts:    alerts,
	}
}

// statusResponse はシステム状態のAPIレスポンス。
type statusResponse struct {
	State         refreshStateResponse `json:"state"`
	EventCount    int                  `json:"event_count"`
	ViewCount     int                  `json:"view_count"`
	SelectedID    string               `json:"selected_id,omitempty"`
	Criteria      criteriaResponse     `json:"criteria"`
	AlertedEvents int                  `json:"alerted_events"`
}

// RequestRefresh は手動リフレッシュを要求する。
// 実行中のフェッチがある場合は完了直後の追加フェッチ1回に合流される。
// POST /api/refresh
func (h *StatusHandler) RequestRefresh(w http.ResponseWriter, r *http.Request) {
	h.refresher.RequestRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// GetStatus はフェッチ状態・イベント件数・検索条件などのシステム状態を返す。
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	view := h.store.DerivedView()

	writeJSON(w, http.StatusOK, statusResponse{
		State:         toRefreshStateResponse(snap.State),
		EventCount:    len(snap.Events),
		ViewCount:     len(view),
		SelectedID:    snap.SelectedID,
		Criteria:      toCriteriaResponse(h.store.Criteria()),
		AlertedEvents: h.alerts.AlertedCount(),
	})
}

// Healthz はヘルスチェックに応答する。
// GET /healthz
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
