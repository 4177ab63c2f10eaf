package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/quakewatch/internal/model"
)

// QuakeStoreInterface は地震ハンドラーが必要とするストア操作のインターフェース。
type QuakeStoreInterface interface {
	// DerivedView は現在の検索条件でフィルタ・ソートされたビューを返す。
	DerivedView() []model.Event
	// Snapshot は生のイベント集合・フェッチ状態・選択IDを返す。
	Snapshot() model.Snapshot
	// State は現在のフェッチ状態を返す。
	State() model.RefreshState
	// EventByID はスナップショット内のイベントをIDで検索する。
	EventByID(eventID string) (model.Event, bool)
	// Select は選択状態をトグルする。
	Select(eventID string) *model.APIError
}

// QuakeHandler は地震イベント一覧・詳細・選択のHTTPハンドラー。
type QuakeHandler struct {
	store QuakeStoreInterface
}

// NewQuakeHandler はQuakeHandlerを生成する。
func NewQuakeHandler(store QuakeStoreInterface) *QuakeHandler {
	return &QuakeHandler{store: store}
}

// quakeListResponse は地震イベント一覧のAPIレスポンス。
// フェッチ失敗中でも直近の成功スナップショット由来のビューを返し、
// stateで失敗とその理由を伝える。
type quakeListResponse struct {
	Events     []eventResponse      `json:"events"`
	Count      int                  `json:"count"`
	State      refreshStateResponse `json:"state"`
	SelectedID string               `json:"selected_id,omitempty"`
}

// selectResponse は選択トグルのAPIレスポンス。
// 選択解除された場合selected_idは空になる。
type selectResponse struct {
	SelectedID string `json:"selected_id"`
}

// ListQuakes はフィルタ・ソート済みの地震イベント一覧を返す。
// GET /api/quakes
func (h *QuakeHandler) ListQuakes(w http.ResponseWriter, r *http.Request) {
	view := h.store.DerivedView()
	snap := h.store.Snapshot()

	writeJSON(w, http.StatusOK, quakeListResponse{
		Events:     toEventResponses(view),
		Count:      len(view),
		State:      toRefreshStateResponse(snap.State),
		SelectedID: snap.SelectedID,
	})
}

// GetQuake は地震イベントの詳細を返す。
// GET /api/quakes/{id}
func (h *QuakeHandler) GetQuake(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	ev, found := h.store.EventByID(eventID)
	if !found {
		writeAPIError(w, http.StatusNotFound, model.NewEventNotFoundError(eventID))
		return
	}

	writeJSON(w, http.StatusOK, toEventResponse(ev))
}

// SelectQuake はイベントの選択状態をトグルする。
// 同じIDを再度指定すると選択解除になる。
// POST /api/quakes/{id}/select
func (h *QuakeHandler) SelectQuake(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	if apiErr := h.store.Select(eventID); apiErr != nil {
		writeAPIError(w, http.StatusNotFound, apiErr)
		return
	}

	snap := h.store.Snapshot()
	writeJSON(w, http.StatusOK, selectResponse{SelectedID: snap.SelectedID})
}
