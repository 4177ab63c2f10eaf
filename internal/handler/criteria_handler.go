package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/quakewatch/internal/model"
)

// CriteriaStoreInterface は検索条件ハンドラーが必要とするストア操作のインターフェース。
type CriteriaStoreInterface interface {
	// Criteria は現在の検索条件を返す。
	Criteria() model.QueryCriteria
	// SetCriteria はパッチを検索条件にマージし、再フェッチが必要ならtrueを返す。
	SetCriteria(patch model.CriteriaPatch) bool
}

// Refresher は手動リフレッシュの要求インターフェース。
type Refresher interface {
	// RequestRefresh はリフレッシュを要求する。非ブロッキング。
	RequestRefresh()
}

// CriteriaHandler は検索条件の取得・部分更新のHTTPハンドラー。
type CriteriaHandler struct {
	store     CriteriaStoreInterface
	refresher Refresher
	logger    *slog.Logger
}

// NewCriteriaHandler はCriteriaHandlerを生成する。
func NewCriteriaHandler(store CriteriaStoreInterface, refresher Refresher, logger *slog.Logger) *CriteriaHandler {
	return &CriteriaHandler{
		store:     store,
		refresher: refresher,
		logger:    logger,
	}
}

// criteriaPatchRequest は検索条件の部分更新リクエストのボディ。
// 省略されたフィールドは変更しない。
type criteriaPatchRequest struct {
	TimeRange     *string  `json:"time_range"`
	MinMagnitude  *float64 `json:"min_magnitude"`
	SearchTerm    *string  `json:"search_term"`
	SortField     *string  `json:"sort_field"`
	SortDirection *string  `json:"sort_direction"`
}

// toPatch はリクエストボディをドメインのパッチに変換する。
func (req *criteriaPatchRequest) toPatch() model.CriteriaPatch {
	patch := model.CriteriaPatch{
		MinMagnitude: req.MinMagnitude,
		SearchTerm:   req.SearchTerm,
	}
	if req.TimeRange != nil {
		tr := model.TimeRange(*req.TimeRange)
		patch.TimeRange = &tr
	}
	if req.SortField != nil {
		sf := model.SortField(*req.SortField)
		patch.SortField = &sf
	}
	if req.SortDirection != nil {
		sd := model.SortDirection(*req.SortDirection)
		patch.SortDirection = &sd
	}
	return patch
}

// GetCriteria は現在の検索条件を返す。
// GET /api/criteria
func (h *CriteriaHandler) GetCriteria(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toCriteriaResponse(h.store.Criteria()))
}

// UpdateCriteria は検索条件を部分更新する。
// フィードクエリに影響するフィールド（time_range・min_magnitude）が
// 変化した場合は即時リフレッシュを要求する。
// PATCH /api/criteria
func (h *CriteriaHandler) UpdateCriteria(w http.ResponseWriter, r *http.Request) {
	var req criteriaPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, model.NewInvalidRequestError("JSONの解析に失敗しました"))
		return
	}

	patch := req.toPatch()
	if apiErr := patch.Validate(); apiErr != nil {
		writeAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	if needsRefetch := h.store.SetCriteria(patch); needsRefetch {
		h.logger.Info("フィードクエリに影響する条件変更のためリフレッシュを要求します")
		h.refresher.RequestRefresh()
	}

	writeJSON(w, http.StatusOK, toCriteriaResponse(h.store.Criteria()))
}
