// Package handler は地震モニターAPIのHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/quakewatch/internal/middleware"
	"github.com/hitoshi/quakewatch/internal/model"
)

// eventResponse は地震イベント1件のAPIレスポンス。
// magnitude・depth_km・feltはフィード側で欠落しうるため、
// 欠落時はnullとしてそのまま伝える。
type eventResponse struct {
	ID         string    `json:"id"`
	Magnitude  *float64  `json:"magnitude"`
	Place      string    `json:"place"`
	OccurredAt time.Time `json:"occurred_at"`
	Longitude  float64   `json:"longitude"`
	Latitude   float64   `json:"latitude"`
	DepthKm    *float64  `json:"depth_km"`
	Felt       *int      `json:"felt"`
	DetailURL  string    `json:"detail_url"`
}

// refreshStateResponse はフェッチ状態のAPIレスポンス。
type refreshStateResponse struct {
	Status string     `json:"status"`
	Reason string     `json:"reason,omitempty"`
	At     *time.Time `json:"at,omitempty"`
}

// criteriaResponse は検索条件のAPIレスポンス。
type criteriaResponse struct {
	TimeRange     string  `json:"time_range"`
	MinMagnitude  float64 `json:"min_magnitude"`
	SearchTerm    string  `json:"search_term"`
	SortField     string  `json:"sort_field"`
	SortDirection string  `json:"sort_direction"`
}

// toEventResponse はドメインモデルをAPIレスポンスに変換する。
func toEventResponse(ev model.Event) eventResponse {
	return eventResponse{
		ID:         ev.ID,
		Magnitude:  ev.Magnitude,
		Place:      ev.Place,
		OccurredAt: ev.OccurredAt,
		Longitude:  ev.Longitude,
		Latitude:   ev.Latitude,
		DepthKm:    ev.DepthKm,
		Felt:       ev.Felt,
		DetailURL:  ev.DetailURL,
	}
}

// toEventResponses はイベントのスライスをAPIレスポンスに変換する。
// nilではなく空スライスを返し、JSONでは常に配列として表現する。
func toEventResponses(events []model.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventResponse(ev))
	}
	return out
}

// toRefreshStateResponse はフェッチ状態をAPIレスポンスに変換する。
func toRefreshStateResponse(state model.RefreshState) refreshStateResponse {
	resp := refreshStateResponse{
		Status: string(state.Status),
		Reason: state.Reason,
	}
	if !state.At.IsZero() {
		at := state.At
		resp.At = &at
	}
	return resp
}

// toCriteriaResponse は検索条件をAPIレスポンスに変換する。
func toCriteriaResponse(c model.QueryCriteria) criteriaResponse {
	return criteriaResponse{
		TimeRange:     string(c.TimeRange),
		MinMagnitude:  c.MinMagnitude,
		SearchTerm:    c.SearchTerm,
		SortField:     string(c.SortField),
		SortDirection: string(c.SortDirection),
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("レスポンスの書き込みに失敗しました", slog.String("error", err.Error()))
	}
}

// writeAPIError はAPIErrorをJSONレスポンスとして書き込む。
func writeAPIError(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}
