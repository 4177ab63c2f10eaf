package store

import (
	"sort"
	"strings"

	"github.com/hitoshi/quakewatch/internal/model"
)

// ComputeView は (イベント集合, 検索条件) からフィルタ・ソート済みビューを計算する純関数。
// 入力スライスは変更せず、常に新しいスライスを返す。
//
// フィルタ: SearchTerm（トリム後）が非空の場合、place に対する大文字小文字を
// 区別しない部分一致で絞り込む。placeが欠落したイベントは非空の検索語には
// 決してマッチしない。MinMagnitudeはフィード側のクエリで適用済みのため
// ここでは再適用しない。
//
// ソート: SortField/SortDirectionに従う安定ソート。マグニチュード・深さの
// 欠落は0として比較する。同値の場合は入力（スナップショット）順を保持する。
func ComputeView(events []model.Event, criteria model.QueryCriteria) []model.Event {
	term := strings.ToLower(strings.TrimSpace(criteria.SearchTerm))

	view := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if term != "" {
			if ev.Place == "" || !strings.Contains(strings.ToLower(ev.Place), term) {
				continue
			}
		}
		view = append(view, ev)
	}

	sort.SliceStable(view, func(i, j int) bool {
		less := lessByField(&view[i], &view[j], criteria.SortField)
		if criteria.SortDirection == model.SortDescending {
			return lessByField(&view[j], &view[i], criteria.SortField)
		}
		return less
	})

	return view
}

// lessByField はソートキーに基づく昇順比較を行う。
func lessByField(a, b *model.Event, field model.SortField) bool {
	switch field {
	case model.SortFieldMagnitude:
		return a.MagnitudeOrZero() < b.MagnitudeOrZero()
	case model.SortFieldDepth:
		return a.DepthKmOrZero() < b.DepthKmOrZero()
	default:
		// 既定は発生時刻
		return a.OccurredAt.Before(b.OccurredAt)
	}
}
