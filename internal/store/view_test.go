package store

import (
	"testing"
	"time"

	"github.com/hitoshi/quakewatch/internal/model"
)

func baseCriteria() model.QueryCriteria {
	return model.QueryCriteria{
		TimeRange:     model.TimeRangeWeek,
		MinMagnitude:  0,
		SortField:     model.SortFieldTime,
		SortDirection: model.SortAscending,
	}
}

func viewIDs(events []model.Event) []string {
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	return ids
}

func equalIDs(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestComputeView_IsPure(t *testing.T) {
	events := testEvents()
	criteria := baseCriteria()

	v1 := ComputeView(events, criteria)
	v2 := ComputeView(events, criteria)

	if !equalIDs(viewIDs(v1), viewIDs(v2)...) {
		t.Errorf("同一入力で結果が異なる: %v != %v", viewIDs(v1), viewIDs(v2))
	}

	// 入力スライスは変更されない
	if !equalIDs(viewIDs(events), "a", "b", "c") {
		t.Errorf("入力スライスが変更された: %v", viewIDs(events))
	}
}

func TestComputeView_FilterIsIdempotent(t *testing.T) {
	criteria := baseCriteria()
	criteria.SearchTerm = "BC"

	once := ComputeView(testEvents(), criteria)
	twice := ComputeView(once, criteria)

	if !equalIDs(viewIDs(once), viewIDs(twice)...) {
		t.Errorf("フィルタが冪等でない: %v -> %v", viewIDs(once), viewIDs(twice))
	}
}

func TestComputeView_MagnitudeDescendingScenario(t *testing.T) {
	// 仕様シナリオ: マグニチュード [6.1, 3.2, 5.8]、ID [a, b, c] を降順ソート
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	events := []model.Event{
		{ID: "a", Magnitude: f64(6.1), OccurredAt: base},
		{ID: "b", Magnitude: f64(3.2), OccurredAt: base},
		{ID: "c", Magnitude: f64(5.8), OccurredAt: base},
	}

	criteria := baseCriteria()
	criteria.SortField = model.SortFieldMagnitude
	criteria.SortDirection = model.SortDescending

	view := ComputeView(events, criteria)
	if !equalIDs(viewIDs(view), "a", "c", "b") {
		t.Errorf("順序 = %v, want [a c b]", viewIDs(view))
	}
}

func TestComputeView_SearchTermScenario(t *testing.T) {
	// 仕様シナリオ: "Victoria" で検索、place欠落のイベントはマッチしない
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	events := []model.Event{
		{ID: "a", Place: "Victoria, BC", OccurredAt: base},
		{ID: "b", Place: "Nanaimo, BC", OccurredAt: base},
		{ID: "c", Place: "", OccurredAt: base},
	}

	criteria := baseCriteria()
	criteria.SearchTerm = "Victoria"

	view := ComputeView(events, criteria)
	if !equalIDs(viewIDs(view), "a") {
		t.Errorf("ビュー = %v, want [a]", viewIDs(view))
	}
}

func TestComputeView_SearchIsCaseInsensitiveAndTrimmed(t *testing.T) {
	events := testEvents()

	criteria := baseCriteria()
	criteria.SearchTerm = "  victoria  "

	view := ComputeView(events, criteria)
	if !equalIDs(viewIDs(view), "a") {
		t.Errorf("ビュー = %v, want [a]", viewIDs(view))
	}
}

func TestComputeView_EmptyTermMatchesAll(t *testing.T) {
	criteria := baseCriteria()
	criteria.SearchTerm = "   "

	view := ComputeView(testEvents(), criteria)
	if len(view) != 3 {
		t.Errorf("空白のみの検索語で絞り込まれた: %v", viewIDs(view))
	}
}

func TestComputeView_StableSortKeepsSnapshotOrder(t *testing.T) {
	// 同一マグニチュードのイベントはスナップショット順を保持する
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	events := []model.Event{
		{ID: "first", Magnitude: f64(4.0), OccurredAt: base.Add(3 * time.Hour)},
		{ID: "second", Magnitude: f64(4.0), OccurredAt: base.Add(1 * time.Hour)},
		{ID: "third", Magnitude: f64(4.0), OccurredAt: base.Add(2 * time.Hour)},
	}

	criteria := baseCriteria()
	criteria.SortField = model.SortFieldMagnitude

	for _, dir := range []model.SortDirection{model.SortAscending, model.SortDescending} {
		criteria.SortDirection = dir
		view := ComputeView(events, criteria)
		if !equalIDs(viewIDs(view), "first", "second", "third") {
			t.Errorf("方向 %s で同値の順序が入力順でない: %v", dir, viewIDs(view))
		}
	}
}

func TestComputeView_AbsentValuesSortAsZero(t *testing.T) {
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	events := []model.Event{
		{ID: "has_mag", Magnitude: f64(2.0), OccurredAt: base},
		{ID: "no_mag", Magnitude: nil, OccurredAt: base},
	}

	criteria := baseCriteria()
	criteria.SortField = model.SortFieldMagnitude
	criteria.SortDirection = model.SortAscending

	view := ComputeView(events, criteria)
	if !equalIDs(viewIDs(view), "no_mag", "has_mag") {
		t.Errorf("欠落マグニチュードが0として比較されていない: %v", viewIDs(view))
	}
}

func TestComputeView_SortByDepth(t *testing.T) {
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	events := []model.Event{
		{ID: "deep", DepthKm: f64(50), OccurredAt: base},
		{ID: "shallow", DepthKm: f64(5), OccurredAt: base},
		{ID: "unknown", DepthKm: nil, OccurredAt: base},
	}

	criteria := baseCriteria()
	criteria.SortField = model.SortFieldDepth
	criteria.SortDirection = model.SortAscending

	view := ComputeView(events, criteria)
	if !equalIDs(viewIDs(view), "unknown", "shallow", "deep") {
		t.Errorf("深さ昇順 = %v, want [unknown shallow deep]", viewIDs(view))
	}
}

func TestComputeView_SortByTimeDescending(t *testing.T) {
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	events := []model.Event{
		{ID: "old", OccurredAt: base},
		{ID: "new", OccurredAt: base.Add(2 * time.Hour)},
		{ID: "mid", OccurredAt: base.Add(1 * time.Hour)},
	}

	criteria := baseCriteria()
	criteria.SortDirection = model.SortDescending

	view := ComputeView(events, criteria)
	if !equalIDs(viewIDs(view), "new", "mid", "old") {
		t.Errorf("時刻降順 = %v, want [new mid old]", viewIDs(view))
	}
}
