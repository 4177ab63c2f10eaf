// Package model はドメインモデルを定義する。
package model

// TimeRange は取得対象の時間範囲シンボルを表す。
type TimeRange string

const (
	// TimeRangeHour は直近1時間。
	TimeRangeHour TimeRange = "hour"
	// TimeRangeDay は直近1日。
	TimeRangeDay TimeRange = "day"
	// TimeRangeWeek は直近1週間。
	TimeRangeWeek TimeRange = "week"
	// TimeRangeMonth は直近1か月（30日）。
	TimeRangeMonth TimeRange = "month"
	// TimeRangeYear は直近1年（365日）。
	TimeRangeYear TimeRange = "year"
)

// Valid は既知の時間範囲シンボルかどうかを返す。
func (tr TimeRange) Valid() bool {
	switch tr {
	case TimeRangeHour, TimeRangeDay, TimeRangeWeek, TimeRangeMonth, TimeRangeYear:
		return true
	}
	return false
}

// SortField は派生ビューのソートキーを表す。
type SortField string

const (
	// SortFieldTime は発生時刻でソートする。
	SortFieldTime SortField = "time"
	// SortFieldMagnitude はマグニチュードでソートする。
	SortFieldMagnitude SortField = "magnitude"
	// SortFieldDepth は震源深さでソートする。
	SortFieldDepth SortField = "depth"
)

// Valid は既知のソートキーかどうかを返す。
func (f SortField) Valid() bool {
	switch f {
	case SortFieldTime, SortFieldMagnitude, SortFieldDepth:
		return true
	}
	return false
}

// SortDirection は派生ビューのソート方向を表す。
type SortDirection string

const (
	// SortAscending は昇順。
	SortAscending SortDirection = "asc"
	// SortDescending は降順。
	SortDescending SortDirection = "desc"
)

// Valid は既知のソート方向かどうかを返す。
func (d SortDirection) Valid() bool {
	return d == SortAscending || d == SortDescending
}

// QueryCriteria はユーザーが操作するフィルタ・ソート条件を表す。
// TimeRangeとMinMagnitudeはフィードへのクエリに影響する（変更時は再フェッチ）。
// SearchTerm・SortField・SortDirectionはクライアント側の派生ビュー再計算のみに影響する。
type QueryCriteria struct {
	TimeRange     TimeRange
	MinMagnitude  float64
	SearchTerm    string
	SortField     SortField
	SortDirection SortDirection
}

// DefaultQueryCriteria は起動時の既定条件を返す。
func DefaultQueryCriteria() QueryCriteria {
	return QueryCriteria{
		TimeRange:     TimeRangeWeek,
		MinMagnitude:  0,
		SortField:     SortFieldTime,
		SortDirection: SortDescending,
	}
}

// CriteriaPatch はQueryCriteriaの部分更新を表す。
// nilのフィールドは変更しない。
type CriteriaPatch struct {
	TimeRange     *TimeRange
	MinMagnitude  *float64
	SearchTerm    *string
	SortField     *SortField
	SortDirection *SortDirection
}

// Validate はパッチ内の指定済みフィールドを検証し、
// 不正な値があればAPIErrorを返す。
func (p *CriteriaPatch) Validate() *APIError {
	if p.TimeRange != nil && !p.TimeRange.Valid() {
		return NewInvalidCriteriaError("time_range", string(*p.TimeRange))
	}
	if p.MinMagnitude != nil && *p.MinMagnitude < 0 {
		return NewInvalidCriteriaError("min_magnitude", "負の値は指定できません")
	}
	if p.SortField != nil && !p.SortField.Valid() {
		return NewInvalidCriteriaError("sort_field", string(*p.SortField))
	}
	if p.SortDirection != nil && !p.SortDirection.Valid() {
		return NewInvalidCriteriaError("sort_direction", string(*p.SortDirection))
	}
	return nil
}
