// Package timewindow は時間範囲シンボルから絶対的な開始・終了時刻への変換を提供する。
package timewindow

import (
	"time"

	"github.com/hitoshi/quakewatch/internal/model"
)

// Window はフィードクエリに使用する絶対時刻の範囲を表す。
type Window struct {
	Start time.Time
	End   time.Time
}

// defaultDays は未知の時間範囲シンボルに適用する日数（1週間）。
const defaultDays = 7.0

// durationDays は時間範囲シンボルごとの固定日数を返す。
// hour=1/24、day=1、week=7、month=30、year=365。
// 未知のシンボルは7日として扱う。
func durationDays(tr model.TimeRange) float64 {
	switch tr {
	case model.TimeRangeHour:
		return 1.0 / 24.0
	case model.TimeRangeDay:
		return 1
	case model.TimeRangeWeek:
		return 7
	case model.TimeRangeMonth:
		return 30
	case model.TimeRangeYear:
		return 365
	default:
		return defaultDays
	}
}

// Calculate は時間範囲シンボルと現在時刻からクエリ用のWindowを算出する。
// End = now、Start = now - durationDays * 24h。副作用も失敗モードもない純関数。
func Calculate(tr model.TimeRange, now time.Time) Window {
	days := durationDays(tr)
	d := time.Duration(days * 24 * float64(time.Hour))
	return Window{
		Start: now.Add(-d),
		End:   now,
	}
}
