// Package model はドメインモデルを定義する。
package model

import "time"

// Event はフィードから取得した1件の地震イベントを表す。
// IDによる同一性を持つイミュータブルなレコードとして扱う。
// Magnitude・DepthKm・Feltはフィード側で欠落しうるため、
// 「欠落」と「ゼロ」を区別できるようポインタで保持する。
// 表示用途では欠落をそのまま伝え、ソート・フィルタ・閾値比較では
// MagnitudeOrZero / DepthKmOrZero を使用してゼロとして扱う。
type Event struct {
	ID         string
	Magnitude  *float64
	Place      string // 空文字列は場所不明を表す
	OccurredAt time.Time
	Longitude  float64
	Latitude   float64
	DepthKm    *float64
	Felt       *int
	DetailURL  string
}

// MagnitudeOrZero はソート・閾値比較用のマグニチュード値を返す。
// 欠落している場合は0を返す。
func (e *Event) MagnitudeOrZero() float64 {
	if e.Magnitude == nil {
		return 0
	}
	return *e.Magnitude
}

// DepthKmOrZero はソート用の震源深さ（km）を返す。
// 欠落している場合は0を返す。
func (e *Event) DepthKmOrZero() float64 {
	if e.DepthKm == nil {
		return 0
	}
	return *e.DepthKm
}

// RegionBounds は固定クエリ領域の境界を表すイミュータブルな定数群。
type RegionBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// DefaultRegionBounds は既定のクエリ領域（カナダ西部）を返す。
func DefaultRegionBounds() RegionBounds {
	return RegionBounds{
		MinLat: 48,
		MaxLat: 70,
		MinLon: -141,
		MaxLon: -101,
	}
}

// Valid は境界の整合性を検証する。
func (b RegionBounds) Valid() bool {
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		return false
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
		return false
	}
	return true
}
