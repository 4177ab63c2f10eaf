package model

import (
	"testing"
)

func TestTimeRange_Valid(t *testing.T) {
	valid := []TimeRange{TimeRangeHour, TimeRangeDay, TimeRangeWeek, TimeRangeMonth, TimeRangeYear}
	for _, tr := range valid {
		if !tr.Valid() {
			t.Errorf("TimeRange(%q).Valid() = false, want true", tr)
		}
	}

	invalid := []TimeRange{"", "decade", "minute", "WEEK"}
	for _, tr := range invalid {
		if tr.Valid() {
			t.Errorf("TimeRange(%q).Valid() = true, want false", tr)
		}
	}
}

func TestSortField_Valid(t *testing.T) {
	valid := []SortField{SortFieldTime, SortFieldMagnitude, SortFieldDepth}
	for _, f := range valid {
		if !f.Valid() {
			t.Errorf("SortField(%q).Valid() = false, want true", f)
		}
	}
	if SortField("felt").Valid() {
		t.Error("SortField(felt).Valid() = true, want false")
	}
}

func TestEvent_MagnitudeOrZero(t *testing.T) {
	mag := 5.8
	withMag := Event{Magnitude: &mag}
	if got := withMag.MagnitudeOrZero(); got != 5.8 {
		t.Errorf("MagnitudeOrZero() = %g, want 5.8", got)
	}

	// 欠落は0として扱う
	absent := Event{}
	if got := absent.MagnitudeOrZero(); got != 0 {
		t.Errorf("欠落時のMagnitudeOrZero() = %g, want 0", got)
	}
}

func TestEvent_DepthKmOrZero(t *testing.T) {
	depth := 12.3
	withDepth := Event{DepthKm: &depth}
	if got := withDepth.DepthKmOrZero(); got != 12.3 {
		t.Errorf("DepthKmOrZero() = %g, want 12.3", got)
	}

	absent := Event{}
	if got := absent.DepthKmOrZero(); got != 0 {
		t.Errorf("欠落時のDepthKmOrZero() = %g, want 0", got)
	}
}

func TestRegionBounds_Valid(t *testing.T) {
	if !DefaultRegionBounds().Valid() {
		t.Error("DefaultRegionBounds().Valid() = false, want true")
	}

	tests := []struct {
		name   string
		bounds RegionBounds
	}{
		{name: "緯度の逆転", bounds: RegionBounds{MinLat: 70, MaxLat: 48, MinLon: -141, MaxLon: -101}},
		{name: "経度の逆転", bounds: RegionBounds{MinLat: 48, MaxLat: 70, MinLon: -101, MaxLon: -141}},
		{name: "緯度の範囲外", bounds: RegionBounds{MinLat: -91, MaxLat: 70, MinLon: -141, MaxLon: -101}},
		{name: "経度の範囲外", bounds: RegionBounds{MinLat: 48, MaxLat: 70, MinLon: -141, MaxLon: 181}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.bounds.Valid() {
				t.Errorf("Valid() = true, want false: %+v", tt.bounds)
			}
		})
	}
}

func TestCriteriaPatch_Validate(t *testing.T) {
	tr := TimeRangeDay
	mag := 2.5
	sf := SortFieldMagnitude
	sd := SortAscending

	ok := CriteriaPatch{TimeRange: &tr, MinMagnitude: &mag, SortField: &sf, SortDirection: &sd}
	if apiErr := ok.Validate(); apiErr != nil {
		t.Errorf("正当なパッチでエラー: %v", apiErr)
	}

	// 空のパッチは有効（何も変更しない）
	empty := CriteriaPatch{}
	if apiErr := empty.Validate(); apiErr != nil {
		t.Errorf("空のパッチでエラー: %v", apiErr)
	}

	badTR := TimeRange("decade")
	negMag := -1.0
	badSF := SortField("felt")
	badSD := SortDirection("random")

	tests := []struct {
		name  string
		patch CriteriaPatch
	}{
		{name: "不正なtime_range", patch: CriteriaPatch{TimeRange: &badTR}},
		{name: "負のmin_magnitude", patch: CriteriaPatch{MinMagnitude: &negMag}},
		{name: "不正なsort_field", patch: CriteriaPatch{SortField: &badSF}},
		{name: "不正なsort_direction", patch: CriteriaPatch{SortDirection: &badSD}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := tt.patch.Validate()
			if apiErr == nil {
				t.Fatal("expected error, got nil")
			}
			if apiErr.Code != ErrCodeInvalidCriteria {
				t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeInvalidCriteria)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	apiErr := NewEventNotFoundError("us7000abcd")
	msg := apiErr.Error()
	if msg == "" {
		t.Fatal("Error() returned empty string")
	}
	// エラーコードがメッセージに含まれること
	if got := apiErr.Code; got != ErrCodeEventNotFound {
		t.Errorf("code = %q, want %q", got, ErrCodeEventNotFound)
	}
}
