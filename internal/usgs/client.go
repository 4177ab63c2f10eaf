// Package usgs はUSGS FDSNイベントフィードへのクエリとGeoJSONレスポンスのパースを提供する。
// 状態を持たない純粋なI/O境界であり、失敗は全て戻り値のエラーとして返す。
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/quakewatch/internal/model"
	"github.com/hitoshi/quakewatch/internal/timewindow"
)

// DefaultBaseURL はUSGS FDSNイベントサービスのクエリエンドポイント。
const DefaultBaseURL = "https://earthquake.usgs.gov/fdsnws/event/1/query"

// timeLayout はstarttime/endtimeパラメータのISO-8601 UTC秒精度フォーマット。
const timeLayout = "2006-01-02T15:04:05"

// TextSanitizer はフィード由来テキストのサニタイズインターフェース。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// Client はUSGSフィードへの1回のクエリを実行するHTTPクライアント。
type Client struct {
	baseURL     string
	httpClient  *http.Client
	sanitizer   TextSanitizer
	logger      *slog.Logger
	maxBodySize int64
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientにはsecurity.OutboundGuardが生成するSSRF防止付きクライアントを渡す。
func NewClient(
	baseURL string,
	httpClient *http.Client,
	sanitizer TextSanitizer,
	logger *slog.Logger,
	maxBodySize int64,
) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		sanitizer:   sanitizer,
		logger:      logger,
		maxBodySize: maxBodySize,
	}
}

// --- GeoJSONレスポンス型 ---

// geoJSONResponse はフィードレスポンスのトップレベル構造。
type geoJSONResponse struct {
	Features []geoJSONFeature `json:"features"`
}

// geoJSONFeature は1件の地震イベントを表すGeoJSON feature。
// mag/place/url/feltはフィード側で欠落しうるためポインタで受ける。
type geoJSONFeature struct {
	ID         string `json:"id"`
	Properties struct {
		Mag   *float64 `json:"mag"`
		Place *string  `json:"place"`
		Time  int64    `json:"time"` // エポックミリ秒
		URL   *string  `json:"url"`
		Felt  *int     `json:"felt"`
	} `json:"properties"`
	Geometry struct {
		// [経度, 緯度, 深さkm]。深さは省略されることがある。
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

// Fetch は領域・時間範囲・最小マグニチュードで絞った1回のクエリを実行し、
// フィードの返却順のままイベントのスライスを返す。
// 返却順に意味的な保証はなく、呼び出し側はソートに依存してはならない。
// トランスポート障害・非200応答・デコード失敗は全てエラーとして返す。
func (c *Client) Fetch(
	ctx context.Context,
	minMagnitude float64,
	bounds model.RegionBounds,
	window timewindow.Window,
) ([]model.Event, error) {
	start := time.Now()

	reqURL, err := c.buildQueryURL(minMagnitude, bounds, window)
	if err != nil {
		return nil, fmt.Errorf("クエリURLの構築に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "Quakewatch/1.0 Earthquake Monitor")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("フィードが異常なステータスを返しました: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	var decoded geoJSONResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("GeoJSONのデコードに失敗: %w", err)
	}

	events := c.convertFeatures(decoded.Features)

	c.logger.Info("フィードのフェッチが完了しました",
		slog.Int("event_count", len(events)),
		slog.Float64("min_magnitude", minMagnitude),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return events, nil
}

// buildQueryURL は領域・時間範囲・最小マグニチュードからクエリURLを構築する。
func (c *Client) buildQueryURL(
	minMagnitude float64,
	bounds model.RegionBounds,
	window timewindow.Window,
) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("format", "geojson")
	q.Set("starttime", window.Start.UTC().Format(timeLayout))
	q.Set("endtime", window.End.UTC().Format(timeLayout))
	q.Set("minlatitude", formatCoord(bounds.MinLat))
	q.Set("maxlatitude", formatCoord(bounds.MaxLat))
	q.Set("minlongitude", formatCoord(bounds.MinLon))
	q.Set("maxlongitude", formatCoord(bounds.MaxLon))
	q.Set("minmagnitude", formatCoord(minMagnitude))

	base.RawQuery = q.Encode()
	return base.String(), nil
}

// formatCoord は数値パラメータを不要な末尾ゼロなしで文字列化する。
func formatCoord(v float64) string {
	return fmt.Sprintf("%g", v)
}

// convertFeatures はGeoJSON featureをmodel.Eventに変換する。
// IDが空のfeatureは同一性を持てないためスキップする。
// 欠落している任意フィールド（mag, place, felt, depth, url）は
// ゼロ値ではなく「欠落」として表現する。
func (c *Client) convertFeatures(features []geoJSONFeature) []model.Event {
	events := make([]model.Event, 0, len(features))

	for _, f := range features {
		if f.ID == "" {
			c.logger.Warn("IDのないfeatureをスキップしました")
			continue
		}

		ev := model.Event{
			ID:         f.ID,
			Magnitude:  f.Properties.Mag,
			OccurredAt: time.UnixMilli(f.Properties.Time).UTC(),
			Felt:       f.Properties.Felt,
		}

		if f.Properties.Place != nil {
			ev.Place = c.sanitizer.SanitizeText(*f.Properties.Place)
		}
		if f.Properties.URL != nil {
			ev.DetailURL = *f.Properties.URL
		}

		coords := f.Geometry.Coordinates
		if len(coords) >= 2 {
			ev.Longitude = coords[0]
			ev.Latitude = coords[1]
		}
		if len(coords) >= 3 {
			depth := coords[2]
			ev.DepthKm = &depth
		}

		events = append(events, ev)
	}

	return events
}
