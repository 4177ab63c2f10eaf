// Package app はアプリケーションの初期化・依存関係のワイヤリング・起動を担う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/quakewatch/internal/alert"
	"github.com/hitoshi/quakewatch/internal/config"
	"github.com/hitoshi/quakewatch/internal/handler"
	"github.com/hitoshi/quakewatch/internal/logger"
	"github.com/hitoshi/quakewatch/internal/metrics"
	"github.com/hitoshi/quakewatch/internal/middleware"
	"github.com/hitoshi/quakewatch/internal/security"
	"github.com/hitoshi/quakewatch/internal/store"
	"github.com/hitoshi/quakewatch/internal/usgs"
	"github.com/hitoshi/quakewatch/internal/worker/refresh"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("アプリケーションを起動します",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("feed_base_url", cfg.FeedBaseURL),
	)

	return runServe(cfg)
}

// runServe はモニターサーバーモードで起動する。
// フィードクライアント・ストア・スケジューラ・アラート検出器・HTTPサーバーを
// ワイヤリングし、リフレッシュスケジューラをバックグラウンドで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. セキュリティサービスの初期化
	outboundGuard := security.NewOutboundGuard()
	sanitizer := security.NewTextSanitizer()

	if err := outboundGuard.ValidateURL(cfg.FeedBaseURL); err != nil {
		return fmt.Errorf("invalid feed base URL: %w", err)
	}

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. フィードクライアントの初期化
	feedClient := usgs.NewClient(
		cfg.FeedBaseURL,
		outboundGuard.NewSafeClient(cfg.FetchTimeout),
		sanitizer,
		slog.Default(),
		cfg.FetchMaxSize,
	)

	// 4. ストアの初期化
	quakeStore := store.New(cfg.DefaultCriteria(), slog.Default())

	// 5. アラート検出器の初期化
	sinks := []alert.Sink{alert.NewLogSink(slog.Default())}
	if cfg.AlertWebhookURL != "" {
		if err := outboundGuard.ValidateURL(cfg.AlertWebhookURL); err != nil {
			// Webhook URLの不備でサーバー全体を止めない。ログ通知に縮退する。
			slog.Warn("Webhook URLが不正なためWebhook通知を無効化します",
				slog.String("error", err.Error()),
			)
		} else {
			sinks = append(sinks, alert.NewWebhookSink(
				cfg.AlertWebhookURL,
				outboundGuard.NewSafeClient(cfg.FetchTimeout),
				slog.Default(),
			))
		}
	}
	detector := alert.NewDetector(cfg.AlertThreshold, sinks, slog.Default(), collector)

	// 6. リフレッシュスケジューラの初期化
	scheduler := refresh.NewScheduler(
		feedClient, quakeStore, detector, slog.Default(), collector,
		refresh.Config{
			Interval:     cfg.RefreshInterval,
			FetchTimeout: cfg.FetchTimeout,
			Bounds:       cfg.RegionBounds(),
		},
	)

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのレート制限はreq/min単位なのでreq/secに変換する
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.RefreshRate = rate.Limit(float64(cfg.RateLimitRefresh) / 60.0)
	rateLimiterCfg.RefreshBurst = cfg.RateLimitRefresh
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Store:             quakeStore,
		Refresher:         scheduler,
		Alerts:            detector,
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		MetricsHandler:    metrics.Handler(registry),
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// リフレッシュスケジューラをバックグラウンドで起動
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Start(ctx)
	}()

	go func() {
		slog.Info("モニターサーバーを起動します",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("サーバーの待ち受けに失敗しました", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("モニターサーバーをシャットダウンします...")

	// スケジューラを停止してからHTTPサーバーを閉じる
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("モニターサーバーを正常に停止しました")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
