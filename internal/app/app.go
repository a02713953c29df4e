// Package app は設定からキャプチャ監視を組み立てて実行する
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"camwatch/internal/camera"
	"camwatch/internal/capture"
	"camwatch/internal/config"
	"camwatch/internal/logging"
	"camwatch/internal/metrics"
)

// App はキャプチャ監視アプリケーション
type App struct {
	config     *config.Config
	logger     *logrus.Logger
	supervisor *capture.Supervisor
}

// New は新しいAppを作成する。out には状態行が出力される
func New(cfg *config.Config, opener camera.Opener, out io.Writer) (*App, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, nil)
	if err != nil {
		return nil, fmt.Errorf("ロガーの作成に失敗: %w", err)
	}

	return newWithLogger(cfg, opener, out, logger)
}

func newWithLogger(cfg *config.Config, opener camera.Opener, out io.Writer, logger *logrus.Logger) (*App, error) {
	reader, err := metrics.ByName(cfg.Metrics.Backend)
	if err != nil {
		return nil, fmt.Errorf("メトリクスバックエンドの選択に失敗: %w", err)
	}

	if opener == nil {
		opener = camera.NewV4L2Opener()
	}

	sup := capture.New(capture.Options{
		WorkerOptions: capture.WorkerOptions{
			PollTimeout:  cfg.Capture.PollTimeout,
			IdleInterval: cfg.Capture.IdleInterval,
		},
		ReportInterval: cfg.Report.Interval,
	}, opener, metrics.NewProcess(reader, logger), capture.NewReporter(out), logger)

	return &App{
		config:     cfg,
		logger:     logger,
		supervisor: sup,
	}, nil
}

// Logger はアプリケーションのロガーを返す
func (a *App) Logger() *logrus.Logger {
	return a.logger
}

// Start はSIGINT/SIGTERMを受信するか ctx が終了するまでキャプチャを実行する
func (a *App) Start(ctx context.Context) []capture.Result {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	descs := a.config.Descriptors()
	a.logger.WithField("session", a.supervisor.SessionID()).Infof("%d台のカメラで監視を開始します", len(descs))

	return a.supervisor.Run(ctx, descs)
}
