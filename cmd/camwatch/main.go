// Package main はcamwatchコマンドの実装です
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	cli "github.com/jawher/mow.cli"
	log "github.com/sirupsen/logrus"

	"camwatch/internal/app"
	"camwatch/internal/camera"
	"camwatch/internal/config"
)

const (
	appName = "camwatch"
	appDesc = "複数カメラのフレーム取得とメモリ使用量の監視"

	// simulateFrameInterval は --simulate 時のモックデバイスのフレーム周期
	simulateFrameInterval = 33 * time.Millisecond
)

func main() {
	// 組み込みのデフォルト値と環境変数を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("設定の読み込みに失敗しました")
	}

	cmd := cli.App(appName, appDesc)

	logLevel := cmd.String(cli.StringOpt{
		Name:   "log-level",
		Desc:   "ログレベル (debug, info, warn, error)",
		EnvVar: "LOG_LEVEL",
		Value:  cfg.Log.Level,
	})

	logFormat := cmd.String(cli.StringOpt{
		Name:   "log-format",
		Desc:   "ログ形式 (text, json)",
		EnvVar: "LOG_FORMAT",
		Value:  cfg.Log.Format,
	})

	metricsBackend := cmd.String(cli.StringOpt{
		Name:   "metrics",
		Desc:   "メモリ使用量の取得方法 (auto, procfs, rusage, none)",
		EnvVar: "METRICS_BACKEND",
		Value:  cfg.Metrics.Backend,
	})

	poll := cmd.String(cli.StringOpt{
		Name:   "poll",
		Desc:   "フレーム待機の上限 (最大1s)",
		EnvVar: "CAPTURE_POLL_TIMEOUT",
		Value:  cfg.Capture.PollTimeout.String(),
	})

	idle := cmd.String(cli.StringOpt{
		Name:   "idle",
		Desc:   "フレーム取得後の待機時間",
		EnvVar: "CAPTURE_IDLE_INTERVAL",
		Value:  cfg.Capture.IdleInterval.String(),
	})

	reportInterval := cmd.String(cli.StringOpt{
		Name:   "report-interval",
		Desc:   "全体のメモリ使用量を出力する間隔",
		EnvVar: "REPORT_INTERVAL",
		Value:  cfg.Report.Interval.String(),
	})

	simulate := cmd.Bool(cli.BoolOpt{
		Name:   "simulate",
		Desc:   "実デバイスの代わりにモックデバイスを使う",
		EnvVar: "SIMULATE",
		Value:  false,
	})

	run := func() {
		// コマンドラインオプションで設定を上書き
		cfg.Log.Level = *logLevel
		cfg.Log.Format = *logFormat
		cfg.Metrics.Backend = *metricsBackend
		if err := applyDurations(cfg, *poll, *idle, *reportInterval); err != nil {
			log.WithError(err).Fatal("オプションが不正です")
		}
		if err := cfg.Validate(); err != nil {
			log.WithError(err).Fatal("設定の検証に失敗しました")
		}

		var opener camera.Opener
		if *simulate {
			opener = camera.NewMockOpener(simulateFrameInterval)
		}

		a, err := app.New(cfg, opener, os.Stdout)
		if err != nil {
			log.WithError(err).Fatal("アプリケーションの作成に失敗しました")
		}

		a.Start(context.Background())
	}

	cmd.Action = run

	cmd.Command("run", "割り込みまでキャプチャを実行する (デフォルト)", func(c *cli.Cmd) {
		c.Action = run
	})

	cmd.Command("devices", "V4L2キャプチャデバイスを一覧表示する", func(c *cli.Cmd) {
		c.Action = func() {
			if err := listDevices(context.Background(), camera.NewLinuxDiscovery(), os.Stdout); err != nil {
				log.WithError(err).Fatal("デバイスの検出に失敗しました")
			}
		}
	})

	if err := cmd.Run(os.Args); err != nil {
		log.WithError(err).Fatal("コマンドの実行に失敗しました")
	}
}

// applyDurations は時間指定のオプションを設定に反映する
func applyDurations(cfg *config.Config, poll, idle, report string) error {
	var err error
	if cfg.Capture.PollTimeout, err = time.ParseDuration(poll); err != nil {
		return fmt.Errorf("--poll: %w", err)
	}
	if cfg.Capture.IdleInterval, err = time.ParseDuration(idle); err != nil {
		return fmt.Errorf("--idle: %w", err)
	}
	if cfg.Report.Interval, err = time.ParseDuration(report); err != nil {
		return fmt.Errorf("--report-interval: %w", err)
	}
	return nil
}

// listDevices はデバイスノードをスキャンし、キャプチャ可能なものを out に表示する
func listDevices(ctx context.Context, discovery camera.Discovery, out io.Writer) error {
	nodes, err := discovery.ScanDevices(ctx)
	if err != nil {
		return fmt.Errorf("デバイスのスキャンに失敗: %w", err)
	}

	found := 0
	for _, node := range nodes {
		info, err := discovery.GetDeviceInfo(ctx, node)
		if err != nil {
			// メタデータ用のノードなどはキャプチャできない
			log.WithError(err).WithField("device", node).Debug("デバイスをスキップしました")
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t(%s)\n", info.Device, info.Name, info.Driver)
		found++
	}

	if found == 0 {
		fmt.Fprintln(out, "キャプチャデバイスが見つかりません")
	}
	return nil
}
