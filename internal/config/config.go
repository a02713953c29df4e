package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"camwatch/internal/camera"
	"camwatch/internal/metrics"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Capture CaptureConfig
	Report  ReportConfig
	Log     LogConfig
	Metrics MetricsConfig
}

// CaptureConfig はキャプチャ関連の設定
type CaptureConfig struct {
	// 複数カメラ対応のための設定
	Devices []CameraDevice

	// ループの間隔
	PollTimeout  time.Duration // フレーム待機の上限（停止確認の間隔）
	IdleInterval time.Duration // フレーム取得後の待機時間

	// デフォルト設定
	DefaultWidth  int // 画像幅
	DefaultHeight int // 画像高さ
}

// CameraDevice は個別カメラの設定
type CameraDevice struct {
	ID     string // カメラID
	Name   string // カメラ名
	Device string // デバイスパス (例: /dev/video0)

	// カメラ固有の設定（デフォルト値より優先）
	Width       int
	Height      int
	PixelFormat string
}

// ReportConfig は全体報告の設定
type ReportConfig struct {
	Interval time.Duration // メモリ使用量の報告間隔
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// MetricsConfig はメモリ使用量取得の設定
type MetricsConfig struct {
	Backend string // auto, procfs, rusage, none
}

// ポーリング間隔の範囲。poll(2)はミリ秒単位のため1ms未満は受け付けない
const (
	pollTimeoutMin   = time.Millisecond
	pollTimeoutLimit = time.Second
)

// DefaultDevices は組み込みのカメラ一覧を返す。
// カメラを増やす場合はここに追加する
func DefaultDevices() []CameraDevice {
	return []CameraDevice{
		{ID: "camera0", Name: "Camera 0", Device: "/dev/video0"},
		// {ID: "camera2", Name: "Camera 2", Device: "/dev/video2"},
	}
}

// Load は設定を読み込む
// 組み込みのデフォルト値に環境変数の上書きを適用する
func Load() (*Config, error) {
	cfg := &Config{
		Capture: CaptureConfig{
			Devices:       DefaultDevices(),
			PollTimeout:   getEnvAsDurationOrDefault("CAPTURE_POLL_TIMEOUT", time.Second),
			IdleInterval:  getEnvAsDurationOrDefault("CAPTURE_IDLE_INTERVAL", 100*time.Millisecond),
			DefaultWidth:  getEnvAsIntOrDefault("CAPTURE_WIDTH", 320),
			DefaultHeight: getEnvAsIntOrDefault("CAPTURE_HEIGHT", 240),
		},
		Report: ReportConfig{
			Interval: getEnvAsDurationOrDefault("REPORT_INTERVAL", time.Second),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
		Metrics: MetricsConfig{
			Backend: getEnvOrDefault("METRICS_BACKEND", metrics.BackendAuto),
		},
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// カメラ設定の検証
	if len(c.Capture.Devices) == 0 {
		return fmt.Errorf("カメラデバイスが設定されていません")
	}

	seen := make(map[string]bool)
	for _, d := range c.Capture.Devices {
		if d.Device == "" {
			return fmt.Errorf("カメラ %q のデバイスパスが空です", d.Name)
		}
		if seen[d.Device] {
			return fmt.Errorf("デバイス %s が重複しています", d.Device)
		}
		seen[d.Device] = true

		w, h := c.geometry(d)
		if w <= 0 || h <= 0 {
			return fmt.Errorf("無効な解像度 %dx%d: %s", w, h, d.Device)
		}
	}

	if c.Capture.PollTimeout < pollTimeoutMin || c.Capture.PollTimeout > pollTimeoutLimit {
		return fmt.Errorf("無効なポーリング間隔: %s (%s から %s)", c.Capture.PollTimeout, pollTimeoutMin, pollTimeoutLimit)
	}
	if c.Capture.IdleInterval < 0 {
		return fmt.Errorf("無効な待機時間: %s", c.Capture.IdleInterval)
	}

	if c.Report.Interval <= 0 {
		return fmt.Errorf("無効な報告間隔: %s", c.Report.Interval)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("無効なログ形式: %s", c.Log.Format)
	}

	if _, err := metrics.ByName(c.Metrics.Backend); err != nil {
		return err
	}

	return nil
}

// Descriptors はカメラ設定からデバイス記述子を作成する
func (c *Config) Descriptors() []camera.Descriptor {
	descs := make([]camera.Descriptor, 0, len(c.Capture.Devices))
	for _, d := range c.Capture.Devices {
		id := d.ID
		if id == "" {
			id = uuid.New().String()
		}
		w, h := c.geometry(d)
		descs = append(descs, camera.Descriptor{
			ID:          id,
			Name:        d.Name,
			Device:      d.Device,
			Width:       w,
			Height:      h,
			PixelFormat: d.PixelFormat,
		})
	}
	return descs
}

// geometry はカメラ固有の解像度を優先して返す
func (c *Config) geometry(d CameraDevice) (int, int) {
	w, h := d.Width, d.Height
	if w == 0 {
		w = c.Capture.DefaultWidth
	}
	if h == 0 {
		h = c.Capture.DefaultHeight
	}
	return w, h
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault は環境変数を時間として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
