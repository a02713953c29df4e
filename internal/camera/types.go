package camera

import (
	"context"
	"fmt"
	"time"
)

// DefaultPixelFormat は既定のピクセルフォーマット（fourcc）
const DefaultPixelFormat = "MJPG"

// Descriptor はカメラ1台を識別する不変の設定値
type Descriptor struct {
	ID          string // カメラの一意識別子
	Name        string // カメラの表示名
	Device      string // デバイスパス（例: /dev/video0）
	Width       int    // 画像幅（固定）
	Height      int    // 画像高さ（固定）
	PixelFormat string // fourcc（例: MJPG, YUYV）
}

// DisplayName は表示名を返す。未設定の場合はデバイスパスから生成する
func (d Descriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return fmt.Sprintf("カメラ %s", d.Device)
}

// Format はピクセルフォーマットを返す
func (d Descriptor) Format() string {
	if d.PixelFormat == "" {
		return DefaultPixelFormat
	}
	return d.PixelFormat
}

// Frame はデバイスから取得した1フレーム
type Frame struct {
	Sequence  uint64    // デバイスごとの連番（1始まり）
	Data      []byte    // 画素データのコピー
	BytesUsed int       // ドライバーが報告した有効バイト数
	Timestamp time.Time // 取得時刻
}

// Handle はオープン済みでストリーミング中のデバイスを表す
//
// Handle は1つのワーカーが排他的に所有する。並行呼び出しには対応しない。
type Handle interface {
	// WaitForFrame はフレームが読めるようになるか timeout が経過するまで待機する。
	// タイムアウトはエラーではなく ready=false を返す
	WaitForFrame(timeout time.Duration) (ready bool, err error)

	// ReadFrame は準備済みのフレームを取得し、バッファを再キューする
	ReadFrame() (Frame, error)

	// Close はストリーミングを停止してデバイスを解放する
	Close() error
}

// Opener はデバイスをオープンして Handle を返す
type Opener interface {
	Open(ctx context.Context, desc Descriptor) (Handle, error)
}

// OpenerFunc は関数を Opener として扱うためのアダプタ
type OpenerFunc func(ctx context.Context, desc Descriptor) (Handle, error)

// Open は f(ctx, desc) を呼び出す
func (f OpenerFunc) Open(ctx context.Context, desc Descriptor) (Handle, error) {
	return f(ctx, desc)
}

// DeviceInfo はカメラデバイスの詳細情報を表す
type DeviceInfo struct {
	Device string // デバイスパス
	Name   string // デバイス名
	Driver string // ドライバー名
}
