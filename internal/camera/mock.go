package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MockOpener はテストやハードウェアなしの実行で使うモックOpener
//
// 各 MockHandle は FrameInterval ごとに1フレームを生成する。
// 読み出しが間に合わない間のフレームは1バッファのデバイスと同様に捨てられる。
type MockOpener struct {
	FrameInterval time.Duration

	mu       sync.Mutex
	handles  []*MockHandle
	opens    int
	openErr  map[string]error
	readHook func(desc Descriptor, seq uint64) error
}

// NewMockOpener は新しいMockOpenerを作成する
func NewMockOpener(frameInterval time.Duration) *MockOpener {
	return &MockOpener{
		FrameInterval: frameInterval,
		openErr:       make(map[string]error),
	}
}

// Open はモックデバイスをオープンする
func (m *MockOpener) Open(ctx context.Context, desc Descriptor) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.opens++
	if err := ctx.Err(); err != nil {
		return nil, newDeviceError(desc.Device, "オープン", err)
	}
	if err, ok := m.openErr[desc.Device]; ok {
		return nil, newDeviceError(desc.Device, "オープン", err)
	}

	h := &MockHandle{
		desc:     desc,
		interval: m.FrameInterval,
		start:    time.Now(),
		readHook: m.readHook,
	}
	h.next = h.start.Add(h.interval)
	m.handles = append(m.handles, h)

	return h, nil
}

// SetOpenError はテスト用に指定デバイスのオープン失敗を設定する
func (m *MockOpener) SetOpenError(device string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr[device] = err
}

// SetReadHook はテスト用にフレーム取得時のフックを設定する。
// フックがエラーを返すと ReadFrame は DeviceError で失敗する
func (m *MockOpener) SetReadHook(hook func(desc Descriptor, seq uint64) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readHook = hook
}

// Opens はOpenの呼び出し回数を返す
func (m *MockOpener) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// Handles はオープン済みのハンドル一覧を返す
func (m *MockOpener) Handles() []*MockHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	handles := make([]*MockHandle, len(m.handles))
	copy(handles, m.handles)
	return handles
}

// mockFramePayload はJPEGのSOI/EOIマーカーのみのダミーデータ
var mockFramePayload = []byte{0xFF, 0xD8, 0xFF, 0xD9}

// MockHandle はモックデバイスのハンドル
type MockHandle struct {
	desc     Descriptor
	interval time.Duration
	start    time.Time
	next     time.Time
	readHook func(desc Descriptor, seq uint64) error

	seq    atomic.Uint64
	closes atomic.Int32
	closed atomic.Bool
}

// Descriptor はハンドルのデバイス記述子を返す
func (h *MockHandle) Descriptor() Descriptor {
	return h.desc
}

// WaitForFrame は次のフレーム時刻かタイムアウトまでタイマーで待機する
func (h *MockHandle) WaitForFrame(timeout time.Duration) (bool, error) {
	if h.closed.Load() {
		return false, newDeviceError(h.desc.Device, "フレーム待機", errors.New("クローズ済み"))
	}

	wait := time.Until(h.next)
	if wait <= 0 {
		return true, nil
	}

	ready := true
	if wait > timeout {
		wait = timeout
		ready = false
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	<-timer.C

	return ready, nil
}

// ReadFrame は準備済みのフレームを返し、次のフレーム時刻を進める
func (h *MockHandle) ReadFrame() (Frame, error) {
	if h.closed.Load() {
		return Frame{}, newDeviceError(h.desc.Device, "フレーム取得", errors.New("クローズ済み"))
	}

	now := time.Now()
	if now.Before(h.next) {
		return Frame{}, newDeviceError(h.desc.Device, "フレーム取得", errors.New("フレームが準備できていません"))
	}

	seq := h.seq.Load() + 1
	if h.readHook != nil {
		if err := h.readHook(h.desc, seq); err != nil {
			return Frame{}, newDeviceError(h.desc.Device, "フレーム取得", err)
		}
	}
	h.seq.Store(seq)

	// 再キュー後の次の周期でフレームが揃う
	if h.interval > 0 {
		elapsed := now.Sub(h.start)
		h.next = h.start.Add((elapsed/h.interval + 1) * h.interval)
	} else {
		h.next = now
	}

	data := make([]byte, len(mockFramePayload))
	copy(data, mockFramePayload)

	return Frame{Sequence: seq, Data: data, BytesUsed: len(data), Timestamp: now}, nil
}

// Close はハンドルをクローズする。呼び出し回数を記録する
func (h *MockHandle) Close() error {
	h.closes.Add(1)
	h.closed.Store(true)
	return nil
}

// Frames は取得済みフレーム数を返す
func (h *MockHandle) Frames() uint64 {
	return h.seq.Load()
}

// Closes はCloseの呼び出し回数を返す
func (h *MockHandle) Closes() int {
	return int(h.closes.Load())
}

// MockDiscovery はテスト用のモックDiscovery
//
// infos に含まれないデバイスはキャプチャ非対応のノードとして扱う。
type MockDiscovery struct {
	mu      sync.Mutex
	devices []string
	infos   map[string]DeviceInfo
	scanErr error
}

// NewMockDiscovery は新しいMockDiscoveryを作成する
func NewMockDiscovery(infos ...DeviceInfo) *MockDiscovery {
	m := &MockDiscovery{infos: make(map[string]DeviceInfo)}
	for _, info := range infos {
		m.devices = append(m.devices, info.Device)
		m.infos[info.Device] = info
	}
	return m
}

// AddNode はキャプチャ非対応のデバイスノードを追加する
func (m *MockDiscovery) AddNode(device string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = append(m.devices, device)
}

// SetScanError はテスト用にスキャン失敗を設定する
func (m *MockDiscovery) SetScanError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanErr = err
}

// ScanDevices はモックデバイス一覧を返す
func (m *MockDiscovery) ScanDevices(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.scanErr != nil {
		return nil, m.scanErr
	}
	devices := make([]string, len(m.devices))
	copy(devices, m.devices)
	return devices, nil
}

// IsDeviceAvailable はモックデバイスが登録済みかチェックする
func (m *MockDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.devices {
		if d == device {
			return true
		}
	}
	return false
}

// GetDeviceInfo はモックデバイス情報を返す
func (m *MockDiscovery) GetDeviceInfo(_ context.Context, device string) (*DeviceInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.infos[device]
	if !ok {
		return nil, fmt.Errorf("キャプチャデバイスではありません: %s", device)
	}
	return &info, nil
}
