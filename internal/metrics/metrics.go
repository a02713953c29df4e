// Package metrics はプロセスのメモリ使用量を取得する
//
// 取得は診断目的に限られるため、失敗してもエラーを呼び出し元に返さず 0.0 を返す。
// バックエンドはビルド時（Default）または設定値（ByName）で選択する。
package metrics

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// ErrMetricsUnavailable はメモリ使用量を取得できなかったことを表す
var ErrMetricsUnavailable = errors.New("メモリ使用量を取得できません")

// バックエンド名
const (
	BackendAuto   = "auto"
	BackendProcfs = "procfs"
	BackendRusage = "rusage"
	BackendNone   = "none"
)

// ProcessMetrics は現在の常駐メモリ量をMB単位で返す
type ProcessMetrics interface {
	CurrentResidentMemoryMB() float64
}

// Reader はプラットフォームごとのメモリ取得バックエンド
type Reader interface {
	// ResidentBytes は常駐メモリ量をバイト単位で返す
	ResidentBytes() (uint64, error)
}

// ByName は設定値からバックエンドを選択する
func ByName(name string) (Reader, error) {
	switch name {
	case "", BackendAuto:
		return Default(), nil
	case BackendProcfs:
		return NewProcfsReader(), nil
	case BackendRusage:
		return NewRusageReader(), nil
	case BackendNone:
		return zeroReader{}, nil
	default:
		return nil, fmt.Errorf("不明なメトリクスバックエンド: %s", name)
	}
}

// Process は Reader のエラーを吸収する ProcessMetrics 実装
type Process struct {
	reader Reader
	logger logrus.FieldLogger

	// 連続失敗中はログを1回に抑える
	failing atomic.Bool
}

// NewProcess は新しいProcessを作成する
func NewProcess(reader Reader, logger logrus.FieldLogger) *Process {
	if reader == nil {
		reader = zeroReader{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Process{reader: reader, logger: logger}
}

// CurrentResidentMemoryMB は常駐メモリ量をMB単位で返す。失敗時は 0.0
func (p *Process) CurrentResidentMemoryMB() (mb float64) {
	defer func() {
		if r := recover(); r != nil {
			p.unavailable(fmt.Errorf("%w: %v", ErrMetricsUnavailable, r))
			mb = 0
		}
	}()

	bytes, err := p.reader.ResidentBytes()
	if err != nil {
		p.unavailable(err)
		return 0
	}

	if p.failing.Swap(false) {
		p.logger.Debug("メモリ使用量の取得が復旧しました")
	}
	return float64(bytes) / 1024 / 1024
}

func (p *Process) unavailable(err error) {
	if !p.failing.Swap(true) {
		p.logger.WithError(err).Debug("メモリ使用量の取得に失敗しました")
	}
}

// zeroReader は常に0を返すフォールバック
type zeroReader struct{}

func (zeroReader) ResidentBytes() (uint64, error) {
	return 0, nil
}

// NewZeroReader は常に0を返すReaderを作成する
func NewZeroReader() Reader {
	return zeroReader{}
}
