//go:build !linux

package metrics

import "fmt"

type procfsReader struct{}

// NewProcfsReader はprocfsのない環境では常に失敗するバックエンドを返す
func NewProcfsReader() Reader {
	return procfsReader{}
}

func (procfsReader) ResidentBytes() (uint64, error) {
	return 0, fmt.Errorf("%w: procfsがありません", ErrMetricsUnavailable)
}
