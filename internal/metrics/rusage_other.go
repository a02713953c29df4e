//go:build !unix

package metrics

import "fmt"

type rusageReader struct{}

// NewRusageReader はgetrusageのない環境では常に失敗するバックエンドを返す
func NewRusageReader() Reader {
	return rusageReader{}
}

func (rusageReader) ResidentBytes() (uint64, error) {
	return 0, fmt.Errorf("%w: getrusageがありません", ErrMetricsUnavailable)
}
