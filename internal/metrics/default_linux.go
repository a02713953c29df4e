//go:build linux

package metrics

// Default はビルド対象のプラットフォームに合ったバックエンドを返す
func Default() Reader {
	return NewProcfsReader()
}
