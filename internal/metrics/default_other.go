//go:build !linux && !darwin

package metrics

// Default はビルド対象のプラットフォームに合ったバックエンドを返す
func Default() Reader {
	return zeroReader{}
}
