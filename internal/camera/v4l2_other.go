//go:build !linux

package camera

import (
	"context"
	"errors"
)

// V4L2Opener はLinux以外では常に失敗する
type V4L2Opener struct{}

// NewV4L2Opener は新しいV4L2Openerを作成する
func NewV4L2Opener() Opener {
	return &V4L2Opener{}
}

// Open はV4L2がサポートされていないことを示す DeviceError を返す
func (o *V4L2Opener) Open(_ context.Context, desc Descriptor) (Handle, error) {
	return nil, newDeviceError(desc.Device, "オープン", errors.ErrUnsupported)
}
