//go:build !linux

package camera

import (
	"context"
	"errors"
)

// ListDevices はLinux以外ではサポートされない
func ListDevices(_ context.Context) ([]DeviceInfo, error) {
	return nil, errors.ErrUnsupported
}
