//go:build linux

package camera

import (
	"context"
	"sort"

	"github.com/korandiz/v4l"
)

// ListDevices はシステム内のビデオキャプチャデバイスを列挙する
func ListDevices(ctx context.Context) ([]DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var devices []DeviceInfo
	for _, info := range v4l.FindDevices() {
		if !info.Camera {
			continue
		}
		devices = append(devices, DeviceInfo{
			Device: info.Path,
			Name:   info.DeviceName,
			Driver: info.DriverName,
		})
	}

	sort.Slice(devices, func(i, j int) bool {
		return extractDeviceNumber(devices[i].Device) < extractDeviceNumber(devices[j].Device)
	})

	return devices, nil
}
