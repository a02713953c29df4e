package camera

import "fmt"

// DeviceError はデバイス操作の失敗を表す
type DeviceError struct {
	Device string // デバイスパス
	Op     string // 失敗した操作
	Err    error  // 原因
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("デバイス %s の%sに失敗: %v", e.Device, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

func newDeviceError(device, op string, err error) error {
	return &DeviceError{Device: device, Op: op, Err: err}
}
