package camera

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDeviceError(t *testing.T) {
	err := newDeviceError("/dev/video0", "オープン", io.ErrUnexpectedEOF)

	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("Expected *DeviceError, got %T", err)
	}
	if devErr.Device != "/dev/video0" {
		t.Errorf("Expected device /dev/video0, got %s", devErr.Device)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("Expected cause to be unwrapped")
	}
	if !strings.Contains(err.Error(), "/dev/video0") {
		t.Errorf("Expected message to contain device path: %s", err.Error())
	}
}

func TestDescriptorDefaults(t *testing.T) {
	desc := Descriptor{Device: "/dev/video2"}

	if desc.Format() != DefaultPixelFormat {
		t.Errorf("Expected default format %s, got %s", DefaultPixelFormat, desc.Format())
	}
	if !strings.Contains(desc.DisplayName(), "/dev/video2") {
		t.Errorf("Expected display name to contain device path, got %s", desc.DisplayName())
	}

	desc.Name = "Camera 2"
	if desc.DisplayName() != "Camera 2" {
		t.Errorf("Expected display name Camera 2, got %s", desc.DisplayName())
	}
}
