package camera

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockOpener_FrameSequence(t *testing.T) {
	ctx := context.Background()
	opener := NewMockOpener(10 * time.Millisecond)

	h, err := opener.Open(ctx, Descriptor{Device: "/dev/video0", Width: 320, Height: 240})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = h.Close() }()

	var last uint64
	for i := 0; i < 5; i++ {
		ready, err := h.WaitForFrame(time.Second)
		if err != nil {
			t.Fatalf("WaitForFrame failed: %v", err)
		}
		if !ready {
			t.Fatal("Expected frame to be ready")
		}

		frame, err := h.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if frame.Sequence != last+1 {
			t.Errorf("Expected sequence %d, got %d", last+1, frame.Sequence)
		}
		if len(frame.Data) == 0 {
			t.Error("Expected frame data")
		}
		if frame.BytesUsed != len(frame.Data) {
			t.Errorf("Expected BytesUsed %d, got %d", len(frame.Data), frame.BytesUsed)
		}
		last = frame.Sequence
	}

	if opener.Opens() != 1 {
		t.Errorf("Expected 1 open, got %d", opener.Opens())
	}
}

func TestMockHandle_WaitTimeout(t *testing.T) {
	opener := NewMockOpener(time.Hour)

	h, err := opener.Open(context.Background(), Descriptor{Device: "/dev/video0"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	start := time.Now()
	ready, err := h.WaitForFrame(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForFrame failed: %v", err)
	}
	if ready {
		t.Error("Expected timeout without frame")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Expected to block for the timeout, returned after %v", elapsed)
	}

	if _, err := h.ReadFrame(); err == nil {
		t.Error("Expected ReadFrame to fail before a frame is ready")
	}
}

func TestMockOpener_Failures(t *testing.T) {
	ctx := context.Background()
	opener := NewMockOpener(time.Millisecond)
	opener.SetOpenError("/dev/video1", errors.New("busy"))
	opener.SetReadHook(func(_ Descriptor, seq uint64) error {
		if seq == 2 {
			return errors.New("unplugged")
		}
		return nil
	})

	if _, err := opener.Open(ctx, Descriptor{Device: "/dev/video1"}); err == nil {
		t.Fatal("Expected open failure")
	} else {
		var devErr *DeviceError
		if !errors.As(err, &devErr) {
			t.Errorf("Expected DeviceError, got %T", err)
		}
	}

	h, err := opener.Open(ctx, Descriptor{Device: "/dev/video0"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := h.WaitForFrame(time.Second); err != nil {
		t.Fatalf("WaitForFrame failed: %v", err)
	}
	if _, err := h.ReadFrame(); err != nil {
		t.Fatalf("first ReadFrame failed: %v", err)
	}
	if _, err := h.WaitForFrame(time.Second); err != nil {
		t.Fatalf("WaitForFrame failed: %v", err)
	}
	if _, err := h.ReadFrame(); err == nil {
		t.Fatal("Expected second ReadFrame to fail")
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := h.WaitForFrame(time.Millisecond); err == nil {
		t.Error("Expected WaitForFrame to fail after close")
	}

	mh := opener.Handles()[0]
	if mh.Closes() != 1 {
		t.Errorf("Expected 1 close, got %d", mh.Closes())
	}
	if mh.Frames() != 1 {
		t.Errorf("Expected 1 frame, got %d", mh.Frames())
	}
	if opener.Opens() != 2 {
		t.Errorf("Expected 2 opens, got %d", opener.Opens())
	}
}
