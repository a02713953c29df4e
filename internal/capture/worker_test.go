package capture

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"camwatch/internal/camera"
)

func TestWorker_StopsOnSignal(t *testing.T) {
	env := newTestEnv(10 * time.Millisecond)
	stop := NewStopSignal()
	desc := testDescriptors(1)[0]

	w := NewWorker(desc, env.opener, stop, fixedMetrics(12.5), env.reporter, env.logger,
		WorkerOptions{PollTimeout: 50 * time.Millisecond, IdleInterval: 5 * time.Millisecond})
	if w.State() != StateStarting {
		t.Errorf("Expected initial state starting, got %s", w.State())
	}

	done := make(chan Result, 1)
	go func() { done <- w.Run(context.Background()) }()

	time.Sleep(100 * time.Millisecond)
	if w.State() != StateRunning {
		t.Errorf("Expected running state, got %s", w.State())
	}
	stop.Raise()

	var res Result
	select {
	case res = <-done:
	case <-time.After(time.Second):
		t.Fatal("Worker did not stop within 1s")
	}

	if res.State != StateStopped {
		t.Errorf("Expected stopped, got %s (err=%v)", res.State, res.Err)
	}
	if res.Frames == 0 {
		t.Error("Expected frames to be captured")
	}

	h := env.opener.Handles()[0]
	if h.Closes() != 1 {
		t.Errorf("Expected 1 close, got %d", h.Closes())
	}
	// 取得に成功したフレームだけが数えられる
	if res.Frames != h.Frames() {
		t.Errorf("Expected frame count %d to match reads %d", res.Frames, h.Frames())
	}

	out := env.out.String()
	if !strings.Contains(out, "Camera 0 Frame 1 | Memory: 12.50 MB") {
		t.Errorf("Expected first frame line, got:\n%s", out)
	}
	if !strings.Contains(out, "Camera 0 stopped. Total frames: ") {
		t.Errorf("Expected summary line, got:\n%s", out)
	}
}

func TestWorker_ClosesOnce(t *testing.T) {
	testCases := []struct {
		name           string
		hook           func(camera.Descriptor, uint64) error
		expectedFrames uint64
		expectedCause  string
	}{
		{
			name: "読み取りエラー",
			hook: func(_ camera.Descriptor, seq uint64) error {
				if seq == 3 {
					return errors.New("device unplugged")
				}
				return nil
			},
			expectedFrames: 2,
			expectedCause:  "device unplugged",
		},
		{
			name: "ループ内のパニック",
			hook: func(_ camera.Descriptor, seq uint64) error {
				if seq == 2 {
					panic("driver bug")
				}
				return nil
			},
			expectedFrames: 1,
			expectedCause:  "driver bug",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(5 * time.Millisecond)
			env.opener.SetReadHook(tc.hook)

			w := NewWorker(testDescriptors(1)[0], env.opener, NewStopSignal(), fixedMetrics(1), env.reporter, env.logger,
				WorkerOptions{PollTimeout: 50 * time.Millisecond, IdleInterval: time.Millisecond})

			res := w.Run(context.Background())

			if res.State != StateFailed {
				t.Fatalf("Expected failed, got %s", res.State)
			}
			if res.Frames != tc.expectedFrames {
				t.Errorf("Expected %d frames, got %d", tc.expectedFrames, res.Frames)
			}
			if res.Err == nil || !strings.Contains(res.Err.Error(), tc.expectedCause) {
				t.Errorf("Expected cause %q, got %v", tc.expectedCause, res.Err)
			}
			if closes := env.opener.Handles()[0].Closes(); closes != 1 {
				t.Errorf("Expected 1 close, got %d", closes)
			}

			entries := env.errorEntries()
			if len(entries) != 1 {
				t.Fatalf("Expected 1 error log entry, got %d", len(entries))
			}
			if entries[0].Data["worker"] != "Camera 0" {
				t.Errorf("Expected worker field, got %v", entries[0].Data["worker"])
			}
			if entries[0].Data["frames"] != tc.expectedFrames {
				t.Errorf("Expected frames field %d, got %v", tc.expectedFrames, entries[0].Data["frames"])
			}
		})
	}
}

func TestWorker_OpenFailure(t *testing.T) {
	env := newTestEnv(10 * time.Millisecond)
	env.opener.SetOpenError("/dev/video0", errors.New("no such device"))

	w := NewWorker(testDescriptors(1)[0], env.opener, NewStopSignal(), fixedMetrics(1), env.reporter, env.logger,
		WorkerOptions{PollTimeout: 50 * time.Millisecond})

	res := w.Run(context.Background())

	if res.State != StateFailed {
		t.Fatalf("Expected failed, got %s", res.State)
	}
	var devErr *camera.DeviceError
	if !errors.As(res.Err, &devErr) {
		t.Errorf("Expected DeviceError, got %T", res.Err)
	}
	if len(env.opener.Handles()) != 0 {
		t.Error("Expected no handle to be created")
	}
	if !strings.Contains(env.out.String(), "Camera 0 failed after 0 frames") {
		t.Errorf("Expected failure line, got:\n%s", env.out.String())
	}
}

func TestWorker_OpenPanic(t *testing.T) {
	env := newTestEnv(10 * time.Millisecond)
	opener := camera.OpenerFunc(func(context.Context, camera.Descriptor) (camera.Handle, error) {
		panic("ioctl table corrupted")
	})

	w := NewWorker(testDescriptors(1)[0], opener, NewStopSignal(), fixedMetrics(1), env.reporter, env.logger,
		WorkerOptions{PollTimeout: 50 * time.Millisecond})

	res := w.Run(context.Background())

	if res.State != StateFailed {
		t.Fatalf("Expected failed, got %s", res.State)
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "ioctl table corrupted") {
		t.Errorf("Expected panic cause in error, got %v", res.Err)
	}
	if !strings.Contains(env.out.String(), "Camera 0 failed after 0 frames") {
		t.Errorf("Expected failure line, got:\n%s", env.out.String())
	}
}

func TestState_Terminal(t *testing.T) {
	testCases := []struct {
		state    State
		terminal bool
	}{
		{StateStarting, false},
		{StateRunning, false},
		{StateStopping, false},
		{StateStopped, true},
		{StateFailed, true},
	}

	for _, tc := range testCases {
		if tc.state.Terminal() != tc.terminal {
			t.Errorf("%s.Terminal() = %v, expected %v", tc.state, !tc.terminal, tc.terminal)
		}
	}
}
