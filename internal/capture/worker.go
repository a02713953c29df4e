package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"camwatch/internal/camera"
	"camwatch/internal/metrics"
)

// State はワーカーの状態を表す
type State string

const (
	StateStarting State = "starting" // デバイスをオープン中
	StateRunning  State = "running"  // キャプチャ中
	StateStopping State = "stopping" // デバイスをクローズ中
	StateStopped  State = "stopped"  // 正常終了
	StateFailed   State = "failed"   // デバイスエラーで終了
)

// Terminal は終了状態かどうかを返す
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}

// WorkerOptions はキャプチャループの間隔設定
type WorkerOptions struct {
	// PollTimeout はフレーム待機の上限。停止シグナルの確認間隔になる
	PollTimeout time.Duration
	// IdleInterval はフレーム取得後の待機時間
	IdleInterval time.Duration
}

// Result はワーカー終了時の結果
type Result struct {
	Name   string
	Device string
	State  State
	Frames uint64
	Err    error
}

// Worker はカメラ1台のキャプチャループを実行する
type Worker struct {
	desc     camera.Descriptor
	opener   camera.Opener
	stop     *StopSignal
	metrics  metrics.ProcessMetrics
	reporter *Reporter
	logger   logrus.FieldLogger
	opts     WorkerOptions

	state  atomic.Value
	frames atomic.Uint64

	mu  sync.Mutex
	err error
}

// NewWorker は新しいWorkerを作成する
func NewWorker(desc camera.Descriptor, opener camera.Opener, stop *StopSignal, pm metrics.ProcessMetrics,
	reporter *Reporter, logger logrus.FieldLogger, opts WorkerOptions) *Worker {
	w := &Worker{
		desc:     desc,
		opener:   opener,
		stop:     stop,
		metrics:  pm,
		reporter: reporter,
		logger: logger.WithFields(logrus.Fields{
			"worker": desc.DisplayName(),
			"device": desc.Device,
		}),
		opts: opts,
	}
	w.state.Store(StateStarting)
	return w
}

// Name はワーカー名を返す
func (w *Worker) Name() string {
	return w.desc.DisplayName()
}

// State は現在の状態を返す
func (w *Worker) State() State {
	return w.state.Load().(State)
}

// Frames は取得済みフレーム数を返す
func (w *Worker) Frames() uint64 {
	return w.frames.Load()
}

// Result は現在の結果を返す。終了後に呼び出す
func (w *Worker) Result() Result {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Result{
		Name:   w.Name(),
		Device: w.desc.Device,
		State:  w.State(),
		Frames: w.Frames(),
		Err:    w.err,
	}
}

// Run はデバイスをオープンし、停止シグナルかエラーまでキャプチャを続ける
func (w *Worker) Run(ctx context.Context) Result {
	w.setState(StateStarting)

	h, err := w.open(ctx)
	if err != nil {
		return w.fail(err)
	}

	w.setState(StateRunning)
	w.logger.Infof("キャプチャを開始しました (%dx%d)", w.desc.Width, w.desc.Height)
	w.reporter.Started(w.Name(), w.desc.Device, w.desc.Width, w.desc.Height)

	loopErr := w.capture(h)

	// ループの終わり方に関わらずここで一度だけクローズする
	w.setState(StateStopping)
	if err := h.Close(); err != nil {
		w.logger.WithError(err).Warn("デバイスのクローズに失敗しました")
	}

	if loopErr != nil {
		return w.fail(loopErr)
	}

	w.setState(StateStopped)
	w.logger.WithField("frames", w.Frames()).Info("キャプチャを停止しました")
	w.reporter.Stopped(w.Name(), w.Frames())

	return w.Result()
}

// open はデバイスをオープンする。パニックはエラーに変換する
func (w *Worker) open(ctx context.Context) (h camera.Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h = nil
			err = fmt.Errorf("デバイスのオープン中にパニックが発生: %v", r)
		}
	}()

	return w.opener.Open(ctx, w.desc)
}

// capture はキャプチャループ本体。パニックはエラーに変換する
func (w *Worker) capture(h camera.Handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("キャプチャループでパニックが発生: %v", r)
		}
	}()

	var lastSeq uint64
	for !w.stop.Raised() {
		ready, werr := h.WaitForFrame(w.opts.PollTimeout)
		if werr != nil {
			return werr
		}
		if w.stop.Raised() {
			return nil
		}
		if !ready {
			continue
		}

		frame, rerr := h.ReadFrame()
		if rerr != nil {
			return rerr
		}
		if frame.Sequence <= lastSeq {
			w.logger.WithFields(logrus.Fields{
				"sequence": frame.Sequence,
				"last":     lastSeq,
			}).Warn("フレーム番号が増加していません")
		}
		lastSeq = frame.Sequence

		n := w.frames.Add(1)
		w.reporter.Frame(w.Name(), n, w.metrics.CurrentResidentMemoryMB())

		if w.stop.Sleep(w.opts.IdleInterval) {
			return nil
		}
	}

	return nil
}

func (w *Worker) fail(err error) Result {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()

	w.setState(StateFailed)
	w.logger.WithError(err).WithField("frames", w.Frames()).Error("キャプチャワーカーが異常終了しました")
	w.reporter.Failed(w.Name(), w.Frames(), err)

	return w.Result()
}

func (w *Worker) setState(s State) {
	w.state.Store(s)
}
