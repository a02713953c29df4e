package capture

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"camwatch/internal/camera"
	"camwatch/internal/metrics"
)

// Options はSupervisorの設定
type Options struct {
	WorkerOptions

	// ReportInterval は全体のメモリ使用量を出力する間隔
	ReportInterval time.Duration
}

// Supervisor はワーカーの起動・集約報告・停止を管理する
type Supervisor struct {
	opts     Options
	opener   camera.Opener
	metrics  metrics.ProcessMetrics
	reporter *Reporter
	logger   logrus.FieldLogger
	session  string

	stop  *StopSignal
	group errgroup.Group

	mu      sync.Mutex
	workers []*Worker

	stopOnce sync.Once
	results  []Result
}

// New は新しいSupervisorを作成する
func New(opts Options, opener camera.Opener, pm metrics.ProcessMetrics, reporter *Reporter, logger logrus.FieldLogger) *Supervisor {
	if reporter == nil {
		reporter = NewReporter(nil)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = time.Second
	}

	session := uuid.New().String()
	return &Supervisor{
		opts:     opts,
		opener:   opener,
		metrics:  pm,
		reporter: reporter,
		logger:   logger.WithField("session", session),
		session:  session,
		stop:     NewStopSignal(),
	}
}

// SessionID はこの実行の識別子を返す
func (s *Supervisor) SessionID() string {
	return s.session
}

// Workers は起動済みのワーカー一覧を返す
func (s *Supervisor) Workers() []*Worker {
	s.mu.Lock()
	defer s.mu.Unlock()

	workers := make([]*Worker, len(s.workers))
	copy(workers, s.workers)
	return workers
}

// Start はデバイスごとにワーカーを起動する
//
// ワーカーの停止は StopSignal だけで行うため、ctx のキャンセルはワーカーに伝えない。
func (s *Supervisor) Start(ctx context.Context, descs []camera.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop.Raised() {
		s.logger.Warn("停止済みのためワーカーを起動しません")
		return
	}

	workerCtx := context.WithoutCancel(ctx)
	for _, desc := range descs {
		w := NewWorker(desc, s.opener, s.stop, s.metrics, s.reporter, s.logger, s.opts.WorkerOptions)
		s.workers = append(s.workers, w)

		s.group.Go(func() error {
			w.Run(workerCtx)
			return nil
		})
	}

	s.logger.Infof("%d台のキャプチャワーカーを起動しました", len(descs))
}

// Run はワーカーを起動し、ctx が終了するまで全体のメモリ使用量を報告する。
// 終了時には Stop を呼び出し、全ワーカーの結果を返す
func (s *Supervisor) Run(ctx context.Context, descs []camera.Descriptor) []Result {
	s.Start(ctx, descs)

	ticker := time.NewTicker(s.opts.ReportInterval)
	defer ticker.Stop()

	s.reporter.Total(s.metrics.CurrentResidentMemoryMB())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("割り込みを受信しました。停止します")
			return s.Stop()
		case <-s.stop.Done():
			return s.Stop()
		case <-ticker.C:
			s.reporter.Total(s.metrics.CurrentResidentMemoryMB())
		}
	}
}

// Stop は停止シグナルを発火し、全ワーカーの終了を待つ。
// 2回目以降の呼び出しは最初の結果を返すだけで何もしない
func (s *Supervisor) Stop() []Result {
	s.stopOnce.Do(func() {
		// Start と排他にし、Wait の後にワーカーが追加されないようにする
		s.mu.Lock()
		raised := s.stop.Raise()
		s.mu.Unlock()
		if raised {
			s.logger.Info("停止シグナルを送信しました")
		}

		// ワーカーはエラーを返さない
		_ = s.group.Wait()

		var stopped, failed int
		for _, w := range s.Workers() {
			r := w.Result()
			s.results = append(s.results, r)
			if r.State == StateFailed {
				failed++
			} else {
				stopped++
			}
		}

		s.reporter.AllStopped()
		s.logger.WithFields(logrus.Fields{
			"stopped": stopped,
			"failed":  failed,
		}).Info("全てのキャプチャが終了しました")
	})

	results := make([]Result, len(s.results))
	copy(results, s.results)
	return results
}
