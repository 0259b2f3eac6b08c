package queue

import (
	"context"
	"log/slog"
	"time"
)

// BatchProcessor はスケジューラが駆動するバッチ処理のインターフェース。
type BatchProcessor interface {
	ProcessBatch(ctx context.Context) (Summary, error)
}

// Scheduler はワーカーのバッチ処理を一定間隔で駆動する。
// HTTP経由のスケジューラ起動（cronエンドポイント）の代替として、
// 常駐プロセスとしてキューを消化するデプロイ形態で使う。
type Scheduler struct {
	worker BatchProcessor
	logger *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(worker BatchProcessor, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		worker: worker,
		logger: logger,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("キュースケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("キュースケジューラを停止しました")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce はバッチ処理を1回実行する。失敗しても次のティックで継続する。
func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.worker.ProcessBatch(ctx); err != nil {
		s.logger.Error("バッチ処理の実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
