package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrorSink はバックグラウンド処理の失敗の通知先。
// HTTP応答は既に返却済みのため、失敗はここに集約して可観測にする。
type ErrorSink func(err error)

// Dispatcher は検証済みペイロードの非同期処理を管理する。
// Webhookハンドラーは受理応答を即座に返し、実処理はDispatcherの
// ゴルーチンで行われる。グレースフルシャットダウン時はWaitで完了を待つ。
type Dispatcher struct {
	processor EventProcessor
	logger    *slog.Logger
	timeout   time.Duration
	sink      ErrorSink
	wg        sync.WaitGroup
}

// NewDispatcher はDispatcherの新しいインスタンスを生成する。
// sinkがnilの場合はロガーへのエラー出力のみ行う。
func NewDispatcher(processor EventProcessor, logger *slog.Logger, timeout time.Duration, sink ErrorSink) *Dispatcher {
	return &Dispatcher{
		processor: processor,
		logger:    logger,
		timeout:   timeout,
		sink:      sink,
	}
}

// Dispatch はペイロードの処理をバックグラウンドで開始する。
// リクエストのcontextは応答返却で打ち切られるため使わず、
// 独立したタイムアウト付きcontextで処理する。
func (d *Dispatcher) Dispatch(payload *Payload) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.report(fmt.Errorf("Webhook処理がpanicしました: %v", r))
				d.logger.Error("panicのスタックトレース",
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.processor.Process(ctx, payload); err != nil {
			d.report(fmt.Errorf("Webhookイベントの処理に失敗しました: %w", err))
		}
	}()
}

// Wait は進行中の全てのバックグラウンド処理の完了を待つ。
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// report は失敗をロガーとシンクの両方に通知する。
func (d *Dispatcher) report(err error) {
	d.logger.Error("バックグラウンド処理のエラー",
		slog.String("error", err.Error()),
	)
	if d.sink != nil {
		d.sink(err)
	}
}
