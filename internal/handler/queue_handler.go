package handler

import (
	"context"
	"net/http"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/queue"
)

// BatchProcessor はキューのバッチ処理を実行するインターフェース。
type BatchProcessor interface {
	// ProcessBatch は処理対象ジョブを1バッチ分処理する。
	ProcessBatch(ctx context.Context) (queue.Summary, error)
}

// QueueHandler はスケジューラーからのキュー処理要求を処理するHTTPハンドラー。
type QueueHandler struct {
	processor BatchProcessor
}

// NewQueueHandler はQueueHandlerを生成する。
func NewQueueHandler(processor BatchProcessor) *QueueHandler {
	return &QueueHandler{processor: processor}
}

// processQueueResponse はキュー処理結果のレスポンス。
type processQueueResponse struct {
	Processed int `json:"processed"`
}

// ProcessQueue はキューのバッチ処理を実行する。
// POST /api/cron/process-queue
func (h *QueueHandler) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	summary, err := h.processor.ProcessBatch(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if summary.Selected == 0 {
		writeJSONResponse(w, http.StatusOK, map[string]string{"message": "No jobs to process"})
		return
	}

	// processedは正常完了した件数。失敗して再試行待ちのジョブは含めない。
	writeJSONResponse(w, http.StatusOK, processQueueResponse{Processed: summary.Completed})
}
