package model

import "time"

// Verb は変更通知の種別を表す。
type Verb string

const (
	// VerbAdd は新規コメントの追加イベント。
	VerbAdd Verb = "add"
	// VerbEdit は既存コメントの編集イベント。
	VerbEdit Verb = "edit"
)

// JobStatus はキュージョブの状態を表す。
type JobStatus string

const (
	// JobStatusPending は処理待ちの状態。
	JobStatusPending JobStatus = "PENDING"
	// JobStatusProcessing はワーカーが処理中の状態。
	JobStatusProcessing JobStatus = "PROCESSING"
	// JobStatusCompleted は処理が正常に完了した状態。
	JobStatusCompleted JobStatus = "COMPLETED"
	// JobStatusFailed は処理が失敗した状態。attempts が上限未満なら再選択される。
	JobStatusFailed JobStatus = "FAILED"
)

// QueueJob はモデレーションの遅延実行単位を表す。
// ペイロードは閉じたタグ付き構造（pageId, commentId, message, verb）で、
// エンキュー時に検証する。attempts が上限（3回）に達した FAILED ジョブは
// 終端状態であり、以後の選択対象から除外される。
type QueueJob struct {
	ID        string
	PageID    string // 内部ページID
	CommentID string // 外部コメントID
	Message   string
	Verb      Verb
	Status    JobStatus
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateJobPayload はエンキュー前にジョブペイロードの必須フィールドを検証する。
// 不正なペイロードはキューに入る前に拒否し、ワーカー側での解釈エラーを排除する。
func ValidateJobPayload(job *QueueJob) *APIError {
	if job == nil {
		return NewInvalidPayloadError("ジョブがnilです")
	}
	if job.PageID == "" {
		return NewInvalidPayloadError("pageIdが空です")
	}
	if job.CommentID == "" {
		return NewInvalidPayloadError("commentIdが空です")
	}
	if job.Verb != VerbAdd && job.Verb != VerbEdit {
		return NewInvalidPayloadError("未対応のverbです: " + string(job.Verb))
	}
	return nil
}

// DedupRecord は処理済みイベントの記録を表す。
// EventID（{外部コメントID}_{verb}）の一意制約への違反が「処理済み」の判定根拠となる。
type DedupRecord struct {
	EventID   string
	PageID    string
	EventType string
	CreatedAt time.Time
}

// DedupEventID はコメントIDとverbから冪等判定用のイベントIDを構築する。
func DedupEventID(commentID string, verb Verb) string {
	return commentID + "_" + string(verb)
}
