// Package model はドメインモデルを定義する。
package model

import "time"

// Participant はイベントへの回答者を表す。
// nameはイベント内での表示名かつ検索キー（大文字小文字を区別する完全一致）。
// PasswordHashが空文字列の場合はパスワード保護なしを意味し、
// 同じ名前を名乗る誰でも回答を上書きできる。
type Participant struct {
	ID           string
	EventID      string
	Name         string
	PasswordHash string   // bcryptハッシュ。空文字列は保護なし
	Slots        []string // "<ISO date>|<HH:MM>" 形式のスロット識別子の集合
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ResolveStatus は参加者の照合結果を表す。
type ResolveStatus string

const (
	// ResolveStatusNew は該当する名前の参加者が存在しないことを示す。
	// 呼び出し側は空の回答を持つ新規参加者として扱う。
	ResolveStatusNew ResolveStatus = "new"
	// ResolveStatusAuthenticated は照合に成功したことを示す。
	ResolveStatusAuthenticated ResolveStatus = "authenticated"
	// ResolveStatusDenied はパスワード不一致で照合に失敗したことを示す。
	ResolveStatusDenied ResolveStatus = "denied"
)

// ResolveResult は参加者照合の結果を表す。
// StatusがResolveStatusAuthenticatedの場合のみAvailabilityが有効。
type ResolveResult struct {
	Status       ResolveStatus
	Name         string
	Availability []string
}
