// Package model はドメインモデルを定義する。
package model

import "time"

// Event は日程調整イベントを表す。
// 作成後はイミュータブルで、参加者の追加・更新のみが行われる。
type Event struct {
	ID              string
	Title           string
	Description     string // サニタイズ済みHTML
	DateStart       string // ISO形式（YYYY-MM-DD）、この日を含む
	DateEnd         string // ISO形式（YYYY-MM-DD）、この日を含む
	TimeFrom        string // HH:MM形式、この時刻を含む
	TimeTo          string // HH:MM形式、この時刻を含まない（上限排他）
	TimeStepMinutes int    // スロットの刻み幅（分）。正の整数
	HideUntilSubmit bool   // 自分が送信するまで他者の回答を隠す表示設定
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EventWithParticipants はイベント設定と参加者一覧を結合したモデル。
// get_event操作のレスポンスとして使用される。
type EventWithParticipants struct {
	Event
	Participants []*Participant
}
