// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/plan2meet/internal/model"
)

// ErrSaveDenied は認可チェックに失敗して書き込みが拒否されたことを示す。
// SaveAvailabilityのauthorizeコールバックがfalseを返した場合に返され、
// 保存済みの状態は一切変更されない。
var ErrSaveDenied = errors.New("availability save denied")

// EventRepository はイベント設定の永続化インターフェース。
// イベントは作成後イミュータブルで、更新操作は提供しない。
type EventRepository interface {
	// Create はイベントを作成する。
	Create(ctx context.Context, event *model.Event) error

	// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Event, error)
}

// ParticipantRepository は参加者データの永続化インターフェース。
type ParticipantRepository interface {
	// FindByEventAndName はイベントIDと名前で参加者を検索する。
	// 名前は大文字小文字を区別する完全一致。見つからない場合はnilを返す。
	FindByEventAndName(ctx context.Context, eventID, name string) (*model.Participant, error)

	// ListByEventID はイベントの全参加者を名前昇順で返す。
	ListByEventID(ctx context.Context, eventID string) ([]*model.Participant, error)

	// SaveAvailability は照合チェックと書き込みを同一トランザクションで
	// アトミックに実行する。候補candidateと同じ(event_id, name)の行を
	// FOR UPDATEでロックし、
	//   - 行が存在しない場合: candidateをそのまま新規作成する
	//     （最初の書き込みがパスワードを確定させる）
	//   - 行が存在する場合: authorize(保存済みハッシュ)がtrueなら回答集合のみを
	//     置換し、falseならErrSaveDeniedを返して何も変更しない
	SaveAvailability(ctx context.Context, candidate *model.Participant, authorize func(storedHash string) bool) error
}
