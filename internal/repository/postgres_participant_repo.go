package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/plan2meet/internal/model"
)

// PostgresParticipantRepo はPostgreSQLを使用した参加者リポジトリ。
type PostgresParticipantRepo struct {
	db *sql.DB
}

// NewPostgresParticipantRepo はPostgresParticipantRepoを生成する。
func NewPostgresParticipantRepo(db *sql.DB) *PostgresParticipantRepo {
	return &PostgresParticipantRepo{db: db}
}

// FindByEventAndName はイベントIDと名前で参加者を検索する。
// 名前は大文字小文字を区別する完全一致。見つからない場合はnilを返す。
func (r *PostgresParticipantRepo) FindByEventAndName(ctx context.Context, eventID, name string) (*model.Participant, error) {
	p := &model.Participant{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, event_id, name, password_hash, slots, created_at, updated_at
		 FROM participants WHERE event_id = $1 AND name = $2`,
		eventID, name,
	).Scan(&p.ID, &p.EventID, &p.Name, &p.PasswordHash, pq.Array(&p.Slots), &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}

	return p, nil
}

// ListByEventID はイベントの全参加者を名前昇順で返す。
func (r *PostgresParticipantRepo) ListByEventID(ctx context.Context, eventID string) ([]*model.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, name, password_hash, slots, created_at, updated_at
		 FROM participants WHERE event_id = $1 ORDER BY name`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*model.Participant
	for rows.Next() {
		p := &model.Participant{}
		if err := rows.Scan(&p.ID, &p.EventID, &p.Name, &p.PasswordHash, pq.Array(&p.Slots), &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

// SaveAvailability は照合チェックと書き込みを同一トランザクションで実行する。
// (event_id, name)の行をFOR UPDATEでロックすることで、同名の並行送信が
// 互いを黙って上書きすることを防ぐ。既存行のpassword_hashは決して更新されない
// （最初の書き込みがパスワードを確定させる）。
func (r *PostgresParticipantRepo) SaveAvailability(ctx context.Context, candidate *model.Participant, authorize func(storedHash string) bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var storedID, storedHash string
	err = tx.QueryRowContext(ctx,
		`SELECT id, password_hash FROM participants
		 WHERE event_id = $1 AND name = $2
		 FOR UPDATE`,
		candidate.EventID, candidate.Name,
	).Scan(&storedID, &storedHash)

	switch {
	case err == sql.ErrNoRows:
		// 新規参加者: 最初の回答と一緒にアトミックに作成する
		_, err = tx.ExecContext(ctx,
			`INSERT INTO participants (id, event_id, name, password_hash, slots, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			candidate.ID, candidate.EventID, candidate.Name, candidate.PasswordHash,
			pq.Array(candidate.Slots), candidate.CreatedAt, candidate.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}

	case err != nil:
		return fmt.Errorf("failed to lock participant row: %w", err)

	default:
		if !authorize(storedHash) {
			return ErrSaveDenied
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE participants SET slots = $1, updated_at = $2 WHERE id = $3`,
			pq.Array(candidate.Slots), time.Now(), storedID,
		)
		if err != nil {
			return fmt.Errorf("failed to update participant slots: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ ParticipantRepository = (*PostgresParticipantRepo)(nil)
