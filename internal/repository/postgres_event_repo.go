package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/plan2meet/internal/model"
)

// eventDateLayout はDATE列とモデルのISO日付文字列の変換書式。
const eventDateLayout = "2006-01-02"

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

// Create はイベントを作成する。
func (r *PostgresEventRepo) Create(ctx context.Context, event *model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, title, description, date_start, date_end, time_from, time_to, time_step_minutes, hide_until_submit, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, event.Title, event.Description,
		event.DateStart, event.DateEnd, event.TimeFrom, event.TimeTo,
		event.TimeStepMinutes, event.HideUntilSubmit,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	event := &model.Event{}
	var dateStart, dateEnd time.Time

	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, date_start, date_end, time_from, time_to, time_step_minutes, hide_until_submit, created_at, updated_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(
		&event.ID, &event.Title, &event.Description,
		&dateStart, &dateEnd, &event.TimeFrom, &event.TimeTo,
		&event.TimeStepMinutes, &event.HideUntilSubmit,
		&event.CreatedAt, &event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find event by ID: %w", err)
	}

	// DATE列はtime.Timeで返るため、モデルの正規形（ISO文字列）に戻す
	event.DateStart = dateStart.Format(eventDateLayout)
	event.DateEnd = dateEnd.Format(eventDateLayout)

	return event, nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
