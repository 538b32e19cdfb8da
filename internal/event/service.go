// Package event は日程調整イベントのドメインロジックを提供する。
//
// イベント作成時の設定検証、参加者の照合（名前＋任意パスワード）、
// 回答の保存、グリッドと集計ビューの導出を統括する。
package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/plan2meet/internal/metrics"
	"github.com/hitoshi/plan2meet/internal/model"
	"github.com/hitoshi/plan2meet/internal/repository"
	"github.com/hitoshi/plan2meet/internal/schedule"
	"github.com/hitoshi/plan2meet/internal/security"
)

// defaultTitle はタイトル未指定時のイベント名。
const defaultTitle = "Untitled Event"

// ServiceConfig はサービスの動作設定を保持する。
type ServiceConfig struct {
	// WorkHoursStart は表示フィルタが参照する勤務時間帯の開始時刻（HH:MM）。
	// イベント自身の時刻範囲とは独立した設定値。
	WorkHoursStart string
	// WorkHoursEnd は勤務時間帯の終了時刻（HH:MM、排他）。
	WorkHoursEnd string
}

// Service は日程調整イベントのサービス層。
type Service struct {
	eventRepo repository.EventRepository
	partRepo  repository.ParticipantRepository
	sanitizer security.DescriptionSanitizerService
	collector metrics.MetricsCollector
	config    ServiceConfig
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorはnilを許容する（メトリクス収集なしで動作する）。
func NewService(
	eventRepo repository.EventRepository,
	partRepo repository.ParticipantRepository,
	sanitizer security.DescriptionSanitizerService,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	return &Service{
		eventRepo: eventRepo,
		partRepo:  partRepo,
		sanitizer: sanitizer,
		collector: collector,
		config:    config,
	}
}

// CreateEventInput はイベント作成の入力を表す。
type CreateEventInput struct {
	Title           string
	Description     string
	DateStart       string
	DateEnd         string
	TimeFrom        string
	TimeTo          string
	TimeStepMinutes int
	HideUntilSubmit bool
}

// CreateEvent は設定を検証してイベントを作成する。
// 正でない刻み幅や不正な日付・時刻書式はここで拒否され、
// グリッド生成には決して到達しない。範囲の逆転（start > end、from >= to）は
// 空のグリッドに縮退するだけなのでエラーとしない。
func (s *Service) CreateEvent(ctx context.Context, in CreateEventInput) (*model.Event, error) {
	if in.TimeStepMinutes <= 0 {
		return nil, model.NewInvalidConfigError(fmt.Sprintf("刻み幅は正の整数が必要です: %d", in.TimeStepMinutes))
	}
	if _, err := schedule.ParseDate(in.DateStart); err != nil {
		return nil, model.NewInvalidConfigError(fmt.Sprintf("開始日の書式が不正です: %s", in.DateStart))
	}
	if _, err := schedule.ParseDate(in.DateEnd); err != nil {
		return nil, model.NewInvalidConfigError(fmt.Sprintf("終了日の書式が不正です: %s", in.DateEnd))
	}
	if _, err := schedule.ParseClock(in.TimeFrom); err != nil {
		return nil, model.NewInvalidConfigError(fmt.Sprintf("開始時刻の書式が不正です: %s", in.TimeFrom))
	}
	if _, err := schedule.ParseClock(in.TimeTo); err != nil {
		return nil, model.NewInvalidConfigError(fmt.Sprintf("終了時刻の書式が不正です: %s", in.TimeTo))
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = defaultTitle
	}

	description := in.Description
	if s.sanitizer != nil {
		description = s.sanitizer.Sanitize(description)
	}

	now := time.Now()
	event := &model.Event{
		ID:              uuid.New().String(),
		Title:           title,
		Description:     description,
		DateStart:       in.DateStart,
		DateEnd:         in.DateEnd,
		TimeFrom:        in.TimeFrom,
		TimeTo:          in.TimeTo,
		TimeStepMinutes: in.TimeStepMinutes,
		HideUntilSubmit: in.HideUntilSubmit,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("イベントの保存に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordEventCreated()
	}

	return event, nil
}

// GetEvent はイベント設定と全参加者（名前＋回答）を取得する。
// 見つからない場合はEVENT_NOT_FOUNDエラーを返す。
func (s *Service) GetEvent(ctx context.Context, eventID string) (*model.EventWithParticipants, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}

	participants, err := s.partRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("参加者一覧の取得に失敗しました: %w", err)
	}

	return &model.EventWithParticipants{
		Event:        *event,
		Participants: participants,
	}, nil
}

// ResolveParticipant は(名前, パスワード)を保存済み参加者一覧と照合する。
//   - 名前が存在しない → NEW（呼び出し側は空の回答を持つ新規参加者として扱う）
//   - 名前が存在し、パスワード未設定または一致 → AUTHENTICATED（保存済み回答付き）
//   - 名前が存在し、パスワード不一致 → DENIED
//
// DENIEDの場合も名前の存在有無は応答から判別できない（統一メッセージ）。
func (s *Service) ResolveParticipant(ctx context.Context, eventID, name, password string) (*model.ResolveResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewNameRequiredError()
	}

	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}

	participant, err := s.partRepo.FindByEventAndName(ctx, eventID, name)
	if err != nil {
		return nil, fmt.Errorf("参加者の検索に失敗しました: %w", err)
	}

	var result *model.ResolveResult
	switch {
	case participant == nil:
		result = &model.ResolveResult{Status: model.ResolveStatusNew, Name: name}
	case passwordMatches(participant.PasswordHash, password):
		result = &model.ResolveResult{
			Status:       model.ResolveStatusAuthenticated,
			Name:         participant.Name,
			Availability: participant.Slots,
		}
	default:
		result = &model.ResolveResult{Status: model.ResolveStatusDenied, Name: name}
	}

	if s.collector != nil {
		s.collector.RecordResolve(string(result.Status))
	}

	return result, nil
}

// SubmitAvailability は回答集合を参加者の完全な回答として保存する（置換、マージではない）。
// 照合チェックと書き込みはリポジトリ層で同一トランザクション内にアトミックに実行される。
// 新規名義の送信は、そのとき指定されたパスワード（空も可）と最初の回答集合を
// 一体で作成する。照合失敗時は保存済み状態を一切変更せずAUTH_DENIEDを返す。
func (s *Service) SubmitAvailability(ctx context.Context, eventID, name, password string, slots []string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.NewNameRequiredError()
	}

	for _, slot := range slots {
		if !schedule.ValidSlot(slot) {
			return model.NewInvalidSlotError(slot)
		}
	}

	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return model.NewEventNotFoundError(eventID)
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	candidate := &model.Participant{
		ID:           uuid.New().String(),
		EventID:      eventID,
		Name:         name,
		PasswordHash: passwordHash,
		Slots:        slots,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.partRepo.SaveAvailability(ctx, candidate, func(storedHash string) bool {
		return passwordMatches(storedHash, password)
	})
	if errors.Is(err, repository.ErrSaveDenied) {
		if s.collector != nil {
			s.collector.RecordSubmissionDenied()
		}
		return model.NewAuthDeniedError()
	}
	if err != nil {
		return fmt.Errorf("回答の保存に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordSubmission()
	}

	return nil
}

// GridView はグリッド描画用の表示ビューを表す。
type GridView struct {
	Dates    []string
	Times    []string // フィルタ適用後の時刻行
	Counts   map[string]int
	Names    map[string][]string
	MaxCount int
}

// BuildGridView はイベントのスロットグリッドと集計を導出し、
// 表示フィルタを時刻行に適用したビューを返す。
// フィルタはスロット宇宙や集計結果には影響しない。
func (s *Service) BuildGridView(ctx context.Context, eventID string, filter schedule.TimeFilter) (*GridView, error) {
	_, agg, grid, err := s.loadAggregate(ctx, eventID)
	if err != nil {
		return nil, err
	}

	return &GridView{
		Dates:    grid.Dates,
		Times:    schedule.FilterTimes(grid.Times, filter, s.config.WorkHoursStart, s.config.WorkHoursEnd),
		Counts:   agg.Counts,
		Names:    agg.Names,
		MaxCount: agg.MaxCount,
	}, nil
}

// EventAggregate はイベント設定と全参加者回答の集計を返す。
// iCalエクスポートなど、集計結果を直接利用する呼び出し側向け。
func (s *Service) EventAggregate(ctx context.Context, eventID string) (*model.Event, *schedule.Aggregate, error) {
	event, agg, _, err := s.loadAggregate(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	return event, agg, nil
}

// loadAggregate はイベントと参加者を読み込み、グリッドと集計を再計算する。
// 集計は永続化された中間状態を持たないため、変更のたびに再取得＋再計算する。
func (s *Service) loadAggregate(ctx context.Context, eventID string) (*model.Event, *schedule.Aggregate, schedule.Grid, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, nil, schedule.Grid{}, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, nil, schedule.Grid{}, model.NewEventNotFoundError(eventID)
	}

	participants, err := s.partRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, nil, schedule.Grid{}, fmt.Errorf("参加者一覧の取得に失敗しました: %w", err)
	}

	grid := schedule.NewGrid(event.DateStart, event.DateEnd, event.TimeFrom, event.TimeTo, event.TimeStepMinutes)

	availability := make(map[string][]string, len(participants))
	for _, p := range participants {
		availability[p.Name] = p.Slots
	}

	return event, schedule.NewAggregate(grid, availability), grid, nil
}

// hashPassword はパスワードをbcryptでハッシュ化する。
// 空パスワードは「保護なし」を意味し、空文字列のまま保存する。
// 空パスワードとパスワード未指定は等価として扱う。
func hashPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// passwordMatches は保存済みハッシュと入力パスワードを照合する。
// ハッシュが空（保護なし）の場合は入力内容にかかわらず一致とみなす。
func passwordMatches(storedHash, password string) bool {
	if storedHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}
