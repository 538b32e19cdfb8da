// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/plan2meet/internal/event"
	"github.com/hitoshi/plan2meet/internal/model"
	"github.com/hitoshi/plan2meet/internal/schedule"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	// CreateEvent は設定を検証してイベントを作成する。
	CreateEvent(ctx context.Context, in event.CreateEventInput) (*model.Event, error)
	// GetEvent はイベント設定と全参加者を取得する。
	GetEvent(ctx context.Context, eventID string) (*model.EventWithParticipants, error)
	// ResolveParticipant は(名前, パスワード)を保存済み参加者と照合する。
	ResolveParticipant(ctx context.Context, eventID, name, password string) (*model.ResolveResult, error)
	// SubmitAvailability は回答集合を参加者の完全な回答として保存する。
	SubmitAvailability(ctx context.Context, eventID, name, password string, slots []string) error
	// BuildGridView はグリッドと集計に表示フィルタを適用したビューを返す。
	BuildGridView(ctx context.Context, eventID string, filter schedule.TimeFilter) (*event.GridView, error)
}

// ICalExporter はイベントの集計結果からiCalendarデータを生成するインターフェース。
type ICalExporter interface {
	// ExportPeaks は最多一致スロットをVEVENTとして含むiCalendarデータを返す。
	ExportPeaks(ctx context.Context, eventID string) (string, error)
}

// EventHandler は日程調整イベントのHTTPハンドラー。
type EventHandler struct {
	service  EventServiceInterface
	exporter ICalExporter
}

// NewEventHandler はEventHandlerを生成する。
// exporterはnilを許容する（iCalエクスポートを無効化する）。
func NewEventHandler(service EventServiceInterface, exporter ICalExporter) *EventHandler {
	return &EventHandler{
		service:  service,
		exporter: exporter,
	}
}

// createEventRequest はイベント作成リクエストのボディ。
type createEventRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	DateStart       string `json:"date_start"`
	DateEnd         string `json:"date_end"`
	TimeFrom        string `json:"time_from"`
	TimeTo          string `json:"time_to"`
	TimeStepMinutes int    `json:"time_step_minutes"`
	HideUntilSubmit bool   `json:"hide_until_submit"`
}

// resolveParticipantRequest は参加者照合リクエストのボディ。
type resolveParticipantRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// submitAvailabilityRequest は回答送信リクエストのボディ。
type submitAvailabilityRequest struct {
	Name     string   `json:"name"`
	Password string   `json:"password"`
	Slots    []string `json:"slots"`
}

// eventResponse はイベント設定のAPIレスポンス。
type eventResponse struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DateStart       string `json:"date_start"`
	DateEnd         string `json:"date_end"`
	TimeFrom        string `json:"time_from"`
	TimeTo          string `json:"time_to"`
	TimeStepMinutes int    `json:"time_step_minutes"`
	HideUntilSubmit bool   `json:"hide_until_submit"`
}

// participantResponse は参加者（名前＋回答）のAPIレスポンス。
type participantResponse struct {
	Name  string   `json:"name"`
	Slots []string `json:"slots"`
}

// eventDetailResponse はイベント詳細（設定＋参加者一覧）のAPIレスポンス。
type eventDetailResponse struct {
	eventResponse
	Participants []participantResponse `json:"participants"`
}

// resolveResponse は参加者照合のAPIレスポンス。
type resolveResponse struct {
	Status       string   `json:"status"`
	Name         string   `json:"name"`
	Availability []string `json:"availability"`
}

// gridResponse はグリッドビューのAPIレスポンス。
type gridResponse struct {
	Dates    []string            `json:"dates"`
	Times    []string            `json:"times"`
	Counts   map[string]int      `json:"counts"`
	Names    map[string][]string `json:"names"`
	MaxCount int                 `json:"max_count"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// CreateEvent はイベント作成を処理する。
// POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	created, err := h.service.CreateEvent(r.Context(), event.CreateEventInput{
		Title:           req.Title,
		Description:     req.Description,
		DateStart:       req.DateStart,
		DateEnd:         req.DateEnd,
		TimeFrom:        req.TimeFrom,
		TimeTo:          req.TimeTo,
		TimeStepMinutes: req.TimeStepMinutes,
		HideUntilSubmit: req.HideUntilSubmit,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toEventResponse(created))
}

// GetEvent はイベント詳細（設定＋参加者一覧）を取得する。
// GET /api/events/:id
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	detail, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := eventDetailResponse{
		eventResponse: toEventResponse(&detail.Event),
		Participants:  make([]participantResponse, 0, len(detail.Participants)),
	}
	for _, p := range detail.Participants {
		slots := p.Slots
		if slots == nil {
			slots = []string{}
		}
		resp.Participants = append(resp.Participants, participantResponse{
			Name:  p.Name,
			Slots: slots,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetGrid はグリッドビュー（スロット宇宙＋集計＋フィルタ適用後の時刻行）を返す。
// GET /api/events/:id/grid?filter=all|hide-working|only-working
func (h *EventHandler) GetGrid(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	rawFilter := r.URL.Query().Get("filter")
	filter, ok := schedule.ParseTimeFilter(rawFilter)
	if !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFilterError(rawFilter))
		return
	}

	view, err := h.service.BuildGridView(r.Context(), eventID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(gridResponse{
		Dates:    view.Dates,
		Times:    view.Times,
		Counts:   view.Counts,
		Names:    view.Names,
		MaxCount: view.MaxCount,
	})
}

// ResolveParticipant は参加者の照合を処理する。
// POST /api/events/:id/participant
//
// ステータスマッピング:
//   - AUTHENTICATED → 200（保存済み回答付き）
//   - NEW → 404（空の回答を持つ新規参加者として扱う）
//   - DENIED → 403（統一メッセージ、名前の存在有無は漏らさない）
func (h *EventHandler) ResolveParticipant(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	var req resolveParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	result, err := h.service.ResolveParticipant(r.Context(), eventID, req.Name, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	switch result.Status {
	case model.ResolveStatusDenied:
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewAuthDeniedError())
		return
	case model.ResolveStatusNew:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
	default:
		w.Header().Set("Content-Type", "application/json")
	}

	availability := result.Availability
	if availability == nil {
		availability = []string{}
	}
	json.NewEncoder(w).Encode(resolveResponse{
		Status:       string(result.Status),
		Name:         result.Name,
		Availability: availability,
	})
}

// SubmitAvailability は回答送信を処理する。
// POST /api/events/:id/availability
func (h *EventHandler) SubmitAvailability(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	var req submitAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if err := h.service.SubmitAvailability(r.Context(), eventID, req.Name, req.Password, req.Slots); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ExportICal は最多一致スロットのiCalendarエクスポートを処理する。
// GET /api/events/:id/ical
func (h *EventHandler) ExportICal(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		http.NotFound(w, r)
		return
	}

	eventID := chi.URLParam(r, "id")

	data, err := h.exporter.ExportPeaks(r.Context(), eventID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="event.ics"`)
	w.Write([]byte(data))
}

// --- ヘルパー関数 ---

// toEventResponse はmodel.EventからAPIレスポンスに変換する。
func toEventResponse(e *model.Event) eventResponse {
	return eventResponse{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		DateStart:       e.DateStart,
		DateEnd:         e.DateEnd,
		TimeFrom:        e.TimeFrom,
		TimeTo:          e.TimeTo,
		TimeStepMinutes: e.TimeStepMinutes,
		HideUntilSubmit: e.HideUntilSubmit,
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeEventNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidConfig, model.ErrCodeNameRequired, model.ErrCodeInvalidSlot,
		model.ErrCodeInvalidFilter, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeAuthDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
