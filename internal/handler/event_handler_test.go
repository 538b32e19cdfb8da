package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/plan2meet/internal/event"
	"github.com/hitoshi/plan2meet/internal/model"
	"github.com/hitoshi/plan2meet/internal/schedule"
)

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// newChiRequest はイベントIDパラメータ付きのリクエストを生成する。
func newChiRequest(method, target, eventID string, body io.Reader) *http.Request {
	return withChiURLParam(httptest.NewRequest(method, target, body), "id", eventID)
}

// --- EventHandler テスト用モック ---

// mockEventService はテスト用のEventServiceInterfaceモック。
type mockEventService struct {
	createFn  func(ctx context.Context, in event.CreateEventInput) (*model.Event, error)
	getFn     func(ctx context.Context, eventID string) (*model.EventWithParticipants, error)
	resolveFn func(ctx context.Context, eventID, name, password string) (*model.ResolveResult, error)
	submitFn  func(ctx context.Context, eventID, name, password string, slots []string) error
	gridFn    func(ctx context.Context, eventID string, filter schedule.TimeFilter) (*event.GridView, error)
}

func (m *mockEventService) CreateEvent(ctx context.Context, in event.CreateEventInput) (*model.Event, error) {
	return m.createFn(ctx, in)
}

func (m *mockEventService) GetEvent(ctx context.Context, eventID string) (*model.EventWithParticipants, error) {
	return m.getFn(ctx, eventID)
}

func (m *mockEventService) ResolveParticipant(ctx context.Context, eventID, name, password string) (*model.ResolveResult, error) {
	return m.resolveFn(ctx, eventID, name, password)
}

func (m *mockEventService) SubmitAvailability(ctx context.Context, eventID, name, password string, slots []string) error {
	return m.submitFn(ctx, eventID, name, password, slots)
}

func (m *mockEventService) BuildGridView(ctx context.Context, eventID string, filter schedule.TimeFilter) (*event.GridView, error) {
	return m.gridFn(ctx, eventID, filter)
}

// mockICalExporter はテスト用のICalExporterモック。
type mockICalExporter struct {
	data string
	err  error
}

func (m *mockICalExporter) ExportPeaks(_ context.Context, _ string) (string, error) {
	return m.data, m.err
}

// testEvent はテスト用のイベントを返す。
func testEvent() *model.Event {
	return &model.Event{
		ID:              "event-1",
		Title:           "打ち合わせ",
		Description:     "<p>候補日から選んでください</p>",
		DateStart:       "2026-01-05",
		DateEnd:         "2026-01-06",
		TimeFrom:        "09:00",
		TimeTo:          "11:00",
		TimeStepMinutes: 30,
	}
}

// decodeErrorResponse はエラーレスポンスをデコードする。
func decodeErrorResponse(t *testing.T, resp *http.Response) apiErrorResponse {
	t.Helper()
	var body apiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

// --- CreateEvent テスト ---

// TestEventHandler_CreateEvent_Returns201 はイベント作成が201を返すことをテストする。
func TestEventHandler_CreateEvent_Returns201(t *testing.T) {
	svc := &mockEventService{
		createFn: func(_ context.Context, in event.CreateEventInput) (*model.Event, error) {
			e := testEvent()
			e.Title = in.Title
			return e, nil
		},
	}
	h := NewEventHandler(svc, nil)

	body := `{"title":"打ち合わせ","date_start":"2026-01-05","date_end":"2026-01-06","time_from":"09:00","time_to":"11:00","time_step_minutes":30}`
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.CreateEvent(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var got eventResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != "event-1" {
		t.Errorf("id = %q, want %q", got.ID, "event-1")
	}
	if got.Title != "打ち合わせ" {
		t.Errorf("title = %q, want %q", got.Title, "打ち合わせ")
	}
}

// TestEventHandler_CreateEvent_InvalidJSON は不正なJSONボディが400になることをテストする。
func TestEventHandler_CreateEvent_InvalidJSON(t *testing.T) {
	h := NewEventHandler(&mockEventService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewReader([]byte("{invalid")))
	w := httptest.NewRecorder()

	h.CreateEvent(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if body := decodeErrorResponse(t, resp); body.Code != "INVALID_REQUEST" {
		t.Errorf("code = %q, want %q", body.Code, "INVALID_REQUEST")
	}
}

// TestEventHandler_CreateEvent_InvalidConfig はサービスの設定エラーが400になることをテストする。
func TestEventHandler_CreateEvent_InvalidConfig(t *testing.T) {
	svc := &mockEventService{
		createFn: func(_ context.Context, _ event.CreateEventInput) (*model.Event, error) {
			return nil, model.NewInvalidConfigError("刻み幅は正の整数が必要です: 0")
		},
	}
	h := NewEventHandler(svc, nil)

	body := `{"date_start":"2026-01-05","date_end":"2026-01-06","time_from":"09:00","time_to":"11:00","time_step_minutes":0}`
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.CreateEvent(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if body := decodeErrorResponse(t, resp); body.Code != "INVALID_EVENT_CONFIG" {
		t.Errorf("code = %q, want %q", body.Code, "INVALID_EVENT_CONFIG")
	}
}

// --- GetEvent テスト ---

// TestEventHandler_GetEvent_ReturnsDetail はイベント詳細が参加者付きで返ることをテストする。
func TestEventHandler_GetEvent_ReturnsDetail(t *testing.T) {
	svc := &mockEventService{
		getFn: func(_ context.Context, eventID string) (*model.EventWithParticipants, error) {
			return &model.EventWithParticipants{
				Event: *testEvent(),
				Participants: []*model.Participant{
					{Name: "alice", Slots: []string{"2026-01-05|09:00"}},
					{Name: "bob", Slots: nil},
				},
			}, nil
		},
	}
	h := NewEventHandler(svc, nil)

	req := newChiRequest(http.MethodGet, "/api/events/event-1", "event-1", nil)
	w := httptest.NewRecorder()

	h.GetEvent(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got eventDetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got.Participants) != 2 {
		t.Fatalf("len(participants) = %d, want 2", len(got.Participants))
	}
	if got.Participants[0].Name != "alice" {
		t.Errorf("participants[0].name = %q, want %q", got.Participants[0].Name, "alice")
	}
	// nilスロットは空配列としてシリアライズされる
	if got.Participants[1].Slots == nil {
		t.Error("participants[1].slots should be an empty array, not null")
	}
}

// TestEventHandler_GetEvent_NotFound は存在しないイベントが404になることをテストする。
func TestEventHandler_GetEvent_NotFound(t *testing.T) {
	svc := &mockEventService{
		getFn: func(_ context.Context, eventID string) (*model.EventWithParticipants, error) {
			return nil, model.NewEventNotFoundError(eventID)
		},
	}
	h := NewEventHandler(svc, nil)

	req := newChiRequest(http.MethodGet, "/api/events/missing", "missing", nil)
	w := httptest.NewRecorder()

	h.GetEvent(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if body := decodeErrorResponse(t, resp); body.Code != "EVENT_NOT_FOUND" {
		t.Errorf("code = %q, want %q", body.Code, "EVENT_NOT_FOUND")
	}
}

// --- GetGrid テスト ---

// TestEventHandler_GetGrid_ReturnsView はグリッドビューが返ることをテストする。
func TestEventHandler_GetGrid_ReturnsView(t *testing.T) {
	var capturedFilter schedule.TimeFilter
	svc := &mockEventService{
		gridFn: func(_ context.Context, eventID string, filter schedule.TimeFilter) (*event.GridView, error) {
			capturedFilter = filter
			return &event.GridView{
				Dates:    []string{"2026-01-05"},
				Times:    []string{"09:00", "09:30"},
				Counts:   map[string]int{"2026-01-05|09:00": 2},
				Names:    map[string][]string{"2026-01-05|09:00": {"alice", "bob"}},
				MaxCount: 2,
			}, nil
		},
	}
	h := NewEventHandler(svc, nil)

	req := newChiRequest(http.MethodGet, "/api/events/event-1/grid?filter=hide-working", "event-1", nil)
	w := httptest.NewRecorder()

	h.GetGrid(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if capturedFilter != schedule.TimeFilterHideWorking {
		t.Errorf("filter = %q, want %q", capturedFilter, schedule.TimeFilterHideWorking)
	}

	var got gridResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.MaxCount != 2 {
		t.Errorf("max_count = %d, want 2", got.MaxCount)
	}
	if got.Counts["2026-01-05|09:00"] != 2 {
		t.Errorf("counts[2026-01-05|09:00] = %d, want 2", got.Counts["2026-01-05|09:00"])
	}
}

// TestEventHandler_GetGrid_DefaultFilterIsAll はフィルタ未指定がallとして扱われることをテストする。
func TestEventHandler_GetGrid_DefaultFilterIsAll(t *testing.T) {
	var capturedFilter schedule.TimeFilter
	svc := &mockEventService{
		gridFn: func(_ context.Context, _ string, filter schedule.TimeFilter) (*event.GridView, error) {
			capturedFilter = filter
			return &event.GridView{}, nil
		},
	}
	h := NewEventHandler(svc, nil)

	req := newChiRequest(http.MethodGet, "/api/events/event-1/grid", "event-1", nil)
	w := httptest.NewRecorder()

	h.GetGrid(w, req)

	if capturedFilter != schedule.TimeFilterAll {
		t.Errorf("filter = %q, want %q", capturedFilter, schedule.TimeFilterAll)
	}
}

// TestEventHandler_GetGrid_InvalidFilter は未知のフィルタが400になることをテストする。
func TestEventHandler_GetGrid_InvalidFilter(t *testing.T) {
	h := NewEventHandler(&mockEventService{}, nil)

	req := newChiRequest(http.MethodGet, "/api/events/event-1/grid?filter=weekends-only", "event-1", nil)
	w := httptest.NewRecorder()

	h.GetGrid(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if body := decodeErrorResponse(t, resp); body.Code != "INVALID_FILTER" {
		t.Errorf("code = %q, want %q", body.Code, "INVALID_FILTER")
	}
}

// --- ResolveParticipant テスト ---

// TestEventHandler_ResolveParticipant_Authenticated は照合成功が200で保存済み回答を返すことをテストする。
func TestEventHandler_ResolveParticipant_Authenticated(t *testing.T) {
	svc := &mockEventService{
		resolveFn: func(_ context.Context, _, name, _ string) (*model.ResolveResult, error) {
			return &model.ResolveResult{
				Status:       model.ResolveStatusAuthenticated,
				Name:         name,
				Availability: []string{"2026-01-05|09:00"},
			}, nil
		},
	}
	h := NewEventHandler(svc, nil)

	body := `{"name":"alice","password":"secret"}`
	req := newChiRequest(http.MethodPost, "/api/events/event-1/participant", "event-1", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.ResolveParticipant(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Status != "authenticated" {
		t.Errorf("status = %q, want %q", got.Status, "authenticated")
	}
	if len(got.Availability) != 1 {
		t.Errorf("len(availability) = %d, want 1", len(got.Availability))
	}
}

// TestEventHandler_ResolveParticipant_New は未登録の名前が404と空の回答を返すことをテストする。
func TestEventHandler_ResolveParticipant_New(t *testing.T) {
	svc := &mockEventService{
		resolveFn: func(_ context.Context, _, name, _ string) (*model.ResolveResult, error) {
			return &model.ResolveResult{Status: model.ResolveStatusNew, Name: name}, nil
		},
	}
	h := NewEventHandler(svc, nil)

	body := `{"name":"newcomer"}`
	req := newChiRequest(http.MethodPost, "/api/events/event-1/participant", "event-1", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.ResolveParticipant(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	var got resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Status != "new" {
		t.Errorf("status = %q, want %q", got.Status, "new")
	}
	if got.Availability == nil || len(got.Availability) != 0 {
		t.Errorf("availability = %v, want empty array", got.Availability)
	}
}

// TestEventHandler_ResolveParticipant_Denied は照合失敗が403と統一メッセージを返すことをテストする。
func TestEventHandler_ResolveParticipant_Denied(t *testing.T) {
	svc := &mockEventService{
		resolveFn: func(_ context.Context, _, name, _ string) (*model.ResolveResult, error) {
			return &model.ResolveResult{Status: model.ResolveStatusDenied, Name: name}, nil
		},
	}
	h := NewEventHandler(svc, nil)

	body := `{"name":"alice","password":"wrong"}`
	req := newChiRequest(http.MethodPost, "/api/events/event-1/participant", "event-1", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.ResolveParticipant(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}

	errBody := decodeErrorResponse(t, resp)
	if errBody.Code != "AUTH_DENIED" {
		t.Errorf("code = %q, want %q", errBody.Code, "AUTH_DENIED")
	}
	// 名前の存在有無がメッセージから判別できないこと
	if strings.Contains(errBody.Message, "alice") {
		t.Errorf("message must not leak the participant name: %q", errBody.Message)
	}
}

// --- SubmitAvailability テスト ---

// TestEventHandler_SubmitAvailability_Success は回答送信が成功レスポンスを返すことをテストする。
func TestEventHandler_SubmitAvailability_Success(t *testing.T) {
	var capturedSlots []string
	svc := &mockEventService{
		submitFn: func(_ context.Context, _, name, _ string, slots []string) error {
			capturedSlots = slots
			return nil
		},
	}
	h := NewEventHandler(svc, nil)

	body := `{"name":"alice","slots":["2026-01-05|09:00","2026-01-05|09:30"]}`
	req := newChiRequest(http.MethodPost, "/api/events/event-1/availability", "event-1", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.SubmitAvailability(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if len(capturedSlots) != 2 {
		t.Errorf("len(slots) = %d, want 2", len(capturedSlots))
	}
}

// TestEventHandler_SubmitAvailability_Denied は照合失敗の送信が403になることをテストする。
func TestEventHandler_SubmitAvailability_Denied(t *testing.T) {
	svc := &mockEventService{
		submitFn: func(_ context.Context, _, _, _ string, _ []string) error {
			return model.NewAuthDeniedError()
		},
	}
	h := NewEventHandler(svc, nil)

	body := `{"name":"alice","password":"wrong","slots":[]}`
	req := newChiRequest(http.MethodPost, "/api/events/event-1/availability", "event-1", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.SubmitAvailability(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
	if body := decodeErrorResponse(t, resp); body.Code != "AUTH_DENIED" {
		t.Errorf("code = %q, want %q", body.Code, "AUTH_DENIED")
	}
}

// TestEventHandler_SubmitAvailability_InternalError はAPIError以外のエラーが500になることをテストする。
func TestEventHandler_SubmitAvailability_InternalError(t *testing.T) {
	svc := &mockEventService{
		submitFn: func(_ context.Context, _, _, _ string, _ []string) error {
			return errors.New("db down")
		},
	}
	h := NewEventHandler(svc, nil)

	body := `{"name":"alice","slots":[]}`
	req := newChiRequest(http.MethodPost, "/api/events/event-1/availability", "event-1", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.SubmitAvailability(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	if body := decodeErrorResponse(t, resp); body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want %q", body.Code, "INTERNAL_ERROR")
	}
}

// --- ExportICal テスト ---

// TestEventHandler_ExportICal_ReturnsCalendar はiCalエクスポートがtext/calendarを返すことをテストする。
func TestEventHandler_ExportICal_ReturnsCalendar(t *testing.T) {
	exporter := &mockICalExporter{data: "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"}
	h := NewEventHandler(&mockEventService{}, exporter)

	req := newChiRequest(http.MethodGet, "/api/events/event-1/ical", "event-1", nil)
	w := httptest.NewRecorder()

	h.ExportICal(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q, want text/calendar", ct)
	}
	if !strings.Contains(w.Body.String(), "BEGIN:VCALENDAR") {
		t.Error("response should contain iCalendar data")
	}
}

// TestEventHandler_ExportICal_NotFound は存在しないイベントのエクスポートが404になることをテストする。
func TestEventHandler_ExportICal_NotFound(t *testing.T) {
	exporter := &mockICalExporter{err: model.NewEventNotFoundError("missing")}
	h := NewEventHandler(&mockEventService{}, exporter)

	req := newChiRequest(http.MethodGet, "/api/events/missing/ical", "missing", nil)
	w := httptest.NewRecorder()

	h.ExportICal(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

// TestEventHandler_ExportICal_DisabledWithoutExporter はエクスポーター未設定時に404になることをテストする。
func TestEventHandler_ExportICal_DisabledWithoutExporter(t *testing.T) {
	h := NewEventHandler(&mockEventService{}, nil)

	req := newChiRequest(http.MethodGet, "/api/events/event-1/ical", "event-1", nil)
	w := httptest.NewRecorder()

	h.ExportICal(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}
