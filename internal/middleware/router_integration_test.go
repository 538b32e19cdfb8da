package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// TestRouterIntegration_RateLimitGroups はAPI全般とイベント作成の
// 2段階レート制限がchi.Routerで正しく動作することを検証する。
func TestRouterIntegration_RateLimitGroups(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:      100, // 全般は制限に引っかからない設定
		GeneralBurst:     200,
		EventCreateRate:  1,
		EventCreateBurst: 1, // 作成は1回でバーストを使い切る
		CleanupInterval:  1 * time.Minute,
	})
	defer rl.Stop()

	r := chi.NewRouter()
	r.Use(NewCORSMiddleware("http://localhost:3000"))

	r.Group(func(r chi.Router) {
		r.Use(rl.GeneralMiddleware())

		r.Route("/api/events", func(r chi.Router) {
			r.With(rl.EventCreationMiddleware()).Post("/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(map[string]string{"id": "event-1"})
			})
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"id": chi.URLParam(r, "id")})
			})
		})
	})

	newReq := func(method, target string) *http.Request {
		req := httptest.NewRequest(method, target, nil)
		req.RemoteAddr = "192.0.2.70:40000"
		return req
	}

	// テスト1: POST /api/events の1回目は201
	t.Run("create_first_request_allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, newReq(http.MethodPost, "/api/events"))

		if w.Result().StatusCode != http.StatusCreated {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
		}
	})

	// テスト2: POST /api/events の2回目は作成専用制限で429
	t.Run("create_second_request_limited", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, newReq(http.MethodPost, "/api/events"))

		if w.Result().StatusCode != http.StatusTooManyRequests {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusTooManyRequests)
		}
	})

	// テスト3: GET /api/events/:id は作成制限の影響を受けない
	t.Run("get_unaffected_by_create_limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, newReq(http.MethodGet, "/api/events/event-1"))

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
		}

		var body map[string]string
		json.NewDecoder(w.Result().Body).Decode(&body)
		if body["id"] != "event-1" {
			t.Errorf("id = %q, want %q", body["id"], "event-1")
		}
	})

	// テスト4: CORSヘッダーが全ルートに付与される
	t.Run("cors_headers_applied", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, newReq(http.MethodGet, "/api/events/event-1"))

		if got := w.Result().Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
		}
	})
}
