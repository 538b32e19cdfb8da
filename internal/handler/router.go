package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/plan2meet/internal/middleware"
)

// HealthChecker は /health エンドポイントでの疎通確認に使う依存。
// *sql.DB がこのインターフェースを満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// SetupEventRoutes はイベント関連のルーティングを設定したchi.Routerを返す。
// createLimitMiddleware が nil でない場合、POST /api/events にイベント作成専用レート制限を適用する。
func SetupEventRoutes(service EventServiceInterface, exporter ICalExporter, createLimitMiddleware func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	h := NewEventHandler(service, exporter)

	r.Route("/api/events", func(r chi.Router) {
		// POST /api/events - イベント作成（作成専用レート制限を適用）
		if createLimitMiddleware != nil {
			r.With(createLimitMiddleware).Post("/", h.CreateEvent)
		} else {
			r.Post("/", h.CreateEvent)
		}

		// /api/events/:id 以下のルーティング
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetEvent)
			r.Get("/grid", h.GetGrid)
			r.Post("/participant", h.ResolveParticipant)
			r.Post("/availability", h.SubmitAvailability)
			r.Get("/ical", h.ExportICal)
		})
	})

	return r
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 運用系
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
	StatusRecorder middleware.HTTPStatusRecorder

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// イベント
	EventService EventServiceInterface
	ICalExporter ICalExporter
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Metrics → SecurityHeaders → Recovery → CORSMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// RecoveryはLogging/Metricsの内側に置く。panic時の500もリクエストログと
// ステータスメトリクスに反映される。
// イベントは共有リンクだけで参加できる設計のため、認証ミドルウェアは持たない。
// レート制限はクライアントIP単位で適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())

	// CORS ミドルウェアを全ルートに適用
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	eventHandler := NewEventHandler(deps.EventService, deps.ICalExporter)

	// --- 運用系ルート（レート制限の対象外） ---

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unhealthy"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/events", func(r chi.Router) {
			// POST /api/events - イベント作成（作成専用レート制限を追加）
			r.With(deps.RateLimiter.EventCreationMiddleware()).Post("/", eventHandler.CreateEvent)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", eventHandler.GetEvent)
				r.Get("/grid", eventHandler.GetGrid)
				r.Post("/participant", eventHandler.ResolveParticipant)
				r.Post("/availability", eventHandler.SubmitAvailability)
				r.Get("/ical", eventHandler.ExportICal)
			})
		})
	})

	return r
}
