package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/relay/internal/metrics"
	"github.com/hitoshi/relay/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionVerifier   middleware.SessionVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	MaxInFlight       int
	Logger            *slog.Logger

	// 監視
	HealthChecker HealthChecker
	Metrics       *metrics.Collector
	Gatherer      prometheus.Gatherer

	// ドメインサービス
	AccountService AccountServiceInterface
	AuthVerifier   CredentialVerifier
	SessionIssuer  SessionIssuer
	MessageService MessageServiceInterface
	UnreadCounter  UnreadCounter
	Presence       interface {
		PresenceReader
		PresenceWriter
	}
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成した
// chi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Metrics → Recovery → ConcurrencyLimit
//	→（認証ルートのみ）Session → RateLimit(General)
//
// CreateAccountとLoginはセッション解決の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(metrics.NewHTTPMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewConcurrencyLimitMiddleware(deps.MaxInFlight))

	// typed-nilインターフェースを避けるため、Collectorが無い場合はnilのまま渡す
	var (
		accountMetrics AccountMetrics
		authMetrics    AuthMetrics
	)
	if deps.Metrics != nil {
		accountMetrics = deps.Metrics
		authMetrics = deps.Metrics
	}

	accountHandler := NewAccountHandler(deps.AccountService, deps.Presence, accountMetrics)
	authHandler := NewAuthHandler(deps.AuthVerifier, deps.SessionIssuer, deps.UnreadCounter, deps.Presence, authMetrics)
	messageHandler := NewMessageHandler(deps.MessageService)

	// --- 認証不要のルート ---

	r.Post("/api/accounts", accountHandler.CreateAccount)
	r.Post("/api/login", authHandler.Login)

	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// アカウント管理
		r.Get("/api/accounts", accountHandler.ListAccounts)
		r.Delete("/api/accounts/me", accountHandler.DeleteAccount)

		// セッション管理
		r.Post("/api/logout", authHandler.Logout)

		// メッセージ管理（送信には送信専用レート制限を追加）
		r.With(deps.RateLimiter.SendMiddleware()).Post("/api/messages", messageHandler.SendMessage)
		r.Get("/api/messages", messageHandler.GetMessages)
		r.Post("/api/messages/delete", messageHandler.DeleteMessages)

		// 会話管理
		r.Post("/api/conversations/{username}/read", messageHandler.MarkConversationAsRead)
		r.Get("/api/conversations/unread", messageHandler.UnreadBySender)
	})

	return r
}
