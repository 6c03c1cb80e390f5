package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/pushrelay/internal/dispatcher"
	"github.com/nao1215/pushrelay/internal/registry"
	"github.com/nao1215/pushrelay/pkg/event"
	"github.com/nao1215/pushrelay/pkg/middleware"
	"github.com/nao1215/pushrelay/pkg/push"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Config はサーバーの設定。
type Config struct {
	// Port はリッスンポート。
	Port string
	// JWTSecret は運用APIのJWT署名鍵。
	JWTSecret string
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
}

// Server はpushrelayのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store は購読情報と配信ログのストア。
	store *registry.Store
	// dispatcher はプッシュサービスへの送信を行う。
	dispatcher *dispatcher.Dispatcher
}

// NewServer は新しいサーバーを生成する。
func NewServer(cfg Config, store *registry.Store, d *dispatcher.Dispatcher) *Server {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	s := &Server{
		router:     router,
		port:       cfg.Port,
		store:      store,
		dispatcher: d,
	}
	s.setupRoutes(cfg.JWTSecret)

	return s
}

// Handler はルーティング済みのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(jwtSecret string) {
	// ブラウザから呼び出される公開API
	s.router.GET("/vapid-public-key", s.handlePublicKey())
	s.router.POST("/save-subscription", s.handleSaveSubscription())

	api := s.router.Group("/api/v1")
	api.Use(middleware.JWTAuth(jwtSecret))
	{
		subscriptions := api.Group("/subscriptions")
		{
			// 購読一覧取得
			subscriptions.GET("", s.handleList())
			// 購読取得
			subscriptions.GET("/:id", s.handleGet())
			// 通知送信
			subscriptions.POST("/:id/notifications", s.handleSend())
			// 配信ログ取得
			subscriptions.GET("/:id/deliveries", s.handleListDeliveries())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "pushrelay"})
	})
}

// handlePublicKey はブラウザが購読に使うVAPID公開鍵を返すハンドラ。
func (s *Server) handlePublicKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"public_key": s.dispatcher.PublicKey()})
	}
}

// handleSaveSubscription はブラウザが送信した購読情報を保存するハンドラ。
// 同じエンドポイントの購読は置き換える。
func (s *Server) handleSaveSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sub push.Subscription
		if err := c.ShouldBindJSON(&sub); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}
		if err := sub.ValidateKeys(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		rec, err := s.store.Save(ctx, sub, s.dispatcher.PublicKey())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読情報の保存に失敗しました"})
			log.Printf("購読保存エラー: %v", err)
			return
		}

		s.appendEvent(c, rec.ID, event.TypeSubscriptionRegistered, event.SubscriptionRegisteredData{
			Endpoint: sub.Endpoint,
			VAPIDKey: rec.VAPIDKey,
		})

		c.JSON(http.StatusCreated, gin.H{"id": rec.ID})
	}
}

// handleList は購読一覧を新しい順に返すハンドラ。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := queryInt(c, "limit", defaultListLimit)
		if err != nil || limit < 1 || limit > maxListLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limitが不正です"})
			return
		}
		offset, err := queryInt(c, "offset", 0)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offsetが不正です"})
			return
		}

		records, err := s.store.List(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読一覧の取得に失敗しました"})
			log.Printf("購読一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, records)
	}
}

// handleGet は指定された購読を返すハンドラ。
func (s *Server) handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := s.lookup(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// sendRequest は通知送信リクエストのJSON構造。
type sendRequest struct {
	// Title は通知のタイトル。
	Title string `json:"title" binding:"required"`
	// Body は通知の本文。
	Body string `json:"body" binding:"required"`
	// Icon は通知アイコンのURL。
	Icon string `json:"icon"`
	// Badge はバッジ画像のURL。
	Badge string `json:"badge"`
	// URL は通知クリック時に開くURL。
	URL string `json:"url"`
}

// handleSend は指定された購読に通知を1回送信するハンドラ。
// 受理されれば200、拒否または到達不能なら502で配信結果を返す。
func (s *Server) handleSend() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "titleとbodyは必須です"})
			return
		}

		rec, ok := s.lookup(c)
		if !ok {
			return
		}

		// 別の鍵ペアで作られた購読はプッシュサービスに必ず拒否される
		if rec.VAPIDKey != s.dispatcher.PublicKey() {
			c.JSON(http.StatusConflict, gin.H{
				"error":  "購読時と異なるVAPID鍵では送信できません",
				"reason": "vapid_key_mismatch",
			})
			return
		}

		payload := push.Payload{
			Title: req.Title,
			Body:  req.Body,
			Icon:  req.Icon,
			Badge: req.Badge,
			URL:   req.URL,
		}
		result := s.dispatcher.Send(c.Request.Context(), rec.Subscription, payload)

		s.appendEvent(c, rec.ID, deliveryEventType(result.Status), event.DeliveryData{
			Title:      payload.Title,
			Operator:   middleware.GetOperator(c),
			Reason:     string(result.Reason),
			StatusCode: result.StatusCode,
			Detail:     result.Detail,
		})

		status := http.StatusOK
		if !result.Accepted() {
			status = http.StatusBadGateway
		}
		c.JSON(status, result)
	}
}

// handleListDeliveries は購読の配信ログを記録順に返すハンドラ。
func (s *Server) handleListDeliveries() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := s.lookup(c)
		if !ok {
			return
		}

		events, err := s.store.ListEvents(c.Request.Context(), rec.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "配信ログの取得に失敗しました"})
			log.Printf("配信ログ取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, events)
	}
}

// lookup はパスパラメータidの購読を取得する。
// 見つからない場合はレスポンスを書き込んでfalseを返す。
func (s *Server) lookup(c *gin.Context) (*registry.Record, bool) {
	rec, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, registry.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "購読が見つかりません"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "購読の取得に失敗しました"})
		log.Printf("購読取得エラー: %v", err)
		return nil, false
	}
	return rec, true
}

// appendEvent は配信ログにイベントを記録する。
// 記録に失敗してもリクエストの結果は変えない。
func (s *Server) appendEvent(c *gin.Context, subscriptionID string, eventType event.Type, data any) {
	ev, err := event.New(subscriptionID, eventType, data)
	if err != nil {
		log.Printf("イベント生成エラー: %v", err)
		return
	}
	if err := s.store.AppendEvent(c.Request.Context(), ev); err != nil {
		log.Printf("イベント記録エラー: type=%s, error=%v", eventType, err)
	}
}

// deliveryEventType は配信結果に対応するイベント種別を返す。
func deliveryEventType(status dispatcher.Status) event.Type {
	switch status {
	case dispatcher.StatusAccepted:
		return event.TypeNotificationAccepted
	case dispatcher.StatusUnreachable:
		return event.TypeNotificationUnreachable
	default:
		return event.TypeNotificationRejected
	}
}

// queryInt はクエリパラメータを整数として読み取る。未指定ならfallbackを返す。
func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
