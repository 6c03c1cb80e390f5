package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/nao1215/pushrelay/pkg/push"
)

const (
	// defaultTTL はプッシュサービスでのメッセージ保持秒数の既定値（24時間）。
	defaultTTL = 60 * 60 * 24
	// maxDetailSize は結果に含めるプッシュサービス応答本文の上限。
	maxDetailSize = 1024
)

// Dispatcher はVAPID鍵ペアを保持し、通知を送信する。
// 鍵ペアは生成後に変更されないため、複数のgoroutineから同時に使用できる。
type Dispatcher struct {
	// keys はサーバーの識別に使うVAPID鍵ペア。
	keys push.VAPIDKeys
	// httpClient はプッシュサービスへのリクエストに使うクライアント。nilの場合はwebpush-goの既定値。
	httpClient webpush.HTTPClient
	// ttl はプッシュサービスでのメッセージ保持秒数。
	ttl int
	// urgency はUrgencyヘッダーの値。空の場合は送信しない。
	urgency webpush.Urgency
}

// Option はDispatcherの設定を変更する。
type Option func(*Dispatcher)

// WithHTTPClient はプッシュサービスへのリクエストに使うHTTPクライアントを指定する。
func WithHTTPClient(c webpush.HTTPClient) Option {
	return func(d *Dispatcher) { d.httpClient = c }
}

// WithTTL はプッシュサービスでのメッセージ保持秒数を指定する。
func WithTTL(seconds int) Option {
	return func(d *Dispatcher) { d.ttl = seconds }
}

// WithUrgency はメッセージの緊急度を指定する。
func WithUrgency(u webpush.Urgency) Option {
	return func(d *Dispatcher) { d.urgency = u }
}

// New は新しいDispatcherを生成する。VAPID鍵ペアが不正な場合はエラーを返す。
func New(keys push.VAPIDKeys, opts ...Option) (*Dispatcher, error) {
	if err := keys.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{keys: keys, ttl: defaultTTL}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// PublicKey はこのDispatcherが署名に使うVAPID公開鍵を返す。
func (d *Dispatcher) PublicKey() string {
	return d.keys.PublicKey
}

// Send は1件の購読に通知を1回送信し、結果を返す。
// 失敗しても再送はしない。
func (d *Dispatcher) Send(ctx context.Context, sub push.Subscription, payload push.Payload) DeliveryResult {
	if err := sub.ValidateKeys(); err != nil {
		return rejected(ReasonInvalidSubscription, 0, err.Error())
	}

	message, err := json.Marshal(payload)
	if err != nil {
		return rejected(ReasonUnexpectedStatus, 0, fmt.Sprintf("ペイロードのシリアライズに失敗: %v", err))
	}

	resp, err := webpush.SendNotificationWithContext(ctx, message, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      d.httpClient,
		Subscriber:      subscriber(d.keys.Subject),
		TTL:             d.ttl,
		Urgency:         d.urgency,
		VAPIDPublicKey:  d.keys.PublicKey,
		VAPIDPrivateKey: d.keys.PrivateKey,
	})
	if err != nil {
		if errors.Is(err, webpush.ErrMaxPadExceeded) {
			log.Printf("[Dispatcher] ペイロードが大きすぎます: endpoint=%s, size=%d", shortEndpoint(sub.Endpoint), len(message))
			return rejected(ReasonPayloadTooLarge, 0, err.Error())
		}
		log.Printf("[Dispatcher] プッシュサービスに到達できません: endpoint=%s, err=%v", shortEndpoint(sub.Endpoint), err)
		return DeliveryResult{Status: StatusUnreachable, Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxDetailSize))
	result := classify(resp.StatusCode, strings.TrimSpace(string(body)))
	if result.Accepted() {
		log.Printf("[Dispatcher] 通知を送信しました: endpoint=%s, status=%d", shortEndpoint(sub.Endpoint), resp.StatusCode)
	} else {
		log.Printf("[Dispatcher] 通知が拒否されました: endpoint=%s, status=%d, reason=%s", shortEndpoint(sub.Endpoint), resp.StatusCode, result.Reason)
	}
	return result
}

// subscriber はVAPIDのsubクレームに渡す値を返す。
// webpush-goはhttps:で始まらない値にmailto:を付与するため、付いている場合は外しておく。
func subscriber(subject string) string {
	return strings.TrimPrefix(subject, "mailto:")
}

// shortEndpoint はログ出力用にendpointを先頭50文字に切り詰める。
func shortEndpoint(endpoint string) string {
	return endpoint[:min(50, len(endpoint))]
}
