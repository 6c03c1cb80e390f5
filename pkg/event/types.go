// Package event は購読と配信の履歴を記録するイベントを定義する。
//
// イベントは不変であり、購読ごとの配信ログとして追記のみで保存される。
// 失敗した通知を再送するためのキューではない。
package event

import (
	"encoding/json"
	"time"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeSubscriptionRegistered は購読情報が登録（または置き換え）されたことを表す。
	TypeSubscriptionRegistered Type = "SubscriptionRegistered"
	// TypeNotificationAccepted はプッシュサービスが通知を受理したことを表す。
	TypeNotificationAccepted Type = "NotificationAccepted"
	// TypeNotificationRejected はプッシュサービスが通知を拒否したことを表す。
	TypeNotificationRejected Type = "NotificationRejected"
	// TypeNotificationUnreachable はプッシュサービスに到達できなかったことを表す。
	TypeNotificationUnreachable Type = "NotificationUnreachable"
)

// Event は購読に紐づく不変のイベントレコード。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// SubscriptionID は対象の購読ID。
	SubscriptionID string `json:"subscription_id"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// SubscriptionRegisteredData はSubscriptionRegisteredイベントのデータ。
type SubscriptionRegisteredData struct {
	// Endpoint はプッシュサービス上の配信先URL。
	Endpoint string `json:"endpoint"`
	// VAPIDKey は購読時に使われたVAPID公開鍵。
	VAPIDKey string `json:"vapid_key"`
}

// DeliveryData は配信結果イベント（Accepted/Rejected/Unreachable）のデータ。
type DeliveryData struct {
	// Title は送信した通知のタイトル。
	Title string `json:"title"`
	// Operator は送信を指示した運用者名。
	Operator string `json:"operator,omitempty"`
	// Reason は拒否理由。受理時は空。
	Reason string `json:"reason,omitempty"`
	// StatusCode はプッシュサービスのHTTPステータス。到達できなかった場合は0。
	StatusCode int `json:"status_code,omitempty"`
	// Detail はエラーの詳細。
	Detail string `json:"detail,omitempty"`
}
