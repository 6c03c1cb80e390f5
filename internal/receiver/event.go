package receiver

import "context"

// EventType はService Workerが受け取るイベントの種別。
type EventType string

const (
	// EventPush はプッシュサービスからメッセージが届いたことを表す。
	EventPush EventType = "push"
	// EventNotificationClick は表示中の通知がクリックされたことを表す。
	EventNotificationClick EventType = "notificationclick"
)

// Event はWorkerに届くイベント。
type Event interface {
	Type() EventType
}

// PushEvent はプッシュメッセージの到着イベント。
type PushEvent struct {
	// Data は復号済みのペイロード。nilの場合はデータなしのプッシュ。
	Data []byte
}

// Type はイベント種別を返す。
func (PushEvent) Type() EventType { return EventPush }

// Notification は表示済みの通知。
type Notification interface {
	// Close は通知を閉じる。
	Close() error
	// Data は通知に関連付けられた遷移先URLを返す。
	Data() string
}

// NotificationClickEvent は通知のクリックイベント。
type NotificationClickEvent struct {
	Notification Notification
}

// Type はイベント種別を返す。
func (NotificationClickEvent) Type() EventType { return EventNotificationClick }

// NotificationOptions は通知の表示オプション。
type NotificationOptions struct {
	Body  string
	Icon  string
	Badge string
	// Data は通知に関連付ける遷移先URL。
	Data string
}

// Platform はService Workerの実行環境が提供する機能。
type Platform interface {
	// ShowNotification は通知を表示する。
	ShowNotification(ctx context.Context, title string, opts NotificationOptions) error
	// OpenWindow は指定URLを開いたウィンドウ（タブ）を表示する。
	OpenWindow(ctx context.Context, url string) error
}
