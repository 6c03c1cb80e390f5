package subscriber

import (
	"context"

	"github.com/nao1215/pushrelay/pkg/push"
)

// Permission は通知許可の要求結果。
type Permission int

const (
	// Denied は通知が許可されなかったことを表す。プロンプトを閉じただけの場合も含む。
	Denied Permission = iota
	// Granted は通知が許可されたことを表す。
	Granted
)

// String はPermissionの文字列表現を返す。
func (p Permission) String() string {
	if p == Granted {
		return "granted"
	}
	return "denied"
}

// ParsePermission はブラウザが返す許可状態の文字列をPermissionに変換する。
// "granted" 以外（"denied"、"default"）はすべて Denied として扱う。
func ParsePermission(s string) Permission {
	if s == "granted" {
		return Granted
	}
	return Denied
}

// SubscribeOptions はプッシュサービスへの購読オプション。
type SubscribeOptions struct {
	// UserVisibleOnly はすべてのプッシュで通知を表示することを宣言する。
	UserVisibleOnly bool
	// ApplicationServerKey はデコード済みのVAPID公開鍵。
	ApplicationServerKey []byte
}

// WorkerHandle は登録済みのService Worker。
type WorkerHandle interface {
	// Subscribe はプッシュサービスに購読し、購読情報を返す。
	Subscribe(ctx context.Context, opts SubscribeOptions) (push.Subscription, error)
}

// Platform はブラウザが提供する機能。
type Platform interface {
	HasServiceWorker() bool
	HasPushManager() bool
	// RegisterWorker はService Workerのスクリプトを登録する。
	RegisterWorker(ctx context.Context, scriptPath string) (WorkerHandle, error)
	// RequestPermission は通知許可のプロンプトを表示し、結果を返す。
	RequestPermission(ctx context.Context) (Permission, error)
}
