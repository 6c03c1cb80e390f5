package subscriber

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPlatform はService WorkerまたはPush APIが利用できないことを表す。
	ErrUnsupportedPlatform = errors.New("このブラウザはService Workerまたはプッシュ通知に対応していません")
	// ErrPermissionDenied はユーザーが通知を許可しなかったことを表す。
	ErrPermissionDenied = errors.New("通知の許可が得られませんでした")
)

// RegistrationError はService Workerのスクリプトを読み込めない、または有効化できないことを表す。
type RegistrationError struct {
	ScriptPath string
	Err        error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("Service Workerの登録に失敗: script=%s: %v", e.ScriptPath, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// SubscriptionError はプッシュサービスへの購読がプラットフォームに拒否されたことを表す。
type SubscriptionError struct {
	Err error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("プッシュサービスへの購読に失敗: %v", e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// NetworkError は購読情報の送信がサーバーに届かなかったことを表す。
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("購読情報の送信に失敗: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError はサーバーが購読情報を2xx以外で応答したことを表す。
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("サーバーが購読情報を受け付けませんでした: status=%d, body=%s", e.StatusCode, e.Body)
}
