package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nao1215/pushrelay/pkg/httpclient"
	"github.com/nao1215/pushrelay/pkg/keycodec"
	"github.com/nao1215/pushrelay/pkg/push"
)

const (
	// DefaultScriptPath はService Workerスクリプトの既定のパス。
	DefaultScriptPath = "/sw.js"
	// DefaultSubscribePath は購読情報の送信先の既定のパス。
	DefaultSubscribePath = "/save-subscription"
)

// Config はManagerの設定。
type Config struct {
	// ServerPublicKey はサーバーのVAPID公開鍵（URLセーフBase64）。
	ServerPublicKey string
	// ScriptPath はService Workerスクリプトのパス。
	ScriptPath string
	// SubscribePath は購読情報の送信先のパス。
	SubscribePath string
}

// Manager はブラウザ側の購読フローを管理する。
type Manager struct {
	platform Platform
	client   *httpclient.Client
	cfg      Config
}

// New は新しいManagerを生成する。clientは購読情報の送信先サーバーに接続する。
func New(platform Platform, client *httpclient.Client, cfg Config) *Manager {
	if cfg.ScriptPath == "" {
		cfg.ScriptPath = DefaultScriptPath
	}
	if cfg.SubscribePath == "" {
		cfg.SubscribePath = DefaultSubscribePath
	}
	return &Manager{platform: platform, client: client, cfg: cfg}
}

// CheckSupport はService WorkerとPush APIの両方が利用できればtrueを返す。
func (m *Manager) CheckSupport() bool {
	return m.platform.HasServiceWorker() && m.platform.HasPushManager()
}

// RegisterWorker はService Workerを登録する。
func (m *Manager) RegisterWorker(ctx context.Context) (WorkerHandle, error) {
	handle, err := m.platform.RegisterWorker(ctx, m.cfg.ScriptPath)
	if err != nil {
		return nil, &RegistrationError{ScriptPath: m.cfg.ScriptPath, Err: err}
	}
	if handle == nil {
		return nil, &RegistrationError{ScriptPath: m.cfg.ScriptPath, Err: errors.New("ハンドルが返されませんでした")}
	}
	return handle, nil
}

// RequestPermission は通知許可を要求する。ユーザー操作1回につき1回だけ呼び出す。
func (m *Manager) RequestPermission(ctx context.Context) (Permission, error) {
	perm, err := m.platform.RequestPermission(ctx)
	if err != nil {
		return Denied, fmt.Errorf("通知許可の要求に失敗: %w", err)
	}
	return perm, nil
}

// Subscribe はサーバーの公開鍵でプッシュサービスに購読する。
// 公開鍵をデコードできない場合は keycodec.ErrInvalidKeyEncoding を返す。
func (m *Manager) Subscribe(ctx context.Context, handle WorkerHandle, serverPublicKey string) (push.Subscription, error) {
	if handle == nil {
		return push.Subscription{}, &SubscriptionError{Err: errors.New("Service Workerが登録されていません")}
	}

	key, err := keycodec.Decode(serverPublicKey)
	if err != nil {
		return push.Subscription{}, fmt.Errorf("サーバー公開鍵のデコードに失敗: %w", err)
	}

	sub, err := handle.Subscribe(ctx, SubscribeOptions{
		UserVisibleOnly:      true,
		ApplicationServerKey: key,
	})
	if err != nil {
		return push.Subscription{}, &SubscriptionError{Err: err}
	}
	if err := sub.Validate(); err != nil {
		return push.Subscription{}, &SubscriptionError{Err: err}
	}
	return sub, nil
}

// SendSubscription は購読情報をJSONでサーバーにPOSTする。
func (m *Manager) SendSubscription(ctx context.Context, path string, sub push.Subscription) error {
	err := m.client.PostJSON(ctx, path, sub, nil)
	if err == nil {
		return nil
	}

	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		return &ServerError{StatusCode: httpErr.StatusCode, Body: httpErr.Body}
	}
	var transportErr *httpclient.TransportError
	if errors.As(err, &transportErr) {
		return &NetworkError{Err: transportErr.Err}
	}
	return err
}

// Start はページ読み込み時の処理を行う。
// 対応していない環境では ErrUnsupportedPlatform を返し、それ以外は何もしない。
func (m *Manager) Start(ctx context.Context) (WorkerHandle, error) {
	if !m.CheckSupport() {
		log.Printf("[Subscriber] %v", ErrUnsupportedPlatform)
		return nil, ErrUnsupportedPlatform
	}

	handle, err := m.RegisterWorker(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("[Subscriber] Service Workerを登録しました: script=%s", m.cfg.ScriptPath)
	return handle, nil
}

// HandleSubscribeClick は購読ボタンが押されたときの処理を行う。
// 許可の要求、購読、送信を順番に実行し、許可されなかった場合はそこで中断する。
func (m *Manager) HandleSubscribeClick(ctx context.Context, handle WorkerHandle) (push.Subscription, error) {
	perm, err := m.RequestPermission(ctx)
	if err != nil {
		return push.Subscription{}, err
	}
	if perm != Granted {
		log.Printf("[Subscriber] 通知が許可されませんでした")
		return push.Subscription{}, ErrPermissionDenied
	}

	sub, err := m.Subscribe(ctx, handle, m.cfg.ServerPublicKey)
	if err != nil {
		return push.Subscription{}, err
	}

	if err := m.SendSubscription(ctx, m.cfg.SubscribePath, sub); err != nil {
		return sub, err
	}
	log.Printf("[Subscriber] 購読情報をサーバーに送信しました")
	return sub, nil
}
