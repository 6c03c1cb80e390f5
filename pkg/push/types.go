package push

import (
	"errors"
	"fmt"

	"github.com/nao1215/pushrelay/pkg/keycodec"
)

var (
	// ErrIncompleteSubscription はendpoint・p256dh・authのいずれかが欠けていることを表す。
	ErrIncompleteSubscription = errors.New("購読情報が不完全です")
	// ErrInvalidSubscriptionKey はp256dhまたはauthの内容が不正であることを表す。
	ErrInvalidSubscriptionKey = errors.New("購読情報の鍵が不正です")
	// ErrInvalidVAPIDKeys はVAPID鍵ペアの設定が不正であることを表す。
	ErrInvalidVAPIDKeys = errors.New("VAPID鍵ペアが不正です")
)

const (
	// uncompressedPointSize は非圧縮形式のP-256公開鍵のバイト長。
	uncompressedPointSize = 65
	// authSecretSize はauthシークレットのバイト長。
	authSecretSize = 16
	// privateKeySize はP-256秘密鍵のバイト長。
	privateKeySize = 32
)

// Keys はペイロード暗号化に使うクライアント側の鍵。
type Keys struct {
	// P256dh はクライアントのECDH公開鍵（URLセーフBase64）。
	P256dh string `json:"p256dh"`
	// Auth はペイロード認証用の共有シークレット（URLセーフBase64）。
	Auth string `json:"auth"`
}

// Subscription はブラウザのPushManagerが発行する購読情報。
// 購読成功時に一度だけ生成され、以後は変更されない。
type Subscription struct {
	// Endpoint はプッシュサービス上の配信先URL。
	Endpoint string `json:"endpoint"`
	// Keys はペイロード暗号化用の鍵。
	Keys Keys `json:"keys"`
}

// Validate は3つのフィールドがすべて存在することを検証する。
func (s Subscription) Validate() error {
	if s.Endpoint == "" || s.Keys.P256dh == "" || s.Keys.Auth == "" {
		return ErrIncompleteSubscription
	}
	return nil
}

// ValidateKeys はValidateに加えて、p256dhが非圧縮のP-256公開鍵であり
// authが16バイトであることを検証する。
func (s Subscription) ValidateKeys() error {
	if err := s.Validate(); err != nil {
		return err
	}

	p256dh, err := keycodec.Decode(s.Keys.P256dh)
	if err != nil {
		return fmt.Errorf("%w: p256dh: %w", ErrInvalidSubscriptionKey, err)
	}
	if len(p256dh) != uncompressedPointSize || p256dh[0] != 0x04 {
		return fmt.Errorf("%w: p256dhは非圧縮のP-256公開鍵である必要があります", ErrInvalidSubscriptionKey)
	}

	auth, err := keycodec.Decode(s.Keys.Auth)
	if err != nil {
		return fmt.Errorf("%w: auth: %w", ErrInvalidSubscriptionKey, err)
	}
	if len(auth) != authSecretSize {
		return fmt.Errorf("%w: authは%dバイトである必要があります", ErrInvalidSubscriptionKey, authSecretSize)
	}
	return nil
}

// VAPIDKeys はプッシュサービスに送信元サーバーを証明するための鍵ペア。
// 起動時に設定され、プロセスの生存期間中は変更されない。
type VAPIDKeys struct {
	// PublicKey はVAPID公開鍵（URLセーフBase64）。クライアントの購読時にも使う。
	PublicKey string
	// PrivateKey はVAPID秘密鍵（URLセーフBase64）。
	PrivateKey string
	// Subject は連絡先URI（mailto: または https:）。
	Subject string
}

// Validate はVAPID鍵ペアの各値が存在し、鍵長が正しいことを検証する。
func (k VAPIDKeys) Validate() error {
	if k.PublicKey == "" || k.PrivateKey == "" || k.Subject == "" {
		return fmt.Errorf("%w: 公開鍵・秘密鍵・subjectはすべて必須です", ErrInvalidVAPIDKeys)
	}

	pub, err := keycodec.Decode(k.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: 公開鍵: %w", ErrInvalidVAPIDKeys, err)
	}
	if len(pub) != uncompressedPointSize {
		return fmt.Errorf("%w: 公開鍵は%dバイトである必要があります", ErrInvalidVAPIDKeys, uncompressedPointSize)
	}

	priv, err := keycodec.Decode(k.PrivateKey)
	if err != nil {
		return fmt.Errorf("%w: 秘密鍵: %w", ErrInvalidVAPIDKeys, err)
	}
	if len(priv) != privateKeySize {
		return fmt.Errorf("%w: 秘密鍵は%dバイトである必要があります", ErrInvalidVAPIDKeys, privateKeySize)
	}
	return nil
}

// Payload はサーバーからService Workerへ届ける通知の内容。
// 送信ごとに新しく組み立て、JSONとしてプッシュサービスを経由する。
type Payload struct {
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Body は通知の本文。
	Body string `json:"body"`
	// Icon は通知アイコンのURL。
	Icon string `json:"icon,omitempty"`
	// Badge はバッジ画像のURL。
	Badge string `json:"badge,omitempty"`
	// URL は通知クリック時に開くURL。
	URL string `json:"url,omitempty"`
}
