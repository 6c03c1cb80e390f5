package dispatcher

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/nao1215/pushrelay/pkg/keycodec"
	"github.com/nao1215/pushrelay/pkg/push"
)

// pushRequest はテスト用プッシュサービスが受け取ったリクエスト。
type pushRequest struct {
	Path    string
	Headers http.Header
	Body    []byte
}

// fakePushService はステータスコードを指定できるテスト用プッシュサービス。
type fakePushService struct {
	mu       sync.Mutex
	requests []pushRequest
	server   *httptest.Server
}

// newFakePushService はstatusを返すテスト用プッシュサービスを起動する。
func newFakePushService(t *testing.T, status int, body string) *fakePushService {
	t.Helper()

	f := &fakePushService{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, pushRequest{Path: r.URL.Path, Headers: r.Header.Clone(), Body: b})
		f.mu.Unlock()

		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(f.server.Close)
	return f
}

// received は受け取ったリクエストのコピーを返す。
func (f *fakePushService) received() []pushRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pushRequest(nil), f.requests...)
}

// newTestKeys はwebpush-goでVAPID鍵ペアを生成する。
func newTestKeys(t *testing.T) push.VAPIDKeys {
	t.Helper()

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("VAPID鍵の生成に失敗: %v", err)
	}
	return push.VAPIDKeys{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Subject:    "mailto:ops@example.com",
	}
}

// newTestSubscription はブラウザが発行するのと同じ形式の購読情報を生成する。
func newTestSubscription(t *testing.T, endpoint string) push.Subscription {
	t.Helper()

	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ECDH鍵の生成に失敗: %v", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatalf("authの生成に失敗: %v", err)
	}

	return push.Subscription{
		Endpoint: endpoint,
		Keys: push.Keys{
			P256dh: keycodec.Encode(priv.PublicKey().Bytes()),
			Auth:   keycodec.Encode(auth),
		},
	}
}

// TestNew はNew関数を検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("正しい鍵ペアでDispatcherを生成できること", func(t *testing.T) {
		t.Parallel()

		keys := newTestKeys(t)
		d, err := New(keys)
		if err != nil {
			t.Fatalf("New()でエラーが発生: %v", err)
		}
		if d.PublicKey() != keys.PublicKey {
			t.Errorf("PublicKey() = %q, want %q", d.PublicKey(), keys.PublicKey)
		}
		if d.ttl != 86400 {
			t.Errorf("ttl = %d, want %d", d.ttl, 86400)
		}
	})

	t.Run("オプションが反映されること", func(t *testing.T) {
		t.Parallel()

		d, err := New(newTestKeys(t), WithTTL(60), WithUrgency(webpush.UrgencyHigh))
		if err != nil {
			t.Fatalf("New()でエラーが発生: %v", err)
		}
		if d.ttl != 60 {
			t.Errorf("ttl = %d, want %d", d.ttl, 60)
		}
		if d.urgency != webpush.UrgencyHigh {
			t.Errorf("urgency = %q, want %q", d.urgency, webpush.UrgencyHigh)
		}
	})

	t.Run("不正な鍵ペアではエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := New(push.VAPIDKeys{PublicKey: "x", PrivateKey: "y"})
		if !errors.Is(err, push.ErrInvalidVAPIDKeys) {
			t.Errorf("err = %v, want ErrInvalidVAPIDKeys", err)
		}
	})
}

// TestSend はSendメソッドを検証する。
func TestSend(t *testing.T) {
	t.Parallel()

	payload := push.Payload{Title: "Olá!", Body: "Esta é uma notificação do servidor.", URL: "/inbox"}

	t.Run("VAPID署名付きで暗号化したペイロードが送信されること", func(t *testing.T) {
		t.Parallel()

		svc := newFakePushService(t, http.StatusCreated, "")
		keys := newTestKeys(t)
		d, err := New(keys, WithTTL(120))
		if err != nil {
			t.Fatalf("New()でエラーが発生: %v", err)
		}

		result := d.Send(t.Context(), newTestSubscription(t, svc.server.URL+"/push/abc"), payload)

		if !result.Accepted() {
			t.Fatalf("result = %+v, want accepted", result)
		}
		if result.StatusCode != http.StatusCreated {
			t.Errorf("StatusCode = %d, want %d", result.StatusCode, http.StatusCreated)
		}

		reqs := svc.received()
		if len(reqs) != 1 {
			t.Fatalf("リクエスト数 = %d, want 1", len(reqs))
		}
		req := reqs[0]
		if req.Path != "/push/abc" {
			t.Errorf("Path = %q, want %q", req.Path, "/push/abc")
		}
		auth := req.Headers.Get("Authorization")
		if !strings.HasPrefix(auth, "vapid t=") {
			t.Errorf("Authorization = %q, vapidスキームではない", auth)
		}
		if !strings.Contains(auth, "k="+keys.PublicKey) {
			t.Errorf("Authorization に公開鍵が含まれていない: %q", auth)
		}
		if got := req.Headers.Get("TTL"); got != "120" {
			t.Errorf("TTL = %q, want %q", got, "120")
		}
		if got := req.Headers.Get("Content-Encoding"); got != "aes128gcm" {
			t.Errorf("Content-Encoding = %q, want %q", got, "aes128gcm")
		}
		if len(req.Body) == 0 || strings.Contains(string(req.Body), "Olá!") {
			t.Error("ペイロードが暗号化されていない")
		}
	})

	t.Run("プッシュサービスの応答が配信結果に分類されること", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name       string
			status     int
			wantStatus Status
			wantReason Reason
		}{
			{name: "201は受理", status: http.StatusCreated, wantStatus: StatusAccepted},
			{name: "404は購読失効", status: http.StatusNotFound, wantStatus: StatusRejected, wantReason: ReasonSubscriptionGone},
			{name: "410は購読失効", status: http.StatusGone, wantStatus: StatusRejected, wantReason: ReasonSubscriptionGone},
			{name: "413はペイロード過大", status: http.StatusRequestEntityTooLarge, wantStatus: StatusRejected, wantReason: ReasonPayloadTooLarge},
			{name: "401は認証失敗", status: http.StatusUnauthorized, wantStatus: StatusRejected, wantReason: ReasonAuthenticationFailed},
			{name: "403は認証失敗", status: http.StatusForbidden, wantStatus: StatusRejected, wantReason: ReasonAuthenticationFailed},
			{name: "429はその他の応答", status: http.StatusTooManyRequests, wantStatus: StatusRejected, wantReason: ReasonUnexpectedStatus},
			{name: "500はその他の応答", status: http.StatusInternalServerError, wantStatus: StatusRejected, wantReason: ReasonUnexpectedStatus},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				svc := newFakePushService(t, tt.status, "detail from push service\n")
				d, err := New(newTestKeys(t))
				if err != nil {
					t.Fatalf("New()でエラーが発生: %v", err)
				}

				result := d.Send(t.Context(), newTestSubscription(t, svc.server.URL+"/push/x"), payload)

				if result.Status != tt.wantStatus {
					t.Errorf("Status = %q, want %q", result.Status, tt.wantStatus)
				}
				if result.Reason != tt.wantReason {
					t.Errorf("Reason = %q, want %q", result.Reason, tt.wantReason)
				}
				if result.StatusCode != tt.status {
					t.Errorf("StatusCode = %d, want %d", result.StatusCode, tt.status)
				}
				if tt.wantStatus == StatusRejected && result.Detail != "detail from push service" {
					t.Errorf("Detail = %q", result.Detail)
				}
			})
		}
	})

	t.Run("プッシュサービスに接続できない場合はunreachableになること", func(t *testing.T) {
		t.Parallel()

		svc := newFakePushService(t, http.StatusCreated, "")
		endpoint := svc.server.URL + "/push/closed"
		svc.server.Close()

		d, err := New(newTestKeys(t))
		if err != nil {
			t.Fatalf("New()でエラーが発生: %v", err)
		}

		result := d.Send(t.Context(), newTestSubscription(t, endpoint), payload)

		if result.Status != StatusUnreachable {
			t.Errorf("Status = %q, want %q", result.Status, StatusUnreachable)
		}
		if result.Detail == "" {
			t.Error("Detailが空")
		}
	})

	t.Run("鍵が不正な購読はプッシュサービスに送信せずに拒否されること", func(t *testing.T) {
		t.Parallel()

		svc := newFakePushService(t, http.StatusCreated, "")
		d, err := New(newTestKeys(t))
		if err != nil {
			t.Fatalf("New()でエラーが発生: %v", err)
		}

		sub := push.Subscription{Endpoint: svc.server.URL + "/push/bad", Keys: push.Keys{P256dh: "short", Auth: "short"}}
		result := d.Send(t.Context(), sub, payload)

		if result.Status != StatusRejected || result.Reason != ReasonInvalidSubscription {
			t.Errorf("result = %+v, want rejected/invalid_subscription", result)
		}
		if n := len(svc.received()); n != 0 {
			t.Errorf("リクエスト数 = %d, want 0", n)
		}
	})

	t.Run("大きすぎるペイロードはpayload_too_largeになること", func(t *testing.T) {
		t.Parallel()

		// webpush-goが送信前に拒否しない場合でも、プッシュサービスが413を返す
		svc := newFakePushService(t, http.StatusRequestEntityTooLarge, "")
		d, err := New(newTestKeys(t))
		if err != nil {
			t.Fatalf("New()でエラーが発生: %v", err)
		}

		big := push.Payload{Title: "big", Body: strings.Repeat("a", 8192)}
		result := d.Send(t.Context(), newTestSubscription(t, svc.server.URL+"/push/big"), big)

		if result.Status != StatusRejected || result.Reason != ReasonPayloadTooLarge {
			t.Errorf("result = %+v, want rejected/payload_too_large", result)
		}
	})

	t.Run("キャンセル済みのコンテキストではunreachableになること", func(t *testing.T) {
		t.Parallel()

		svc := newFakePushService(t, http.StatusCreated, "")
		d, err := New(newTestKeys(t))
		if err != nil {
			t.Fatalf("New()でエラーが発生: %v", err)
		}

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		result := d.Send(ctx, newTestSubscription(t, svc.server.URL+"/push/c"), payload)
		if result.Status != StatusUnreachable {
			t.Errorf("Status = %q, want %q", result.Status, StatusUnreachable)
		}
	})
}

// TestSubscriber はsubクレームの値の組み立てを検証する。
func TestSubscriber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		subject string
		want    string
	}{
		{subject: "mailto:ops@example.com", want: "ops@example.com"},
		{subject: "ops@example.com", want: "ops@example.com"},
		{subject: "https://example.com/contact", want: "https://example.com/contact"},
	}

	for _, tt := range tests {
		if got := subscriber(tt.subject); got != tt.want {
			t.Errorf("subscriber(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}
