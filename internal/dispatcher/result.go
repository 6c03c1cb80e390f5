package dispatcher

import "net/http"

// Status は配信結果の種類。
type Status string

const (
	// StatusAccepted はプッシュサービスが通知を受理したことを表す。
	StatusAccepted Status = "accepted"
	// StatusRejected はプッシュサービス（または送信前の検証）が通知を拒否したことを表す。
	StatusRejected Status = "rejected"
	// StatusUnreachable はプッシュサービスに到達できなかったことを表す。
	StatusUnreachable Status = "unreachable"
)

// Reason は拒否理由。
type Reason string

const (
	// ReasonSubscriptionGone は購読が失効または解除されたことを表す（404/410）。
	ReasonSubscriptionGone Reason = "subscription_gone"
	// ReasonPayloadTooLarge はペイロードが大きすぎることを表す。
	ReasonPayloadTooLarge Reason = "payload_too_large"
	// ReasonAuthenticationFailed はVAPID署名が受け入れられなかったことを表す（401/403）。
	ReasonAuthenticationFailed Reason = "authentication_failed"
	// ReasonInvalidSubscription は購読情報の鍵が不正で暗号化できないことを表す。
	ReasonInvalidSubscription Reason = "invalid_subscription"
	// ReasonUnexpectedStatus はその他の2xx以外の応答を表す。
	ReasonUnexpectedStatus Reason = "unexpected_status"
)

// DeliveryResult は1回の送信の結果。
type DeliveryResult struct {
	// Status は結果の種類。
	Status Status `json:"status"`
	// Reason は拒否理由。Status が StatusRejected のときのみ設定される。
	Reason Reason `json:"reason,omitempty"`
	// StatusCode はプッシュサービスのHTTPステータス。応答が無い場合は0。
	StatusCode int `json:"status_code,omitempty"`
	// Detail はエラーやプッシュサービスの応答本文。
	Detail string `json:"detail,omitempty"`
}

// Accepted はプッシュサービスが通知を受理した場合にtrueを返す。
func (r DeliveryResult) Accepted() bool {
	return r.Status == StatusAccepted
}

// classify はプッシュサービスのHTTPステータスを配信結果に変換する。
func classify(code int, body string) DeliveryResult {
	switch {
	case code >= 200 && code < 300:
		return DeliveryResult{Status: StatusAccepted, StatusCode: code}
	case code == http.StatusNotFound || code == http.StatusGone:
		return rejected(ReasonSubscriptionGone, code, body)
	case code == http.StatusRequestEntityTooLarge:
		return rejected(ReasonPayloadTooLarge, code, body)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return rejected(ReasonAuthenticationFailed, code, body)
	default:
		return rejected(ReasonUnexpectedStatus, code, body)
	}
}

func rejected(reason Reason, code int, detail string) DeliveryResult {
	return DeliveryResult{Status: StatusRejected, Reason: reason, StatusCode: code, Detail: detail}
}
