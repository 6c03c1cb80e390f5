// Package httpclient はJSONでHTTP APIを呼び出すクライアントを提供する。
//
// ブラウザ側の購読マネージャーが購読情報を登録エンドポイントへ送信する際や、
// pushctlが運用APIへ通知送信を依頼する際に使用する。
// 2xx以外の応答は *HTTPError として返し、通信そのものの失敗と区別できるようにする。
package httpclient
