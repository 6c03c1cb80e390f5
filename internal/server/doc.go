// Package server はpushrelayのHTTPサーバーを提供する。
//
// ブラウザからの購読情報の登録（POST /save-subscription）と、
// 運用者がJWTで認証して通知を送信する /api/v1 を公開する。
// 送信は1リクエストにつき1件の購読へ1回だけ行い、結果を配信ログに記録する。
package server
