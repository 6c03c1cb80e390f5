// Package middleware はpushrelayのHTTP APIで使用する共通ミドルウェアを提供する。
//
// 運用APIを保護するJWT認証、パニックリカバリ、ブラウザからの購読登録を
// 受け付けるためのCORS設定を含む。
package middleware
