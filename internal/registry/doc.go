// Package registry は購読情報と配信履歴をSQLiteに保存する。
//
// 購読はendpointで一意であり、同じendpointで再登録された場合は鍵を置き換える。
// 配信履歴は event.Event として追記のみで保存する。
package registry
