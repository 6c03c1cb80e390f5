// Package keycodec はWeb Pushで使用する公開鍵のテキスト表現とバイト列を相互変換する。
//
// サーバーが配布するVAPID公開鍵やブラウザが発行するp256dh/authは
// URLセーフなBase64（パディングなし）で表現される。購読APIには生のバイト列を
// 渡す必要があるため、本パッケージでパディング補完と文字置換を行ってデコードする。
package keycodec
