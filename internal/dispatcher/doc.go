// Package dispatcher はVAPIDで署名したWeb Pushリクエストを組み立て、
// 1件の購読に対して1件の通知をプッシュサービスへ送信する。
//
// 送信は1回きりで、バッチ・キューイング・再送は行わない。
// プッシュサービスの応答は DeliveryResult に分類して呼び出し元へ返す。
// ペイロードの暗号化は webpush-go に委譲する。
package dispatcher
