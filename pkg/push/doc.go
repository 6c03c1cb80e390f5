// Package push はWeb Push配信で各コンポーネントが共有するデータモデルを提供する。
//
// ブラウザが発行する購読情報（Subscription）、サーバーの識別に使うVAPID鍵ペア、
// サーバーからService Workerへ届ける通知ペイロードを定義する。
package push
