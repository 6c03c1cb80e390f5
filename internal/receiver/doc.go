// Package receiver はService Worker側でプッシュイベントと通知クリックイベントを処理する。
//
// Worker はイベント種別ごとのハンドラーテーブルを持つシングルスレッドのイベントループで、
// ハンドラーが Lifetime.WaitUntil で登録した処理（通知の表示、ウィンドウの表示）が
// 完了するまで次のイベントを処理しない。イベント間で状態は保持しない。
package receiver
