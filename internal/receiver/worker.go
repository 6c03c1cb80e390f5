package receiver

import (
	"context"
	"errors"
	"fmt"
	"log"
)

var (
	// ErrUnhandledEvent はハンドラーが登録されていない種別のイベントを受け取ったことを表す。
	ErrUnhandledEvent = errors.New("未対応のイベントです")
	// ErrNilEvent はnilのイベントを受け取ったことを表す。
	ErrNilEvent = errors.New("イベントがnilです")
)

// Lifetime はイベント処理の寿命を延長する処理を集める。
// ハンドラーが WaitUntil で登録した処理がすべて完了するまで、Workerはイベント処理を終えない。
type Lifetime struct {
	pending []func(ctx context.Context) error
}

// WaitUntil はイベント処理の完了前に実行を終える必要がある処理を登録する。
func (l *Lifetime) WaitUntil(fn func(ctx context.Context) error) {
	l.pending = append(l.pending, fn)
}

// settle は登録された処理を登録順に実行し、発生したエラーをまとめて返す。
func (l *Lifetime) settle(ctx context.Context) error {
	var errs []error
	for _, fn := range l.pending {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	l.pending = nil
	return errors.Join(errs...)
}

// Handler はイベントを処理する関数。
// 非同期に完了する処理は lt.WaitUntil で登録する。
type Handler func(ctx context.Context, ev Event, lt *Lifetime) error

// Worker はプッシュ通知を処理するService Worker。
type Worker struct {
	platform Platform
	handlers map[EventType]Handler
}

// NewWorker はpushとnotificationclickのハンドラーを登録したWorkerを生成する。
func NewWorker(platform Platform) *Worker {
	w := &Worker{
		platform: platform,
		handlers: make(map[EventType]Handler),
	}
	w.handlers[EventPush] = w.handlePush
	w.handlers[EventNotificationClick] = w.handleNotificationClick
	return w
}

// Handle はイベント種別に対するハンドラーを登録する。既存のハンドラーは置き換える。
func (w *Worker) Handle(t EventType, h Handler) {
	w.handlers[t] = h
}

// Dispatch はイベントを1件処理する。
// ハンドラーが登録した処理がすべて完了してから戻る。
func (w *Worker) Dispatch(ctx context.Context, ev Event) error {
	if isNilEvent(ev) {
		return ErrNilEvent
	}

	h, ok := w.handlers[ev.Type()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnhandledEvent, ev.Type())
	}

	lt := &Lifetime{}
	herr := h(ctx, ev, lt)
	// ハンドラーが失敗しても、それまでに登録された処理は完了させる
	serr := lt.settle(ctx)
	return errors.Join(herr, serr)
}

// Run はイベントループを実行する。イベントは1件ずつ順番に処理する。
// eventsが閉じられると nil を、ctxがキャンセルされるとそのエラーを返す。
func (w *Worker) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := w.Dispatch(ctx, ev); err != nil {
				log.Printf("[Receiver] イベント処理に失敗: event=%T, error=%v", ev, err)
			}
		}
	}
}

// handlePush はプッシュメッセージのペイロードから通知を表示する。
func (w *Worker) handlePush(ctx context.Context, ev Event, lt *Lifetime) error {
	pe, ok := asPushEvent(ev)
	if !ok {
		return fmt.Errorf("pushイベントの型が不正です: %T", ev)
	}

	payload, err := ResolvePayload(pe.Data)
	if err != nil {
		log.Printf("[Receiver] 既定のペイロードで通知を表示: %v", err)
	}

	opts := NotificationOptions{
		Body:  payload.Body,
		Icon:  payload.Icon,
		Badge: payload.Badge,
		Data:  payload.URL,
	}
	lt.WaitUntil(func(ctx context.Context) error {
		if err := w.platform.ShowNotification(ctx, payload.Title, opts); err != nil {
			return fmt.Errorf("通知の表示に失敗: %w", err)
		}
		return nil
	})
	return nil
}

// handleNotificationClick は通知を閉じてから、通知に関連付けられたURLを開く。
func (w *Worker) handleNotificationClick(ctx context.Context, ev Event, lt *Lifetime) error {
	ce, ok := asNotificationClickEvent(ev)
	if !ok || ce.Notification == nil {
		return fmt.Errorf("notificationclickイベントの型が不正です: %T", ev)
	}

	if err := ce.Notification.Close(); err != nil {
		log.Printf("[Receiver] 通知のクローズに失敗: %v", err)
	}

	url := orDefault(ce.Notification.Data(), DefaultURL)
	lt.WaitUntil(func(ctx context.Context) error {
		if err := w.platform.OpenWindow(ctx, url); err != nil {
			return fmt.Errorf("ウィンドウの表示に失敗: url=%s: %w", url, err)
		}
		return nil
	})
	return nil
}

// isNilEvent はevがnil、またはnilポインタのイベントであればtrueを返す。
func isNilEvent(ev Event) bool {
	switch e := ev.(type) {
	case nil:
		return true
	case *PushEvent:
		return e == nil
	case *NotificationClickEvent:
		return e == nil
	}
	return false
}

// asPushEvent は値とポインタのどちらのPushEventも受け付ける。
func asPushEvent(ev Event) (PushEvent, bool) {
	switch e := ev.(type) {
	case PushEvent:
		return e, true
	case *PushEvent:
		if e != nil {
			return *e, true
		}
	}
	return PushEvent{}, false
}

// asNotificationClickEvent は値とポインタのどちらのNotificationClickEventも受け付ける。
func asNotificationClickEvent(ev Event) (NotificationClickEvent, bool) {
	switch e := ev.(type) {
	case NotificationClickEvent:
		return e, true
	case *NotificationClickEvent:
		if e != nil {
			return *e, true
		}
	}
	return NotificationClickEvent{}, false
}
