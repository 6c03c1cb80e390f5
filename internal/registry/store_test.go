package registry

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/nao1215/pushrelay/pkg/event"
	"github.com/nao1215/pushrelay/pkg/push"
	_ "modernc.org/sqlite"
)

// setupTestStore はテスト用のストアをインメモリSQLiteで構築する。
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	// :memory: は接続ごとに別のDBになるため接続数を1に固定する
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	s, err := New(t.Context(), sqlDB)
	if err != nil {
		t.Fatalf("ストアの初期化に失敗: %v", err)
	}
	return s
}

// testSubscription はテスト用の購読情報を返す。
func testSubscription(endpoint string) push.Subscription {
	return push.Subscription{
		Endpoint: endpoint,
		Keys:     push.Keys{P256dh: "p256dh-" + endpoint, Auth: "auth-" + endpoint},
	}
}

// TestSave はSaveメソッドを検証する。
func TestSave(t *testing.T) {
	t.Parallel()

	t.Run("新しい購読情報を保存して取得できること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		sub := testSubscription("https://push.example.com/1")
		rec, err := s.Save(t.Context(), sub, "vapid-A")
		if err != nil {
			t.Fatalf("Save()でエラーが発生: %v", err)
		}
		if rec.ID == "" {
			t.Fatal("IDが空文字列")
		}

		got, err := s.Get(t.Context(), rec.ID)
		if err != nil {
			t.Fatalf("Get()でエラーが発生: %v", err)
		}
		if got.Subscription != sub {
			t.Errorf("Subscription = %+v, want %+v", got.Subscription, sub)
		}
		if got.VAPIDKey != "vapid-A" {
			t.Errorf("VAPIDKey = %q, want %q", got.VAPIDKey, "vapid-A")
		}
		if got.CreatedAt.IsZero() {
			t.Error("CreatedAtが設定されていない")
		}
	})

	t.Run("同じendpointで再登録すると鍵が置き換わりIDは維持されること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		first, err := s.Save(t.Context(), testSubscription("https://push.example.com/same"), "vapid-A")
		if err != nil {
			t.Fatalf("1回目のSave()でエラーが発生: %v", err)
		}

		renewed := push.Subscription{
			Endpoint: "https://push.example.com/same",
			Keys:     push.Keys{P256dh: "new-p256dh", Auth: "new-auth"},
		}
		second, err := s.Save(t.Context(), renewed, "vapid-B")
		if err != nil {
			t.Fatalf("2回目のSave()でエラーが発生: %v", err)
		}

		if second.ID != first.ID {
			t.Errorf("ID = %q, want %q", second.ID, first.ID)
		}

		got, err := s.Get(t.Context(), first.ID)
		if err != nil {
			t.Fatalf("Get()でエラーが発生: %v", err)
		}
		if got.Subscription.Keys != renewed.Keys {
			t.Errorf("Keys = %+v, want %+v", got.Subscription.Keys, renewed.Keys)
		}
		if got.VAPIDKey != "vapid-B" {
			t.Errorf("VAPIDKey = %q, want %q", got.VAPIDKey, "vapid-B")
		}

		all, err := s.List(t.Context(), 10, 0)
		if err != nil {
			t.Fatalf("List()でエラーが発生: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("件数 = %d, want 1", len(all))
		}
	})

	t.Run("不完全な購読情報は保存されないこと", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		_, err := s.Save(t.Context(), push.Subscription{Endpoint: "https://push.example.com/x"}, "vapid-A")
		if !errors.Is(err, push.ErrIncompleteSubscription) {
			t.Errorf("err = %v, want ErrIncompleteSubscription", err)
		}
	})
}

// TestGet はGetメソッドを検証する。
func TestGet(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	if _, err := s.Get(t.Context(), "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestList はListメソッドを検証する。
func TestList(t *testing.T) {
	t.Parallel()

	t.Run("購読が無い場合は空のスライスを返すこと", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		got, err := s.List(t.Context(), 10, 0)
		if err != nil {
			t.Fatalf("List()でエラーが発生: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("List() = %v, want empty slice", got)
		}
	})

	t.Run("limitとoffsetが適用されること", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		for _, ep := range []string{"https://push.example.com/a", "https://push.example.com/b", "https://push.example.com/c"} {
			if _, err := s.Save(t.Context(), testSubscription(ep), "vapid-A"); err != nil {
				t.Fatalf("Save()でエラーが発生: %v", err)
			}
		}

		page, err := s.List(t.Context(), 2, 0)
		if err != nil {
			t.Fatalf("List()でエラーが発生: %v", err)
		}
		if len(page) != 2 {
			t.Errorf("1ページ目の件数 = %d, want 2", len(page))
		}

		rest, err := s.List(t.Context(), 2, 2)
		if err != nil {
			t.Fatalf("List()でエラーが発生: %v", err)
		}
		if len(rest) != 1 {
			t.Errorf("2ページ目の件数 = %d, want 1", len(rest))
		}
	})
}

// TestEvents はAppendEventとListEventsを検証する。
func TestEvents(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	rec, err := s.Save(t.Context(), testSubscription("https://push.example.com/ev"), "vapid-A")
	if err != nil {
		t.Fatalf("Save()でエラーが発生: %v", err)
	}

	accepted, err := event.New(rec.ID, event.TypeNotificationAccepted, event.DeliveryData{Title: "Hi", StatusCode: 201})
	if err != nil {
		t.Fatalf("event.New()でエラーが発生: %v", err)
	}
	rejected, err := event.New(rec.ID, event.TypeNotificationRejected, event.DeliveryData{Title: "Bye", Reason: "subscription_gone", StatusCode: 410})
	if err != nil {
		t.Fatalf("event.New()でエラーが発生: %v", err)
	}
	other, err := event.New("other-subscription", event.TypeNotificationAccepted, event.DeliveryData{Title: "x"})
	if err != nil {
		t.Fatalf("event.New()でエラーが発生: %v", err)
	}

	for _, ev := range []*event.Event{accepted, rejected, other} {
		if err := s.AppendEvent(t.Context(), ev); err != nil {
			t.Fatalf("AppendEvent()でエラーが発生: %v", err)
		}
	}

	got, err := s.ListEvents(t.Context(), rec.ID)
	if err != nil {
		t.Fatalf("ListEvents()でエラーが発生: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("件数 = %d, want 2", len(got))
	}
	if got[0].ID != accepted.ID || got[1].ID != rejected.ID {
		t.Errorf("順序が追記順と一致しない: %q, %q", got[0].ID, got[1].ID)
	}
	if got[1].EventType != event.TypeNotificationRejected {
		t.Errorf("EventType = %q, want %q", got[1].EventType, event.TypeNotificationRejected)
	}

	data, err := event.DecodeData[event.DeliveryData](got[1])
	if err != nil {
		t.Fatalf("DecodeData()でエラーが発生: %v", err)
	}
	if data.Reason != "subscription_gone" || data.StatusCode != 410 {
		t.Errorf("Data = %+v", *data)
	}
}
