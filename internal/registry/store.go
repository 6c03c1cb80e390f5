package registry

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/pushrelay/pkg/event"
	"github.com/nao1215/pushrelay/pkg/migration"
	"github.com/nao1215/pushrelay/pkg/push"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound は指定された購読が存在しないことを表す。
var ErrNotFound = errors.New("購読が見つかりません")

// Record は保存された購読情報。
type Record struct {
	// ID は購読の一意識別子。
	ID string `json:"id"`
	// Subscription はブラウザが発行した購読情報。
	Subscription push.Subscription `json:"subscription"`
	// VAPIDKey は購読時に使われたVAPID公開鍵。
	// 鍵を入れ替えると既存の購読は無効になるため、送信前に照合する。
	VAPIDKey string `json:"vapid_key"`
	// CreatedAt は登録日時。
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt は最終更新日時。
	UpdatedAt time.Time `json:"updated_at"`
}

// Store はSQLiteに購読情報を保存するストア。
type Store struct {
	db *sql.DB
}

// Open はDSNでSQLiteを開き、マイグレーションを適用したストアを返す。
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	s, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New は既存の接続にマイグレーションを適用してストアを返す。
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := migration.Run(ctx, db, migrationsFS, "migrations"); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &Store{db: db}, nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// Save は購読情報を保存する。同じendpointが既にあれば鍵とVAPID公開鍵を置き換え、既存のIDを返す。
func (s *Store) Save(ctx context.Context, sub push.Subscription, vapidKey string) (*Record, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO subscriptions (id, endpoint, p256dh, auth, vapid_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			p256dh = excluded.p256dh,
			auth = excluded.auth,
			vapid_key = excluded.vapid_key,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at`,
		uuid.New().String(), sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth, vapidKey, now, now,
	)

	rec := &Record{Subscription: sub, VAPIDKey: vapidKey}
	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("購読情報の保存に失敗: %w", err)
	}
	return rec, nil
}

// Get はIDで購読情報を取得する。存在しない場合は ErrNotFound を返す。
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, endpoint, p256dh, auth, vapid_key, created_at, updated_at
		FROM subscriptions WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("購読情報の取得に失敗: %w", err)
	}
	return rec, nil
}

// List は購読情報を登録日時の新しい順に返す。
func (s *Store) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, endpoint, p256dh, auth, vapid_key, created_at, updated_at
		FROM subscriptions
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("購読一覧の読み取りに失敗: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AppendEvent は購読に紐づくイベントを追記する。
func (s *Store) AppendEvent(ctx context.Context, ev *event.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_events (id, subscription_id, event_type, data, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.SubscriptionID, string(ev.EventType), string(ev.Data), ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("イベントの追記に失敗: %w", err)
	}
	return nil
}

// ListEvents は購読に紐づくイベントを追記順に返す。
func (s *Store) ListEvents(ctx context.Context, subscriptionID string) ([]*event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subscription_id, event_type, data, created_at
		FROM delivery_events
		WHERE subscription_id = ?
		ORDER BY rowid`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]*event.Event, 0)
	for rows.Next() {
		var (
			ev        event.Event
			eventType string
			data      string
		)
		if err := rows.Scan(&ev.ID, &ev.SubscriptionID, &eventType, &data, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("イベント一覧の読み取りに失敗: %w", err)
		}
		ev.EventType = event.Type(eventType)
		ev.Data = []byte(data)
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// scanner は *sql.Row と *sql.Rows の共通インターフェース。
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var rec Record
	err := sc.Scan(
		&rec.ID,
		&rec.Subscription.Endpoint,
		&rec.Subscription.Keys.P256dh,
		&rec.Subscription.Keys.Auth,
		&rec.VAPIDKey,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
