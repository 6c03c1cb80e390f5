// Package config は環境変数からpushrelayの設定を読み込む。
//
// カレントディレクトリに .env があれば先に読み込み、既に設定済みの環境変数は上書きしない。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nao1215/pushrelay/pkg/push"
)

// defaultTTL はプッシュサービスがメッセージを保持する既定の秒数（24時間）。
const defaultTTL = 60 * 60 * 24

// Config はサーバーとCLIが共有する設定値。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// DBPath はSQLiteデータベースのDSN。
	DBPath string
	// JWTSecret は運用APIのJWT署名鍵。
	JWTSecret string
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// VAPID はサーバーの識別に使うVAPID鍵ペア。
	VAPID push.VAPIDKeys
	// PushTTL はプッシュサービスでのメッセージ保持秒数。
	PushTTL int
}

// Load は環境変数（と .env）から設定を読み込み、VAPID鍵ペアを検証する。
func Load() (Config, error) {
	// .env が存在しないのは正常なケース
	_ = godotenv.Load()

	ttl := defaultTTL
	if v := os.Getenv("PUSH_TTL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("PUSH_TTLが不正です: %q", v)
		}
		ttl = n
	}

	cfg := Config{
		Port:           getEnv("PORT", "8090"),
		DBPath:         getEnv("DB_PATH", "/data/pushrelay.db?_journal_mode=WAL&_busy_timeout=5000"),
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-key"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		VAPID: push.VAPIDKeys{
			PublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
			PrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
			Subject:    getEnv("VAPID_SUBJECT", "mailto:admin@localhost"),
		},
		PushTTL: ttl,
	}

	if err := cfg.VAPID.Validate(); err != nil {
		return Config{}, fmt.Errorf("VAPID設定の検証に失敗: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList はカンマ区切りの値を空要素を除いて分割する。
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
