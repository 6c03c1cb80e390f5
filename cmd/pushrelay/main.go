// pushrelayサーバーのエントリポイント。
// ブラウザから購読情報を受け取り、運用者の指示でWeb Push通知を送信する。
package main

import (
	"context"
	"log"

	"github.com/nao1215/pushrelay/internal/dispatcher"
	"github.com/nao1215/pushrelay/internal/registry"
	"github.com/nao1215/pushrelay/internal/server"
	"github.com/nao1215/pushrelay/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	store, err := registry.Open(context.Background(), cfg.DBPath)
	if err != nil {
		log.Fatalf("ストアの初期化に失敗: %v", err)
	}
	defer store.Close()

	d, err := dispatcher.New(cfg.VAPID, dispatcher.WithTTL(cfg.PushTTL))
	if err != nil {
		log.Fatalf("Dispatcherの初期化に失敗: %v", err)
	}

	s := server.NewServer(server.Config{
		Port:           cfg.Port,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
	}, store, d)

	log.Printf("pushrelayを起動します: :%s", cfg.Port)
	if err := s.Run(); err != nil {
		log.Fatalf("pushrelayの起動に失敗: %v", err)
	}
}
