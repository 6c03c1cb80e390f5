package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/nao1215/pushrelay/pkg/httpclient"
	"github.com/nao1215/pushrelay/pkg/middleware"
	"github.com/nao1215/pushrelay/pkg/push"
	"github.com/spf13/pflag"
)

// parseFlags はフラグを解析する。--help が指定された場合はヘルプを出力してdoneを返す。
func parseFlags(fs *pflag.FlagSet, args []string) (done bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// runKeygen はVAPID鍵ペアを生成し、.env にそのまま貼り付けられる形式で出力する。
func runKeygen(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
	fs.SetOutput(out)
	subject := fs.String("subject", "mailto:admin@localhost", "VAPIDのsubject（mailto: またはhttps: URL）")
	if done, err := parseFlags(fs, args); done || err != nil {
		return err
	}

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return fmt.Errorf("VAPID鍵の生成に失敗: %w", err)
	}
	keys := push.VAPIDKeys{PublicKey: publicKey, PrivateKey: privateKey, Subject: *subject}
	if err := keys.Validate(); err != nil {
		return err
	}

	fmt.Fprintf(out, "VAPID_PUBLIC_KEY=%s\n", keys.PublicKey)
	fmt.Fprintf(out, "VAPID_PRIVATE_KEY=%s\n", keys.PrivateKey)
	fmt.Fprintf(out, "VAPID_SUBJECT=%s\n", keys.Subject)
	return nil
}

// runToken は運用APIに使うJWTを発行する。
func runToken(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	fs.SetOutput(out)
	secret := fs.String("secret", os.Getenv("JWT_SECRET"), "JWT署名鍵（既定値は環境変数JWT_SECRET）")
	operator := fs.String("operator", "", "運用者名")
	ttl := fs.Duration("ttl", time.Hour, "トークンの有効期間")
	if done, err := parseFlags(fs, args); done || err != nil {
		return err
	}
	if *secret == "" {
		return errors.New("--secret または JWT_SECRET を指定してください")
	}

	token, err := middleware.GenerateJWT(*secret, *operator, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

// runSend は運用APIを呼び出して1件の購読に通知を送信し、配信結果を出力する。
func runSend(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("send", pflag.ContinueOnError)
	fs.SetOutput(out)
	serverURL := fs.String("server", "http://localhost:8090", "pushrelayのURL")
	token := fs.String("token", os.Getenv("PUSHRELAY_TOKEN"), "運用APIのJWT（既定値は環境変数PUSHRELAY_TOKEN）")
	id := fs.String("id", "", "送信先の購読ID")
	var payload push.Payload
	fs.StringVar(&payload.Title, "title", "", "通知のタイトル")
	fs.StringVar(&payload.Body, "body", "", "通知の本文")
	fs.StringVar(&payload.Icon, "icon", "", "通知アイコンのURL")
	fs.StringVar(&payload.Badge, "badge", "", "バッジ画像のURL")
	fs.StringVar(&payload.URL, "url", "", "通知クリック時に開くURL")
	if done, err := parseFlags(fs, args); done || err != nil {
		return err
	}
	if *id == "" || payload.Title == "" || payload.Body == "" {
		return errors.New("--id、--title、--body は必須です")
	}

	client := httpclient.New(*serverURL)
	ctx = httpclient.WithBearerToken(ctx, *token)

	var result json.RawMessage
	err := client.PostJSON(ctx, "/api/v1/subscriptions/"+url.PathEscape(*id)+"/notifications", payload, &result)
	if err != nil {
		// 配信失敗時も本文は配信結果
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.Body != "" {
			fmt.Fprintln(out, httpErr.Body)
		}
		return fmt.Errorf("通知の送信に失敗: %w", err)
	}

	fmt.Fprintln(out, string(result))
	return nil
}
