// pushctlはpushrelayの運用者向けCLI。
//
//	pushctl keygen                       VAPID鍵ペアを生成して .env 形式で出力する
//	pushctl token --operator alice       運用APIのJWTを発行する
//	pushctl send --id <購読ID> --title ... --body ...
package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "pushctl: %v\n", err)
		os.Exit(1)
	}
}

// run はサブコマンドを実行する。
func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return fmt.Errorf("サブコマンドを指定してください")
	}

	switch args[0] {
	case "keygen":
		return runKeygen(args[1:], out)
	case "token":
		return runToken(args[1:], out)
	case "send":
		return runSend(ctx, args[1:], out)
	case "help", "-h", "--help":
		usage(out)
		return nil
	default:
		usage(out)
		return fmt.Errorf("不明なサブコマンドです: %s", args[0])
	}
}

func usage(out io.Writer) {
	fmt.Fprintln(out, "使い方: pushctl <keygen|token|send> [flags]")
}
