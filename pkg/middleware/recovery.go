package middleware

import (
	"io"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// recoveryMessage はパニック時にクライアントへ返すエラーメッセージ。
const recoveryMessage = "内部サーバーエラーが発生しました"

// Recovery はハンドラーのパニックを500エラーに変換するGinミドルウェアを返す。
// スタックトレースは標準のロガーの出力先に書き込む。
func Recovery() gin.HandlerFunc {
	return RecoveryWithWriter(log.Writer())
}

// RecoveryWithWriter はスタックトレースの出力先を指定したRecoveryを返す。
func RecoveryWithWriter(out io.Writer) gin.HandlerFunc {
	logger := log.New(out, "", log.LstdFlags)

	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Printf("[Recovery] %s %s: %v\n%s", c.Request.Method, c.Request.URL.Path, r, debug.Stack())

			// 既にレスポンスを書き始めている場合はステータスを変更できない
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": recoveryMessage})
		}()
		c.Next()
	}
}
