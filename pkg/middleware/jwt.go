package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer は発行するJWTのiss。
const tokenIssuer = "pushrelay"

// contextKeyOperator はGinコンテキストに運用者名を格納するキー。
const contextKeyOperator = "operator"

// headerKeyOperator は認証済みの運用者名をレスポンスに示すHTTPヘッダーキー。
const headerKeyOperator = "X-Operator"

// JWTClaims は運用APIのJWTクレーム。
type JWTClaims struct {
	jwt.RegisteredClaims
	// Operator は通知送信を行う運用者名。
	Operator string `json:"operator"`
}

// GenerateJWT は運用者向けのJWTトークンを生成する。pushctl token から呼び出される。
func GenerateJWT(secret, operator string, ttl time.Duration) (string, error) {
	if operator == "" {
		return "", fmt.Errorf("運用者名が空です")
	}

	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   operator,
		},
		Operator: operator,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// JWTAuth はJWTトークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに運用者名を設定する。
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorizationヘッダーが必要です",
			})
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer トークン形式が不正です",
			})
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
		)
		if err != nil || !token.Valid || claims.Operator == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "トークンが無効です",
			})
			return
		}

		c.Set(contextKeyOperator, claims.Operator)
		c.Header(headerKeyOperator, claims.Operator)
		c.Next()
	}
}

// GetOperator はGinコンテキストから運用者名を取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetOperator(c *gin.Context) string {
	v, _ := c.Get(contextKeyOperator)
	if op, ok := v.(string); ok {
		return op
	}
	return ""
}
