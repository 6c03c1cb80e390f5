package keycodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKeyEncoding は鍵文字列がBase64として解釈できないことを表す。
var ErrInvalidKeyEncoding = errors.New("鍵のエンコーディングが不正です")

// PaddingLength は長さnの文字列を4の倍数にするために必要な '=' の数を返す。
// n mod 4 が 0,1,2,3 のとき、それぞれ 0,3,2,1 を返す。
func PaddingLength(n int) int {
	return (4 - n%4) % 4
}

// Decode はURLセーフBase64の鍵文字列を生のバイト列に変換する。
// パディングを補完し、'-' を '+' に、'_' を '/' に置換してから標準Base64としてデコードする。
func Decode(text string) ([]byte, error) {
	// 長さが4で割って1余る文字列はどのようなパディングでも有効なBase64にならない
	if len(text)%4 == 1 {
		return nil, fmt.Errorf("%w: 長さ%dは不正です", ErrInvalidKeyEncoding, len(text))
	}

	padded := text + strings.Repeat("=", PaddingLength(len(text)))
	std := strings.NewReplacer("-", "+", "_", "/").Replace(padded)

	// StdEncodingは改行を読み飛ばすため、アルファベット外の文字は先に弾く
	if i := strings.IndexFunc(std, func(r rune) bool { return !isBase64Char(r) }); i >= 0 {
		return nil, fmt.Errorf("%w: 位置%dに不正な文字 %q があります", ErrInvalidKeyEncoding, i, std[i])
	}

	raw, err := base64.StdEncoding.DecodeString(std)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
	}
	return raw, nil
}

// isBase64Char は標準Base64のアルファベットまたはパディング文字であればtrueを返す。
func isBase64Char(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '+', r == '/', r == '=':
		return true
	}
	return false
}

// Encode はバイト列をパディングなしのURLセーフBase64に変換する。Decodeの逆変換。
func Encode(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}
