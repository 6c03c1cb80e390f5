package receiver

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/pushrelay/pkg/push"
)

// ErrMalformedPayload はプッシュメッセージのデータがJSONとして解釈できないことを表す。
// この場合も既定のペイロードで通知を表示する。
var ErrMalformedPayload = errors.New("プッシュペイロードが不正です")

// ペイロードの各フィールドの既定値。
const (
	DefaultTitle = "Notificação"
	DefaultBody  = "Mensagem padrão"
	DefaultURL   = "/"
	DefaultIcon  = "/icon.png"
	DefaultBadge = "/badge.png"
)

// DefaultPayload はデータなし、または解釈できないデータのときに使うペイロード。
func DefaultPayload() push.Payload {
	return push.Payload{
		Title: DefaultTitle,
		Body:  DefaultBody,
		Icon:  DefaultIcon,
		Badge: DefaultBadge,
		URL:   DefaultURL,
	}
}

// ResolvePayload はプッシュメッセージのデータから表示するペイロードを決定する。
//
// dataが空なら既定値を返す。JSONとして解釈できた場合は、値のあるフィールドだけを
// 既定値に上書きする。解釈できない場合は既定値と ErrMalformedPayload を返す。
func ResolvePayload(data []byte) (push.Payload, error) {
	p := DefaultPayload()
	if len(data) == 0 {
		return p, nil
	}

	var fields push.Payload
	if err := json.Unmarshal(data, &fields); err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	p.Title = orDefault(fields.Title, p.Title)
	p.Body = orDefault(fields.Body, p.Body)
	p.Icon = orDefault(fields.Icon, p.Icon)
	p.Badge = orDefault(fields.Badge, p.Badge)
	p.URL = orDefault(fields.URL, p.URL)
	return p, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
