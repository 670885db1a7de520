package model

// Payload はクライアントから受け取った部分的なレコードを表す。
// キーは列名、値はJSONデコード結果（json.Number、string、bool、nil等）。
type Payload map[string]any

// Clean は値がnullまたは空文字列のキーを取り除いた新しいPayloadを返す。
// 部分更新では「未指定」と「空」を区別しないため、空値で列を消去することはできない。
func (p Payload) Clean() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// String はキーの値が空でない文字列の場合にその値を返す。
func (p Payload) String(key string) (string, bool) {
	s, ok := p[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
