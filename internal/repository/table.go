package repository

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/fitadmin/internal/model"
)

// ColumnKind は列の値の型を表す。
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInteger
	KindDecimal
)

// Column は管理対象テーブルの書き込み可能な列を表す。
// id と created_at はリポジトリが管理するため含めない。
type Column struct {
	Name      string
	Kind      ColumnKind
	Required  bool     // 作成時に必須
	Immutable bool     // 部分更新の対象外
	Enum      []string // 許可値（Textのみ）
	MaxLen    int      // 最大文字数（Textのみ、0は無制限）
	Range     *Range   // 許容範囲（数値のみ）
	Sanitize  bool     // 保存前にHTMLタグを除去する自由記述
	URL       bool     // 外部メディアのURL
}

// Range は数値列の許容範囲（両端を含む）。
type Range struct {
	Min, Max float64
}

// INTEGER列の範囲。Rangeを持たない整数列にも適用する。
var int32Range = &Range{Min: math.MinInt32, Max: math.MaxInt32}

// Scanner は*sql.Rowと*sql.Rowsに共通するScanメソッド。
type Scanner interface {
	Scan(dest ...any) error
}

// Table は汎用リポジトリが扱うテーブル定義。
// Scanは id, Columns..., created_at の順で1行を読み取る。
type Table[T any] struct {
	Name     string
	Resource string // エラーメッセージ用のリソース名
	Columns  []Column
	Scan     func(row Scanner) (*T, error)
}

// Column は名前で列定義を返す。
func (t *Table[T]) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// selectList は SELECT 句の列リストを返す。
func (t *Table[T]) selectList() string {
	names := make([]string, 0, len(t.Columns)+2)
	names = append(names, "id")
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	names = append(names, "created_at")
	return strings.Join(names, ", ")
}

// assignment は検証済みの列と値の組。
type assignment struct {
	column string
	value  any
}

// prepareInsert は作成用のPayloadを検証し、列順に並んだ値を返す。
// 必須列の欠落はまとめてValidationErrorとして返す。
func (t *Table[T]) prepareInsert(payload model.Payload) ([]assignment, error) {
	cleaned := payload.Clean()

	var missing []string
	for _, c := range t.Columns {
		if _, ok := cleaned[c.Name]; c.Required && !ok {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing)
	}

	out := make([]assignment, 0, len(cleaned))
	for _, c := range t.Columns {
		raw, ok := cleaned[c.Name]
		if !ok {
			continue
		}
		v, err := c.convert(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, assignment{column: c.Name, value: v})
	}
	return out, nil
}

// Validate はPayloadに含まれる既知の列の型・許可値・長さ・範囲を検証する。
// 必須列の欠落は検証しない。書き込み前に他のストアへ副作用を起こす呼び出し元が使う。
func (t *Table[T]) Validate(payload model.Payload) error {
	cleaned := payload.Clean()
	for _, c := range t.Columns {
		raw, ok := cleaned[c.Name]
		if !ok {
			continue
		}
		if _, err := c.convert(raw); err != nil {
			return err
		}
	}
	return nil
}

// prepareUpdate は部分更新用のPayloadを検証する。
// null・空文字列・未知の列・不変列は無視し、残りが空ならNothingToUpdateを返す。
func (t *Table[T]) prepareUpdate(payload model.Payload) ([]assignment, error) {
	cleaned := payload.Clean()

	out := make([]assignment, 0, len(cleaned))
	for _, c := range t.Columns {
		if c.Immutable {
			continue
		}
		raw, ok := cleaned[c.Name]
		if !ok {
			continue
		}
		v, err := c.convert(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, assignment{column: c.Name, value: v})
	}
	if len(out) == 0 {
		return nil, model.NewNothingToUpdateError()
	}
	return out, nil
}

// convert はJSON由来の値を列の型に変換する。
func (c Column) convert(raw any) (any, error) {
	switch c.Kind {
	case KindInteger:
		n, err := toInt64(raw)
		if err != nil {
			return nil, model.NewInvalidFieldError(c.Name, "se esperaba un número entero")
		}
		r := c.Range
		if r == nil {
			r = int32Range
		}
		if err := c.checkRange(r, float64(n)); err != nil {
			return nil, err
		}
		return n, nil
	case KindDecimal:
		f, err := toFloat64(raw)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, model.NewInvalidFieldError(c.Name, "se esperaba un número")
		}
		if c.Range != nil {
			if err := c.checkRange(c.Range, f); err != nil {
				return nil, err
			}
		}
		return f, nil
	default:
		s, ok := raw.(string)
		if !ok {
			return nil, model.NewInvalidFieldError(c.Name, "se esperaba texto")
		}
		if len(c.Enum) > 0 && !slices.Contains(c.Enum, s) {
			return nil, model.NewInvalidFieldError(c.Name, fmt.Sprintf("debe ser uno de %s", strings.Join(c.Enum, ", ")))
		}
		if c.MaxLen > 0 && utf8.RuneCountInString(s) > c.MaxLen {
			return nil, model.NewInvalidFieldError(c.Name, fmt.Sprintf("no debe superar %d caracteres", c.MaxLen))
		}
		return s, nil
	}
}

func (c Column) checkRange(r *Range, v float64) error {
	if v < r.Min || v > r.Max {
		return model.NewInvalidFieldError(c.Name, fmt.Sprintf("debe estar entre %s y %s",
			strconv.FormatFloat(r.Min, 'f', -1, 64), strconv.FormatFloat(r.Max, 'f', -1, 64)))
	}
	return nil
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		return v.Int64()
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("not an integer: %v", v)
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case json.Number:
		return v.Float64()
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}
