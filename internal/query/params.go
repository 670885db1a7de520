package query

import (
	"net/url"
	"strings"

	"github.com/hitoshi/fitadmin/internal/model"
)

// クエリパラメータ名
const (
	ParamSearch = "search"
	ParamSort   = "sort"
	ParamOrder  = "order"
)

// ParseParams はURLクエリからParamsを組み立てる。
// 宣言された絞り込みキーのみを読み、それ以外のキーは無視する。
// 宣言されていない並び替えフィールドやasc/desc以外の並び順はInvalidQueryを返す。
func ParseParams[E any](values url.Values, d Descriptor[E]) (Params, error) {
	p := Params{
		SearchTerm: values.Get(ParamSearch), // 入力どおりに照合する
		Filters:    make(map[string]string),
		SortField:  strings.TrimSpace(values.Get(ParamSort)),
		SortOrder:  strings.ToLower(strings.TrimSpace(values.Get(ParamOrder))),
	}

	if p.SortField != "" {
		if _, ok := d.Sorts[p.SortField]; !ok {
			return Params{}, model.NewInvalidQueryError(ParamSort, p.SortField)
		}
	}
	switch p.SortOrder {
	case "", OrderAsc, OrderDesc:
	default:
		return Params{}, model.NewInvalidQueryError(ParamOrder, p.SortOrder)
	}

	for name := range d.Filters {
		if v := strings.TrimSpace(values.Get(name)); v != "" {
			p.Filters[name] = v
		}
	}

	return p, nil
}
