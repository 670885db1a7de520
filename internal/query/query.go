// Package query は取得済みレコードの絞り込み・検索・並び替えを行う。
// すべての関数は純粋で、入力スライスを変更しない。
package query

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FilterAll は絞り込みを無効にするセンチネル値。
const FilterAll = "all"

// 並び順
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Params は一覧表示の条件。
type Params struct {
	SearchTerm string
	Filters    map[string]string
	SortField  string
	SortOrder  string
}

// TextField はレコードから文字列値を取り出す。値が無い場合はfalseを返す。
type TextField[E any] func(E) (string, bool)

// SortKind は並び替えの比較方法。
type SortKind int

const (
	SortText SortKind = iota
	SortNumber
	SortTime
)

// SortField は並び替え可能なフィールドの定義。Kindに対応する取得関数のみを設定する。
type SortField[E any] struct {
	Kind   SortKind
	Text   func(E) string
	Number func(E) float64
	Time   func(E) time.Time
}

// Descriptor はリソースごとの検索・絞り込み・並び替え可能なフィールドを宣言する。
type Descriptor[E any] struct {
	Search       []TextField[E]
	Filters      map[string]TextField[E]
	Sorts        map[string]SortField[E]
	DefaultSort  string
	DefaultOrder string
}

// Apply はレコードに絞り込み、検索、並び替えを適用した新しいスライスを返す。
func Apply[E any](records []E, d Descriptor[E], p Params) []E {
	out := make([]E, 0, len(records))
	term := strings.ToLower(p.SearchTerm)

	for _, r := range records {
		if !matchesFilters(r, d, p.Filters) {
			continue
		}
		if term != "" && !matchesSearch(r, d, term) {
			continue
		}
		out = append(out, r)
	}

	field := p.SortField
	if field == "" {
		field = d.DefaultSort
	}
	order := p.SortOrder
	if order == "" {
		order = d.DefaultOrder
	}
	if sf, ok := d.Sorts[field]; ok {
		sortRecords(out, sf, order == OrderDesc)
	}

	return out
}

// matchesFilters は全ての絞り込み条件に一致するかを判定する。
// 宣言されていないフィールドや値の無いレコードは、条件が"all"でない限り除外する。
func matchesFilters[E any](r E, d Descriptor[E], filters map[string]string) bool {
	for name, want := range filters {
		if want == FilterAll || want == "" {
			continue
		}
		get, ok := d.Filters[name]
		if !ok {
			return false
		}
		got, ok := get(r)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// matchesSearch は検索対象フィールドのいずれかがtermを部分文字列として含むかを判定する。
func matchesSearch[E any](r E, d Descriptor[E], term string) bool {
	for _, get := range d.Search {
		v, ok := get(r)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

func sortRecords[E any](records []E, sf SortField[E], desc bool) {
	var compare func(a, b E) int

	switch sf.Kind {
	case SortText:
		c := collate.New(language.Spanish)
		compare = func(a, b E) int {
			return c.CompareString(sf.Text(a), sf.Text(b))
		}
	case SortNumber:
		compare = func(a, b E) int {
			return cmp.Compare(sf.Number(a), sf.Number(b))
		}
	case SortTime:
		compare = func(a, b E) int {
			return sf.Time(a).Compare(sf.Time(b))
		}
	default:
		return
	}

	if desc {
		asc := compare
		compare = func(a, b E) int { return -asc(a, b) }
	}
	slices.SortStableFunc(records, compare)
}
