// Package envelope provides the JSON response envelopes used by API handlers.
//
// Handlers may return an envelope directly; the request coordinator detects
// the ToJSON method and responds with application/json.
package envelope

import (
	"encoding/json"
	"reflect"
)

// One wraps a single payload. Data is omitted when empty.
type One struct {
	Data    any
	Message string
	Code    int
}

// NewOne creates a single-payload envelope.
func NewOne(code int, message string, data any) One {
	return One{Code: code, Message: message, Data: data}
}

// ToJSON renders {"code","message"[,"data"]}.
func (o One) ToJSON() ([]byte, error) {
	if isEmpty(o.Data) {
		return json.Marshal(struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		}{Code: o.Code, Message: o.Message})
	}
	return json.Marshal(struct {
		Data    any    `json:"data"`
		Message string `json:"message"`
		Code    int    `json:"code"`
	}{Code: o.Code, Message: o.Message, Data: o.Data})
}

// List wraps a page of items.
type List struct {
	Extra    map[string]any
	Message  string
	Data     []any
	Code     int
	Total    int
	Page     int
	PageSize int
}

// NewList creates a list envelope on page 1 with a page size of 10.
func NewList[T any](code int, message string, items []T) *List {
	data := make([]any, len(items))
	for i, item := range items {
		data[i] = item
	}
	return &List{Code: code, Message: message, Data: data, Page: 1, PageSize: 10}
}

// Paginate sets the paging fields.
func (l *List) Paginate(page, pageSize, total int) *List {
	l.Page = page
	l.PageSize = pageSize
	l.Total = total
	return l
}

// WithExtra attaches auxiliary data.
func (l *List) WithExtra(extra map[string]any) *List {
	l.Extra = extra
	return l
}

// TotalPages returns the page count, or 0 when the page size is 0.
func (l *List) TotalPages() int {
	if l.PageSize == 0 {
		return 0
	}
	return (l.Total + l.PageSize - 1) / l.PageSize
}

// ToJSON renders the list envelope.
func (l *List) ToJSON() ([]byte, error) {
	data := l.Data
	if data == nil {
		data = []any{}
	}
	extra := l.Extra
	if extra == nil {
		extra = map[string]any{}
	}
	return json.Marshal(struct {
		ExtraData map[string]any `json:"extraData"`
		Message   string         `json:"message"`
		Data      []any          `json:"data"`
		Code      int            `json:"code"`
		Total     int            `json:"total"`
		Page      int            `json:"page"`
		PageSize  int            `json:"pageSize"`
		TotalPage int            `json:"totalPage"`
	}{
		Code:      l.Code,
		Message:   l.Message,
		Data:      data,
		Total:     l.Total,
		Page:      l.Page,
		PageSize:  l.PageSize,
		TotalPage: l.TotalPages(),
		ExtraData: extra,
	})
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
