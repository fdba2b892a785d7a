package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Bind produces the arguments of d for the current request, in declared order.
func Bind(d *HandlerDescriptor, rc *RequestContext) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(d.Params))
	for i, p := range d.Params {
		v, err := bindParam(p, d.in[i], rc)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func bindParam(p Param, t reflect.Type, rc *RequestContext) (reflect.Value, error) {
	switch p.Source {
	case SourcePath:
		return bindPath(p, t, rc)
	case SourceQuery:
		return bindQuery(p, t, rc)
	case SourceBody:
		return bindBody(t, rc)
	case SourceRequest:
		return reflect.ValueOf(rc.Request), nil
	case SourceConnection:
		return reflect.ValueOf(rc.Writer), nil
	case SourceResponse:
		return reflect.ValueOf(NewResponse()), nil
	case SourceSession:
		sess, err := rc.Session()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(sess), nil
	case SourceContext:
		return reflect.ValueOf(rc.Context()).Convert(t), nil
	case SourceRequestContext:
		return reflect.ValueOf(rc), nil
	default:
		return reflect.Zero(t), nil
	}
}

func bindPath(p Param, t reflect.Type, rc *RequestContext) (reflect.Value, error) {
	raw, ok := rc.PathVar(p.Name)
	if !ok {
		return reflect.Value{}, &BindingError{Source: "path", Name: p.Name, Reason: "missing"}
	}
	v, err := convertString(raw, t)
	if err != nil {
		return reflect.Value{}, &BindingError{Source: "path", Name: p.Name, Reason: "invalid value", Err: err}
	}
	return v, nil
}

func bindQuery(p Param, t reflect.Type, rc *RequestContext) (reflect.Value, error) {
	in, ok, err := rc.Input(p.Name)
	if err != nil {
		return reflect.Value{}, err
	}
	if !ok {
		if p.Default == "" {
			return reflect.Zero(t), nil
		}
		in = rc.app.sanitize(p.Default)
	}

	switch val := in.(type) {
	case string:
		if isAnySlice(t) {
			return reflect.ValueOf([]any{val}).Convert(t), nil
		}
		v, err := convertString(val, t)
		if err != nil {
			return reflect.Value{}, &BindingError{Source: "query", Name: p.Name, Reason: "invalid value", Err: err}
		}
		return v, nil
	case []string:
		switch {
		case t.Kind() == reflect.Interface:
			return reflect.ValueOf(val), nil
		case isAnySlice(t):
			list := make([]any, len(val))
			for i, s := range val {
				list[i] = s
			}
			return reflect.ValueOf(list).Convert(t), nil
		case t.Kind() == reflect.Slice:
			return reflect.ValueOf(val).Convert(t), nil
		default:
			return reflect.Value{}, &BindingError{Source: "query", Name: p.Name, Reason: "expected a single value"}
		}
	default:
		rv := reflect.ValueOf(val)
		if !rv.Type().AssignableTo(t) {
			return reflect.Value{}, &BindingError{Source: "query", Name: p.Name, Reason: "nested value does not fit " + t.String()}
		}
		return rv, nil
	}
}

func isAnySlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Interface && t.Elem().NumMethod() == 0
}

// bindBody delivers the parsed body re-encoded as JSON.
func bindBody(t reflect.Type, rc *RequestContext) (reflect.Value, error) {
	post, err := rc.PostData()
	if err != nil {
		return reflect.Value{}, err
	}
	raw, err := json.Marshal(post)
	if err != nil {
		return reflect.Value{}, &BindingError{Source: "body", Reason: "cannot encode", Err: err}
	}

	switch {
	case t == rawMessageType:
		return reflect.ValueOf(json.RawMessage(raw)), nil
	case t == bytesType:
		return reflect.ValueOf(raw), nil
	case t.Kind() == reflect.String:
		return reflect.ValueOf(string(raw)).Convert(t), nil
	case t.Kind() == reflect.Interface:
		return reflect.ValueOf(&post).Elem(), nil
	case t.Kind() == reflect.Map:
		m := reflect.New(t)
		if err := json.Unmarshal(raw, m.Interface()); err != nil {
			return reflect.Value{}, &BindingError{Source: "body", Reason: "does not match " + t.String(), Err: err}
		}
		return m.Elem(), nil
	case t.Kind() == reflect.Pointer:
		ptr := reflect.New(t.Elem())
		if err := decodeStruct(raw, ptr.Interface(), rc.app.validate); err != nil {
			return reflect.Value{}, err
		}
		return ptr, nil
	default:
		ptr := reflect.New(t)
		if err := decodeStruct(raw, ptr.Interface(), rc.app.validate); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}
}

func decodeStruct(raw []byte, dst any, v *validator.Validate) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return &BindingError{Source: "body", Reason: "malformed", Err: err}
	}
	if v == nil {
		return nil
	}
	if err := v.Struct(dst); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) {
			return &BindingError{Source: "body", Reason: describeValidation(fields), Err: err}
		}
		return &BindingError{Source: "body", Reason: "validation failed", Err: err}
	}
	return nil
}

func describeValidation(fields validator.ValidationErrors) string {
	parts := make([]string, len(fields))
	for i, fe := range fields {
		if fe.Param() != "" {
			parts[i] = fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
			continue
		}
		parts[i] = fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag())
	}
	return strings.Join(parts, "; ")
}
