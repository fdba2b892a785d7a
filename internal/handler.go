package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"

	"github.com/muir/reflectutils"

	"github.com/dmitrymomot/hero/pkg/session"
)

// Controller declares routes on a router. Controllers are built by the
// registry, so fields tagged inject or value are filled before first use.
//
// Example:
//
//	type UserController struct {
//	    Repo *UserRepo `inject:""`
//	}
//
//	func (c *UserController) Routes(r hero.Router) {
//	    r.GET("/users/{id}", "Show", hero.Path("id"))
//	}
//
//	func (c *UserController) Show(id int) (*User, error) { ... }
type Controller interface {
	Routes(r Router)
}

// Initializer is implemented by controllers that need setup before every
// handler invocation. A returned error aborts the request.
//
// Controllers are singletons, so Init runs on the same value for every
// request, concurrently. It must not mutate controller fields without
// synchronization; keep per-request state in the RequestContext instead.
type Initializer interface {
	Init() error
}

// MiddlewareProvider is implemented by controllers whose routes need
// middleware beyond the application defaults. The ids are appended to the
// defaults, duplicates included.
type MiddlewareProvider interface {
	Middlewares() []string
}

// Jsonable values render themselves as a JSON response body.
type Jsonable interface {
	ToJSON() ([]byte, error)
}

// Source identifies where a handler argument comes from.
type Source uint8

const (
	// SourceAuto infers the source from the parameter type.
	SourceAuto Source = iota
	SourcePath
	SourceQuery
	SourceBody
	SourceRequest
	SourceConnection
	SourceResponse
	SourceSession
	SourceContext
	SourceRequestContext
	// SourceUnresolvable binds the zero value.
	SourceUnresolvable
)

func (s Source) String() string {
	switch s {
	case SourceAuto:
		return "auto"
	case SourcePath:
		return "path"
	case SourceQuery:
		return "query"
	case SourceBody:
		return "body"
	case SourceRequest:
		return "request"
	case SourceConnection:
		return "connection"
	case SourceResponse:
		return "response"
	case SourceSession:
		return "session"
	case SourceContext:
		return "context"
	case SourceRequestContext:
		return "request context"
	default:
		return "unresolvable"
	}
}

// Param is the binding rule for one handler parameter.
type Param struct {
	Name    string
	Default string
	Source  Source
}

// Path binds a path variable.
func Path(name string) Param { return Param{Source: SourcePath, Name: name} }

// Query binds a query or form value, falling back to def (or "").
func Query(name string, def ...string) Param {
	p := Param{Source: SourceQuery, Name: name}
	if len(def) > 0 {
		p.Default = def[0]
	}
	return p
}

// Body binds the request body re-encoded as JSON.
func Body() Param { return Param{Source: SourceBody} }

// Auto infers the binding from the parameter type.
func Auto() Param { return Param{Source: SourceAuto} }

// Skip binds the zero value.
func Skip() Param { return Param{Source: SourceUnresolvable} }

var (
	requestType        = reflect.TypeFor[*http.Request]()
	writerType         = reflect.TypeFor[http.ResponseWriter]()
	responseType       = reflect.TypeFor[*Response]()
	sessionType        = reflect.TypeFor[*session.Session]()
	contextType        = reflect.TypeFor[context.Context]()
	requestContextType = reflect.TypeFor[*RequestContext]()
	errorType          = reflect.TypeFor[error]()
	bytesType          = reflect.TypeFor[[]byte]()
	rawMessageType     = reflect.TypeFor[json.RawMessage]()
)

// injectedSources maps framework-provided types to their source.
var injectedSources = map[reflect.Type]Source{
	requestType:        SourceRequest,
	writerType:         SourceConnection,
	responseType:       SourceResponse,
	sessionType:        SourceSession,
	contextType:        SourceContext,
	requestContextType: SourceRequestContext,
}

type resultShape uint8

const (
	resultNone resultShape = iota
	resultValue
	resultError
	resultValueError
)

// HandlerDescriptor identifies a controller method and how to bind its
// arguments. It is computed once, when the route is registered.
type HandlerDescriptor struct {
	fn     reflect.Value
	Owner  string
	Method string
	Params []Param
	in     []reflect.Type
	shape  resultShape
}

func (d *HandlerDescriptor) String() string {
	return d.Owner + "." + d.Method
}

// ParamType returns the Go type of the i-th parameter.
func (d *HandlerDescriptor) ParamType(i int) reflect.Type {
	return d.in[i]
}

// Describe resolves method on the controller type recv (a struct or pointer
// to struct) and the binding of every parameter. Unlisted trailing
// parameters are inferred by type.
func Describe(owner string, recv reflect.Type, method string, specs []Param) (*HandlerDescriptor, error) {
	subject := owner + "." + method
	if recv.Kind() != reflect.Pointer {
		recv = reflect.PointerTo(recv)
	}

	m, ok := recv.MethodByName(method)
	if !ok {
		return nil, &NotFoundError{Kind: "method", ID: subject}
	}
	mt := m.Type

	n := mt.NumIn() - 1
	if mt.IsVariadic() {
		return nil, &ConfigurationError{Subject: subject, Reason: "variadic handlers are not supported"}
	}
	if len(specs) > n {
		return nil, &ConfigurationError{
			Subject: subject,
			Reason:  fmt.Sprintf("%d bindings declared for %d parameters", len(specs), n),
		}
	}

	d := &HandlerDescriptor{
		Owner:  owner,
		Method: method,
		fn:     m.Func,
		in:     make([]reflect.Type, n),
		Params: make([]Param, n),
	}

	for i := range n {
		t := mt.In(i + 1)
		d.in[i] = t

		p := Auto()
		if i < len(specs) {
			p = specs[i]
		}
		resolved, err := resolveParam(p, t)
		if err != nil {
			return nil, &ConfigurationError{Subject: fmt.Sprintf("%s param %d", subject, i), Reason: err.Error()}
		}
		d.Params[i] = resolved
	}

	shape, err := resultShapeOf(mt)
	if err != nil {
		return nil, &ConfigurationError{Subject: subject, Reason: err.Error()}
	}
	d.shape = shape

	return d, nil
}

func resolveParam(p Param, t reflect.Type) (Param, error) {
	switch p.Source {
	case SourceAuto:
		if src, ok := injectedSources[t]; ok {
			return Param{Source: src}, nil
		}
		return Param{Source: SourceUnresolvable}, nil
	case SourcePath, SourceQuery:
		if p.Name == "" {
			return p, fmt.Errorf("%s binding needs a name", p.Source)
		}
		if !scalarTarget(t) && (p.Source != SourceQuery || !nestedTarget(t)) {
			return p, fmt.Errorf("cannot bind %s value into %s", p.Source, reflectutils.TypeName(t))
		}
		return p, nil
	case SourceBody:
		if !bodyTarget(t) {
			return p, fmt.Errorf("cannot bind body into %s", reflectutils.TypeName(t))
		}
		return p, nil
	case SourceUnresolvable:
		return p, nil
	default:
		for typ, src := range injectedSources {
			if src == p.Source && typ.AssignableTo(t) {
				return p, nil
			}
		}
		return p, fmt.Errorf("%s cannot be injected into %s", p.Source, reflectutils.TypeName(t))
	}
}

func scalarTarget(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.String
	case reflect.Interface:
		return t.NumMethod() == 0
	default:
		return false
	}
}

// nestedTarget accepts the shapes of nested query or body values.
func nestedTarget(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Map:
		return t.Key().Kind() == reflect.String && t.Elem().Kind() == reflect.Interface && t.Elem().NumMethod() == 0
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Interface && t.Elem().NumMethod() == 0
	default:
		return false
	}
}

func bodyTarget(t reflect.Type) bool {
	switch {
	case t.Kind() == reflect.String, t == bytesType, t == rawMessageType:
		return true
	case t.Kind() == reflect.Map && t.Key().Kind() == reflect.String:
		return true
	case t.Kind() == reflect.Struct:
		return true
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		return true
	case t.Kind() == reflect.Interface && t.NumMethod() == 0:
		return true
	default:
		return false
	}
}

func resultShapeOf(mt reflect.Type) (resultShape, error) {
	switch mt.NumOut() {
	case 0:
		return resultNone, nil
	case 1:
		if mt.Out(0) == errorType {
			return resultError, nil
		}
		return resultValue, nil
	case 2:
		if mt.Out(1) != errorType {
			return 0, fmt.Errorf("second result must be error, got %s", reflectutils.TypeName(mt.Out(1)))
		}
		return resultValueError, nil
	default:
		return 0, fmt.Errorf("handlers return at most (value, error), got %d results", mt.NumOut())
	}
}

// Invoke calls the method on recv with already bound arguments.
func (d *HandlerDescriptor) Invoke(recv any, args []reflect.Value) (any, error) {
	rv := reflect.ValueOf(recv)
	if !rv.IsValid() || !rv.Type().AssignableTo(d.fn.Type().In(0)) {
		return nil, &ConfigurationError{Subject: d.String(), Reason: fmt.Sprintf("registry holds %T, not the controller type", recv)}
	}

	in := make([]reflect.Value, 0, len(args)+1)
	in = append(in, rv)
	in = append(in, args...)
	out := d.fn.Call(in)

	switch d.shape {
	case resultValue:
		return resultValueOf(out[0]), nil
	case resultError:
		return nil, errorOf(out[0])
	case resultValueError:
		if err := errorOf(out[1]); err != nil {
			return nil, err
		}
		return resultValueOf(out[0]), nil
	default:
		return nil, nil
	}
}

func resultValueOf(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}

func errorOf(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}
