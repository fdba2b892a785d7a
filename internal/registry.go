package internal

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/muir/reflectutils"
)

// Struct tags understood by Registry.Build.
const (
	// InjectTag marks a field filled with another registry object.
	// An empty value derives the identifier from the field's pointer type;
	// interface-typed fields must name the identifier explicitly.
	InjectTag = "inject"

	// ValueTag marks a field filled from configuration by dotted key.
	ValueTag = "value"
)

var durationType = reflect.TypeFor[time.Duration]()

// ConfigProvider answers dotted-key configuration lookups.
type ConfigProvider interface {
	Get(key string, def any) any
}

// Registry is the process-wide object container. Each identifier is
// constructed at most once by Build and the instance lives for the whole process.
// A single mutex covers lookup, construction and storage.
type Registry struct {
	config    ConfigProvider
	types     map[string]reflect.Type
	providers map[string]func() any
	instances map[string]any
	mu        sync.Mutex
}

// NewRegistry creates an empty registry reading value fields from cfg.
// A nil cfg disables value injection.
func NewRegistry(cfg ConfigProvider) *Registry {
	return &Registry{
		config:    cfg,
		types:     make(map[string]reflect.Type),
		providers: make(map[string]func() any),
		instances: make(map[string]any),
	}
}

// TypeOf returns the identifier of v's type: import path plus type name,
// pointer indirections removed.
func TypeOf(v any) string {
	return typeID(reflect.TypeOf(v))
}

// TypeID returns the identifier of T.
func TypeID[T any]() string {
	return typeID(reflect.TypeFor[T]())
}

func typeID(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() != "" && t.Name() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// Declare makes the struct types of protos buildable under their TypeOf identifier.
// Protos are used only for their type. Panics on non-struct values.
func (r *Registry) Declare(protos ...any) {
	for _, p := range protos {
		r.DeclareAs(TypeOf(p), p)
	}
}

// DeclareAs makes proto's struct type buildable under id.
func (r *Registry) DeclareAs(id string, proto any) {
	t := reflect.TypeOf(proto)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("hero: registry: %s: declared value must be a struct, got %T", id, proto))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[id] = t
}

// Provide registers a constructor for id. The constructor replaces default
// construction; injection passes still run on the struct it returns.
func (r *Registry) Provide(id string, fn func() any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[id] = fn
}

// Get returns the instance registered under id, or nil.
func (r *Registry) Get(id string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.instances[id]
}

// Has reports whether an instance is registered under id.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.instances[id]
	return ok
}

// Put registers v under id, replacing any existing instance.
func (r *Registry) Put(id string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[id] = v
}

// RegisterIfAbsent stores v under id unless an instance exists.
// It reports whether v was stored.
func (r *Registry) RegisterIfAbsent(id string, v any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[id]; ok {
		return false
	}
	r.instances[id] = v
	return true
}

// Build returns the instance for id, constructing and registering it on
// first use. Dependencies are built recursively.
func (r *Registry) Build(id string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.build(id, nil)
}

// Construct creates a fresh instance for id with injection applied but does
// not register it. Injected dependencies are still shared singletons.
func (r *Registry) Construct(id string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.construct(id, nil)
}

// Resolve builds the instance registered under T's identifier.
func Resolve[T any](r *Registry) (T, error) {
	var zero T
	id := TypeID[T]()
	v, err := r.Build(id)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &ConfigurationError{
			Subject: id,
			Reason:  fmt.Sprintf("registered %T is not %s", v, reflectutils.TypeName(reflect.TypeFor[T]())),
		}
	}
	return typed, nil
}

func (r *Registry) build(id string, chain []string) (any, error) {
	if v, ok := r.instances[id]; ok {
		return v, nil
	}
	v, err := r.construct(id, chain)
	if err != nil {
		return nil, err
	}
	r.instances[id] = v
	return v, nil
}

func (r *Registry) construct(id string, chain []string) (any, error) {
	if slices.Contains(chain, id) {
		return nil, &CyclicDependencyError{Chain: slices.Concat(chain, []string{id})}
	}
	chain = slices.Concat(chain, []string{id})

	inst, err := r.instantiate(id)
	if err != nil {
		return nil, err
	}

	rv := reflect.ValueOf(inst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return inst, nil
	}
	if err := r.injectRefs(id, rv.Elem(), chain); err != nil {
		return nil, err
	}
	r.injectValues(rv.Elem())
	return inst, nil
}

func (r *Registry) instantiate(id string) (inst any, err error) {
	if fn, ok := r.providers[id]; ok {
		defer func() {
			if p := recover(); p != nil {
				err = &ConfigurationError{Subject: id, Reason: "provider panicked", Err: &PanicError{Value: p}}
			}
		}()
		inst = fn()
		if inst == nil {
			return nil, &ConfigurationError{Subject: id, Reason: "provider returned nil"}
		}
		return inst, nil
	}
	if t, ok := r.types[id]; ok {
		return reflect.New(t).Interface(), nil
	}
	return nil, &NotFoundError{Kind: "type", ID: id}
}

func (r *Registry) injectRefs(owner string, v reflect.Value, chain []string) error {
	var err error
	reflectutils.WalkStructElements(v.Type(), func(f reflect.StructField) bool {
		name, ok := f.Tag.Lookup(InjectTag)
		if !ok {
			return err == nil
		}
		if err == nil {
			err = r.injectRef(owner, v, f, name, chain)
		}
		return false
	})
	return err
}

func (r *Registry) injectRef(owner string, v reflect.Value, f reflect.StructField, depID string, chain []string) error {
	subject := owner + "." + f.Name
	field, err := v.FieldByIndexErr(f.Index)
	if err != nil || !field.CanSet() {
		return &ConfigurationError{Subject: subject, Reason: "field is not settable", Err: err}
	}

	if depID == "" {
		if f.Type.Kind() != reflect.Pointer || f.Type.Elem().Kind() != reflect.Struct {
			return &ConfigurationError{
				Subject: subject,
				Reason:  "cannot infer dependency from " + reflectutils.TypeName(f.Type) + "; name it in the inject tag",
			}
		}
		depID = typeID(f.Type)
	}

	dep, err := r.build(depID, chain)
	if err != nil {
		return err
	}

	dv := reflect.ValueOf(dep)
	if !dv.Type().AssignableTo(f.Type) {
		return &ConfigurationError{
			Subject: subject,
			Reason:  fmt.Sprintf("%s is not assignable to %s", reflectutils.TypeName(dv.Type()), reflectutils.TypeName(f.Type)),
		}
	}
	field.Set(dv)
	return nil
}

// injectValues fills value-tagged fields. Missing keys and kind mismatches
// leave the field untouched.
func (r *Registry) injectValues(v reflect.Value) {
	if r.config == nil {
		return
	}
	reflectutils.WalkStructElements(v.Type(), func(f reflect.StructField) bool {
		key, ok := f.Tag.Lookup(ValueTag)
		if !ok {
			return true
		}
		field, err := v.FieldByIndexErr(f.Index)
		if err != nil || !field.CanSet() || key == "" {
			return false
		}
		if raw := r.config.Get(key, nil); raw != nil {
			assignConfigValue(field, raw)
		}
		return false
	})
}

// assignConfigValue stores raw into field when its kind fits, reporting success.
func assignConfigValue(field reflect.Value, raw any) bool {
	rv := reflect.ValueOf(raw)
	ft := field.Type()

	if ft == durationType {
		if s, ok := raw.(string); ok {
			d, err := time.ParseDuration(s)
			if err != nil {
				return false
			}
			field.SetInt(int64(d))
			return true
		}
	}

	switch ft.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := signed(rv)
		if !ok || field.OverflowInt(n) {
			return false
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := signed(rv)
		if !ok || n < 0 || field.OverflowUint(uint64(n)) {
			return false
		}
		field.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		if rv.Kind() != reflect.Float32 && rv.Kind() != reflect.Float64 {
			return false
		}
		field.SetFloat(rv.Float())
	case reflect.String:
		if rv.Kind() != reflect.String {
			return false
		}
		field.SetString(rv.String())
	case reflect.Bool:
		if rv.Kind() != reflect.Bool {
			return false
		}
		field.SetBool(rv.Bool())
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		if rv.Type().AssignableTo(ft) {
			field.Set(rv)
			return true
		}
		if !compatibleShape(ft.Kind(), rv.Kind()) {
			return false
		}
		out := reflect.New(ft)
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
			Result:     out.Interface(),
			TagName:    "yaml",
		})
		if err != nil || dec.Decode(raw) != nil {
			return false
		}
		field.Set(out.Elem())
	default:
		if !rv.Type().AssignableTo(ft) {
			return false
		}
		field.Set(rv)
	}
	return true
}

func signed(rv reflect.Value) (int64, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return 0, false
		}
		return int64(u), true
	default:
		return 0, false
	}
}

func compatibleShape(field, value reflect.Kind) bool {
	switch field {
	case reflect.Slice, reflect.Array:
		return value == reflect.Slice || value == reflect.Array
	case reflect.Map, reflect.Struct:
		return value == reflect.Map
	default:
		return false
	}
}
