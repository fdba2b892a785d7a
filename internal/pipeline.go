package internal

import "errors"

// Next continues the pipeline with the remaining middleware and the handler.
type Next func(rc *RequestContext) (*Response, error)

// Middleware wraps the rest of the pipeline. It may return its own response
// without calling next, or alter the response next returns.
type Middleware interface {
	Process(rc *RequestContext, next Next) (*Response, error)
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(rc *RequestContext, next Next) (*Response, error)

func (f MiddlewareFunc) Process(rc *RequestContext, next Next) (*Response, error) {
	return f(rc, next)
}

// MiddlewareFactory creates a middleware instance. It is called once per
// pipeline composition, so instances never outlive a request.
type MiddlewareFactory func() Middleware

// MiddlewareResolver returns a fresh middleware for id.
type MiddlewareResolver func(id string) (Middleware, error)

// Pipeline composes the middleware named by ids around terminal.
// The first id is the outermost layer: [A, B] runs A, then B, then terminal.
func Pipeline(ids []string, resolve MiddlewareResolver, terminal Next) (Next, error) {
	next := terminal
	for i := len(ids) - 1; i >= 0; i-- {
		mw, err := resolve(ids[i])
		if err != nil {
			return nil, err
		}
		next = chain(mw, next)
	}
	return next, nil
}

func chain(mw Middleware, next Next) Next {
	return func(rc *RequestContext) (*Response, error) {
		return mw.Process(rc, next)
	}
}

// FactoryResolver resolves ids from factories first, then from types
// declared in the registry. Registry-built middleware is constructed fresh
// on every call.
func FactoryResolver(factories map[string]MiddlewareFactory, registry *Registry) MiddlewareResolver {
	return func(id string) (Middleware, error) {
		if f, ok := factories[id]; ok {
			if mw := f(); mw != nil {
				return mw, nil
			}
			return nil, &ConfigurationError{Subject: id, Reason: "middleware factory returned nil"}
		}
		if registry == nil {
			return nil, &NotFoundError{Kind: "middleware", ID: id}
		}

		v, err := registry.Construct(id)
		if err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) && nf.ID == id {
				return nil, &NotFoundError{Kind: "middleware", ID: id}
			}
			return nil, err
		}
		mw, ok := v.(Middleware)
		if !ok {
			return nil, &ConfigurationError{Subject: id, Reason: "registered type is not a middleware"}
		}
		return mw, nil
	}
}
