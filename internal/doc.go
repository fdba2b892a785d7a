// Package internal implements the request-processing core behind the hero
// package, which re-exports its public API.
//
// # Components
//
//   - Registry: process-wide object container. Builds declared struct types
//     once, filling fields tagged inject (other objects) and value (config).
//   - RouteTable and Matcher: controllers declare routes; the table compiles
//     into a chi-backed matcher that reports Found, NotFound or
//     MethodNotAllowed.
//   - HandlerDescriptor and Bind: handler methods are described once at
//     registration; each request binds path variables, query and form
//     values, the body and injected framework objects.
//   - Pipeline: middleware ids fold into a chain around the handler,
//     first id outermost.
//   - App: the coordinator. It owns the containment boundary, so every error
//     or panic ends in the exception handler, or in a fixed 500 response
//     when the exception handler fails too.
//
// # Request flow
//
//	match -> build controller -> compose middleware -> Init -> bind -> invoke -> write
//
// Handler results are converted to responses: *Response as is, Jsonable
// and composite values as JSON, strings and bytes as HTML, scalars as text.
//
// RequestContext is created per request and passed explicitly through the
// pipeline. Nothing request-scoped lives in package state.
package internal
