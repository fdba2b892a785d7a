// Package hostrouter dispatches requests to handlers by Host header.
//
//	router := hostrouter.New(hostrouter.Routes{
//	    "api.example.com": apiApp,
//	    "*.example.com":   tenantApp,
//	}, landingApp)
//
// Matching is case-insensitive and ignores the port. Exact hosts take
// priority over wildcard patterns.
package hostrouter
