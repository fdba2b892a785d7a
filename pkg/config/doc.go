// Package config loads application configuration.
//
// Two layers are provided. Settings holds process-level knobs read from the
// environment (with an optional .env file) through envconfig. Tree holds the
// application's YAML configuration and answers dotted-key lookups such as
// "redis.url" or "app.debug"; Tree.Decode unpacks a subtree into a struct.
package config
