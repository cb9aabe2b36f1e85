package config

import "fmt"

// StoreBackend selects the taskstore.Store implementation cmd/mcpflow
// wires up (§4.9): the in-memory store for local development, or a
// Redis-backed store for a durable, multi-process deployment.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreRedis  StoreBackend = "redis"
)

// ServeConfig is the flat configuration struct populated from mcpflow
// serve's CLI flags (§4.9: "there is no YAML-based server configuration
// file, since the server's only configurable surfaces are the workflow
// directory and the task-store backend").
type ServeConfig struct {
	WorkflowsDir string
	Store        StoreBackend
	RedisAddr    string
	LogLevel     string
}

// Validate checks the flag combination is internally consistent before
// any I/O is attempted.
func (c ServeConfig) Validate() error {
	if err := ValidateRequired("workflows", c.WorkflowsDir, "serve"); err != nil {
		return err
	}
	if err := ValidateOneOf("store", string(c.Store), []string{string(StoreMemory), string(StoreRedis)}); err != nil {
		return err
	}
	if c.Store == StoreRedis && c.RedisAddr == "" {
		return fmt.Errorf("--redis-addr is required when --store=redis")
	}
	return nil
}
