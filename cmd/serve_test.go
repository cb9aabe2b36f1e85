package cmd

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpflow/internal/config"
	"mcpflow/internal/taskstore"
	"mcpflow/internal/toolhost"
	"mcpflow/pkg/logging"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logging.LogLevel{
		"debug":   logging.LevelDebug,
		"warn":    logging.LevelWarn,
		"error":   logging.LevelError,
		"info":    logging.LevelInfo,
		"garbage": logging.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLogLevel(in))
	}
}

func TestBuildStore_DefaultsToMemory(t *testing.T) {
	store, closeFn, err := buildStore(config.ServeConfig{Store: config.StoreMemory})
	require.NoError(t, err)
	defer closeFn()

	_, isMemory := store.(*taskstore.Memory)
	assert.True(t, isMemory)
}

func TestBuildStore_RedisUnreachableErrors(t *testing.T) {
	_, _, err := buildStore(config.ServeConfig{Store: config.StoreRedis, RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRegisterDemoTools_EchoAndNow(t *testing.T) {
	host := toolhost.New()
	registerDemoTools(host)

	assert.Contains(t, host.Names(), "echo")
	assert.Contains(t, host.Names(), "now")

	result, err := host.Call(context.Background(), "echo", map[string]interface{}{"a": 1.0})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": 1.0}, result)
}

func TestAsConfigErrors(t *testing.T) {
	errs := config.NewConfigurationErrorCollection()
	errs.AddError("path", "file", "source", "workflows", "parse", "broken")

	var target config.ConfigurationErrorCollection
	ok := asConfigErrors(*errs, &target)
	require.True(t, ok)
	assert.Equal(t, 1, target.Count())

	ok = asConfigErrors(assertError{}, &target)
	assert.False(t, ok)
}

func TestRequestMeta_NilWhenNoMeta(t *testing.T) {
	var request mcp.CallToolRequest
	assert.Nil(t, requestMeta(request))
}

func TestRequestMeta_ReturnsAdditionalFields(t *testing.T) {
	var request mcp.CallToolRequest
	request.Params.Meta = &mcp.Meta{AdditionalFields: map[string]interface{}{"_task_id": "t-1"}}
	assert.Equal(t, map[string]interface{}{"_task_id": "t-1"}, requestMeta(request))
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
