// Package registry holds the capability catalog served over MCP.
//
// # Overview
//
// A Registry is a read-only lookup table of tools, resources, and prompts. It is
// assembled once at startup from one or more BuiltinPacks and never changes
// afterwards, so concurrent readers need no locking.
//
// Listing operations return descriptors in registration order:
//
//	reg, err := registry.New(logger, builtins.DefaultPack(time.Now))
//	tools := reg.ListTools()
//
// Lookups report absence with a boolean rather than an error; callers decide
// how a missing name surfaces on the wire.
//
// # Execution
//
// The Executor runs a tool's handler with a timeout and maps absent tools to
// ErrToolNotFound:
//
//	exec := registry.NewExecutor(registry.ExecutorConfig{Registry: reg})
//	text, err := exec.Execute(ctx, "calculator", json.RawMessage(`{"operation":"add","a":1,"b":2}`))
package registry
