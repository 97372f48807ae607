// ABOUTME: Calculator tool: add, subtract, multiply, divide over float64 operands.
// ABOUTME: Division by zero is a typed failure, never Inf or NaN.

package builtins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2389/mcp-gateway/internal/registry"
	"github.com/google/jsonschema-go/jsonschema"
)

// ErrDivisionByZero is returned when divide is called with b == 0.
var ErrDivisionByZero = errors.New("division by zero")

// ErrUnknownOperation is returned for an operation outside add/subtract/multiply/divide.
var ErrUnknownOperation = errors.New("unknown operation")

// ErrMissingArgument is returned when a required argument is absent. It wraps
// registry.ErrInvalidArguments so callers can classify it as a params failure.
var ErrMissingArgument = fmt.Errorf("%w: missing argument", registry.ErrInvalidArguments)

func calculatorTool() *registry.BuiltinTool {
	return &registry.BuiltinTool{
		Definition: registry.Tool{
			Name:        "calculator",
			Description: "Perform basic arithmetic operations",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"operation": {
						Type:        "string",
						Enum:        []any{"add", "subtract", "multiply", "divide"},
						Description: "The arithmetic operation to perform",
					},
					"a": {Type: "number", Description: "First operand"},
					"b": {Type: "number", Description: "Second operand"},
				},
				Required: []string{"operation", "a", "b"},
			},
		},
		Handler: Calculate,
	}
}

type calculatorInput struct {
	Operation string   `json:"operation"`
	A         *float64 `json:"a"`
	B         *float64 `json:"b"`
}

// Calculate is the calculator tool handler. The result is formatted to two decimals.
func Calculate(_ context.Context, input json.RawMessage) (string, error) {
	var in calculatorInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("%w: %v", registry.ErrInvalidArguments, err)
	}
	if in.Operation == "" {
		return "", fmt.Errorf("%w: operation", ErrMissingArgument)
	}
	if in.A == nil {
		return "", fmt.Errorf("%w: a", ErrMissingArgument)
	}
	if in.B == nil {
		return "", fmt.Errorf("%w: b", ErrMissingArgument)
	}

	result, err := compute(in.Operation, *in.A, *in.B)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Result: %.2f", result), nil
}

func compute(op string, a, b float64) (float64, error) {
	switch op {
	case "add":
		return a + b, nil
	case "subtract":
		return a - b, nil
	case "multiply":
		return a * b, nil
	case "divide":
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a / b, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
}
