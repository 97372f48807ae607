// Package builtins provides the capabilities the gateway serves out of the box.
//
// # Overview
//
// Everything here executes in-process. DefaultPack bundles it under the
// pack ID "builtin:default" for registration:
//
//	reg, err := registry.New(logger, builtins.DefaultPack(nil))
//
// # Tools
//
//   - calculator: add, subtract, multiply, or divide two numbers; the result
//     is formatted as "Result: 15.00"
//   - get_current_time: wall clock annotated with a timezone label
//     (default "UTC"); labels that are not IANA zones are echoed verbatim
//
// # Resources
//
//   - resource://example/data: JSON document with a message and timestamp
//   - resource://example/guide: usage guide, markdown rendered to HTML
//
// # Prompts
//
//   - code_review: asks for a review of the given code; language defaults
//     to "unknown"
//
// # Errors
//
// Missing or malformed arguments wrap registry.ErrInvalidArguments.
// Division by zero returns ErrDivisionByZero and an unsupported calculator
// operation returns ErrUnknownOperation.
package builtins
