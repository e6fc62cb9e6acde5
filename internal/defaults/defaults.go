// Package defaults holds embedded default content shipped with the binary.
package defaults

import (
	_ "embed"
)

//go:embed default_tool_instructions.json
var toolInstructionsJSON []byte

// ToolInstructionsJSON returns the embedded default tool instructions JSON bytes.
func ToolInstructionsJSON() []byte {
	return toolInstructionsJSON
}
