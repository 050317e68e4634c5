// ABOUTME: Pure prompt assembly from system instruction, history, and new input
// ABOUTME: Produces the ordered part sequence submitted to the model

package transcript

// Assemble builds the prompt sent to the model for one turn:
// the system instruction, then the stored history, then the new input
// as a trailing user part.
//
// Assemble never appends a placeholder for the model's answer; that part
// exists only after generation succeeds. An empty input is passed through
// as literal empty text rather than rejected — whether to skip the model
// call on empty input is the caller's decision.
//
// The inputs are not mutated; the returned slice is freshly allocated.
func Assemble(systemInstruction string, history []Part, input string) []Part {
	parts := make([]Part, 0, len(history)+2)
	parts = append(parts, Part{Role: RoleSystem, Text: systemInstruction})
	parts = append(parts, history...)
	parts = append(parts, Part{Role: RoleUser, Text: input})
	return parts
}
