// ABOUTME: Part value type and role constants for conversation transcripts
// ABOUTME: Parts are the atomic unit of prompts and persisted history

package transcript

// Role identifies who produced a transcript part.
type Role string

const (
	// RoleSystem marks the injected system instruction.
	RoleSystem Role = "system"
	// RoleUser marks end-user input.
	RoleUser Role = "user"
	// RoleModel marks generated model output.
	RoleModel Role = "model"
)

// Part is one role-tagged fragment of a prompt or transcript.
// Parts are immutable values; ordering within a slice is the turn
// history, oldest first.
type Part struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Exchange returns the user/model pair for one completed turn.
func Exchange(input, output string) []Part {
	return []Part{
		{Role: RoleUser, Text: input},
		{Role: RoleModel, Text: output},
	}
}
