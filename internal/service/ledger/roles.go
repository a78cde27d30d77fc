package ledger

import "strings"

// UnknownRole is recorded for edits made with a PIN that is not in the table.
const UnknownRole = "Unknown User"

// Roles is the static PIN to role lookup used to attribute edits.
type Roles map[string]string

// Resolve returns the role for a PIN.
func (r Roles) Resolve(pin string) string {
	if role, ok := r[strings.TrimSpace(pin)]; ok {
		return role
	}
	return UnknownRole
}
