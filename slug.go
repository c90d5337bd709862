package scriptstore

import "strings"

// Slugify derives the key-safe name for a display name: lowercase, every
// rune outside [a-z0-9] folded into a single '-', no leading or trailing '-'.
// It returns "" when name has no ASCII letters or digits.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
