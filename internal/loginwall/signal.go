package loginwall

// Signal is a named, weighted predicate over page evidence.
//
// Check must be deterministic and must not panic: missing metadata or a
// malformed URL is a non-match, not an error. A panicking check is a bug in
// the signal and is not recovered.
type Signal struct {
	ID          string
	Description string
	Weight      int
	Check       func(*Evidence) bool
}

// weight returns the effective weight; unset weights count as 1.
func (s Signal) weight() int {
	if s.Weight <= 0 {
		return 1
	}
	return s.Weight
}
