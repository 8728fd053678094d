package presence

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

// Evaluate applies the parity rule: terminals record alternating in/out
// punches, so an odd count for the day means the last punch was a clock-in.
// count must be non-negative; callers validate before this stage.
func Evaluate(count int) Status {
	if count%2 == 1 {
		return StatusPresent
	}
	return StatusAbsent
}

// PresentSubset returns the ids classified present, in input order. An id
// missing from counts has a count of zero.
func PresentSubset(ids []string, counts map[string]int) []string {
	present := make([]string, 0, len(ids))
	for _, id := range ids {
		if Evaluate(counts[id]) == StatusPresent {
			present = append(present, id)
		}
	}
	return present
}
