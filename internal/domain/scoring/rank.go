package scoring

// Ranks assigns descending ranks with the minimum tie-break: tied scores share
// the best rank of their group and the next distinct score resumes at the
// number of scores ranked above it plus one.
func Ranks(scores []float64) []int {
	ranks := make([]int, len(scores))
	for i, s := range scores {
		r := 1
		for _, other := range scores {
			if other > s {
				r++
			}
		}
		ranks[i] = r
	}
	return ranks
}
