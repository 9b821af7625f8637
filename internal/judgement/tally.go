package judgement

// Tally counts judgements by value across judgers.
type Tally[V comparable] map[V]int

// Add records n judgements of value v. Non-positive counts are ignored.
func (t Tally[V]) Add(v V, n int) {
	if n <= 0 {
		return
	}
	t[v] += n
}

// Total returns the number of judgements counted.
func (t Tally[V]) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}
