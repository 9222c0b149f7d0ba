// Package batch splits keyword lists into upstream-sized query batches
package batch

// MaxSize is the most keywords a single interest-over-time query accepts
const MaxSize = 5

// Partition splits keywords into consecutive batches of at most size, preserving order.
// size is clamped to 1..MaxSize. Batches share no backing array with keywords.
func Partition(keywords []string, size int) [][]string {
	size = Clamp(size)
	if len(keywords) == 0 {
		return nil
	}
	out := make([][]string, 0, (len(keywords)+size-1)/size)
	for start := 0; start < len(keywords); start += size {
		end := min(start+size, len(keywords))
		b := make([]string, end-start)
		copy(b, keywords[start:end])
		out = append(out, b)
	}
	return out
}

// Clamp bounds a configured batch size to 1..MaxSize
func Clamp(size int) int {
	switch {
	case size < 1:
		return 1
	case size > MaxSize:
		return MaxSize
	}
	return size
}
