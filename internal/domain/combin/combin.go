// Package combin enumerates index combinations in a fixed order.
package combin

// Each calls fn with every size-k combination of [0, n) in lexicographic
// order until fn returns false. The slice passed to fn is reused between
// calls; copy it to keep it.
func Each(n, k int, fn func(idx []int) bool) {
	if k <= 0 || k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		if !fn(idx) {
			return
		}
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
