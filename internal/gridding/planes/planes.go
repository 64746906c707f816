// Package planes numbers unordered pairs of antenna classes.
//
// For n classes the pairs (i, j), i <= j, are numbered in row-major
// upper-triangular order:
//
//	plane(i, j) = sum_{m<i} (n - m - 1) + j
//
// which gives n + n(n-1)/2 dense indices starting at zero.
package planes

// Count returns the number of pair planes for n classes.
func Count(n int) int {
	if n <= 0 {
		return 0
	}
	if n == 1 {
		return 1
	}
	return n + n*(n-1)/2
}

// Index returns the plane of the unordered class pair (i, j).
func Index(i, j, n int) int {
	if j < i {
		i, j = j, i
	}
	return i*(n-1) - i*(i-1)/2 + j
}

// Pair returns the class pair (i <= j) stored in plane p.
func Pair(p, n int) (i, j int, ok bool) {
	if p < 0 || p >= Count(n) {
		return 0, 0, false
	}
	for i = 0; i < n; i++ {
		first := Index(i, i, n)
		last := Index(i, n-1, n)
		if p <= last {
			return i, i + (p - first), true
		}
	}
	return 0, 0, false
}

// RowMap returns the plane of every row, given each row's two antennas and
// the antenna-to-class mapping. Rows involving an antenna without a class
// map to -1.
func RowMap(ant1, ant2 []int, classOf func(ant int) int, n int) []int {
	rows := make([]int, len(ant1))
	for r := range ant1 {
		c1, c2 := classOf(ant1[r]), classOf(ant2[r])
		if c1 < 0 || c2 < 0 {
			rows[r] = -1
			continue
		}
		rows[r] = Index(c1, c2, n)
	}
	return rows
}
