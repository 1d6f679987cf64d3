package index

import "unicode"

// NaturalCompare compares a and b case-insensitively, treating runs of
// digits as numbers so "file2" sorts before "file10". Equal numeric values
// with different zero padding order the shorter run first.
func NaturalCompare(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	i, j := 0, 0

	for i < len(ra) && j < len(rb) {
		ca, cb := ra[i], rb[j]

		if isDigit(ca) && isDigit(cb) {
			si, sj := i, j
			for i < len(ra) && isDigit(ra[i]) {
				i++
			}
			for j < len(rb) && isDigit(rb[j]) {
				j++
			}
			if c := compareDigits(ra[si:i], rb[sj:j]); c != 0 {
				return c
			}
			continue
		}

		la, lb := unicode.ToLower(ca), unicode.ToLower(cb)
		if la != lb {
			if la < lb {
				return -1
			}
			return 1
		}
		i++
		j++
	}

	switch {
	case len(ra)-i < len(rb)-j:
		return -1
	case len(ra)-i > len(rb)-j:
		return 1
	}
	return 0
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// compareDigits compares two runs of ASCII digits by numeric value without
// overflowing on long runs.
func compareDigits(a, b []rune) int {
	ta, tb := trimZeros(a), trimZeros(b)
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	for k := range ta {
		if ta[k] != tb[k] {
			if ta[k] < tb[k] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func trimZeros(d []rune) []rune {
	for len(d) > 1 && d[0] == '0' {
		d = d[1:]
	}
	return d
}
