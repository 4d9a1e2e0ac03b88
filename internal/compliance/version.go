package compliance

import (
	"strconv"
	"strings"
)

// CompareVersions orders two dotted version strings, returning 1 when a is
// newer, -1 when b is newer and 0 when they are equal.
//
// An optional leading "v"/"V" is stripped, every dot-separated segment is
// parsed as a non-negative integer, and anything non-numeric or missing
// counts as 0. The shorter version is padded with zeros, so "1.2" and
// "1.2.0" compare equal and pre-release tags such as "1.0.0-beta" lose their
// ordering information. Known limitation: this is not a full semver order.
func CompareVersions(a, b string) int {
	as := versionSegments(a)
	bs := versionSegments(b)
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av := segmentAt(as, i)
		bv := segmentAt(bs, i)
		if av > bv {
			return 1
		}
		if av < bv {
			return -1
		}
	}
	return 0
}

func versionSegments(v string) []int {
	v = strings.TrimSpace(v)
	if len(v) > 0 && (v[0] == 'v' || v[0] == 'V') {
		v = v[1:]
	}
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ".")
	segments := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			n = 0
		}
		segments[i] = n
	}
	return segments
}

func segmentAt(segments []int, i int) int {
	if i < len(segments) {
		return segments[i]
	}
	return 0
}
