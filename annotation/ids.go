package annotation

import (
	"strconv"
	"strings"
)

const idPrefix = "a"

// nextID mints a page-scoped id "a<n>" one past the highest numeric suffix on
// the page. Ids of other shapes (imported data) are ignored for numbering but
// still checked for collisions.
func nextID(existing []Annotation) string {
	taken := make(map[string]struct{}, len(existing))
	max := 0
	for _, a := range existing {
		taken[a.ID] = struct{}{}
		if n, ok := parseID(a.ID); ok && n > max {
			max = n
		}
	}

	for n := max + 1; ; n++ {
		id := idPrefix + strconv.Itoa(n)
		if _, clash := taken[id]; !clash {
			return id
		}
	}
}

func parseID(id string) (int, bool) {
	if !strings.HasPrefix(id, idPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(idPrefix):])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
