package scraper

import "github.com/use-agent/steel-scraper/models"

// SelectContent picks the representation to surface: the primary format if
// the remote returned it, otherwise the first representation in wire order.
// It never fails; an empty or nil map yields "".
func SelectContent(reps *models.Representations, formats []models.Format) string {
	if reps == nil || reps.Len() == 0 {
		return ""
	}
	if len(formats) > 0 {
		if content, ok := reps.Get(string(formats[0])); ok {
			return content
		}
	}
	return reps.Oldest().Value
}

// sourceLength is the length of the largest representation returned, i.e.
// the size of the page before a single representation was selected.
func sourceLength(reps *models.Representations) int {
	if reps == nil {
		return 0
	}
	longest := 0
	for pair := reps.Oldest(); pair != nil; pair = pair.Next() {
		if n := charCount(pair.Value); n > longest {
			longest = n
		}
	}
	return longest
}
