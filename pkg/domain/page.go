package domain

import "strconv"

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Page is the offset pagination window shared by every list query.
type Page struct {
	Limit  int
	Offset int
}

// DefaultPage returns the standard first page.
func DefaultPage() Page {
	return Page{Limit: defaultPageLimit}
}

// ParsePage builds a Page from raw query values, clamping to sane bounds.
// Invalid values fall back to defaults rather than erroring; pagination is
// never worth a 400.
func ParsePage(rawLimit, rawOffset string) Page {
	page := DefaultPage()
	if rawLimit != "" {
		if limit, err := strconv.Atoi(rawLimit); err == nil && limit > 0 {
			if limit > maxPageLimit {
				limit = maxPageLimit
			}
			page.Limit = limit
		}
	}
	if rawOffset != "" {
		if offset, err := strconv.Atoi(rawOffset); err == nil && offset > 0 {
			page.Offset = offset
		}
	}
	return page
}
