package domain

import "fmt"

// Category is a bed type. The set is closed: every switch over Category must
// cover all four values.
type Category string

const (
	CategoryApple  Category = "apple"
	CategoryOrange Category = "orange"
	CategoryLemon  Category = "lemon"
	CategoryGrape  Category = "grape"
)

// Categories lists every category in display order.
var Categories = [...]Category{CategoryApple, CategoryOrange, CategoryLemon, CategoryGrape}

// ParseCategory returns ErrInvalidCategory for anything outside the closed set.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	switch c {
	case CategoryApple, CategoryOrange, CategoryLemon, CategoryGrape:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}

// BedCounts is the configured capacity of a site, one field per category.
type BedCounts struct {
	Apple  int `json:"apple" yaml:"apple"`
	Orange int `json:"orange" yaml:"orange"`
	Lemon  int `json:"lemon" yaml:"lemon"`
	Grape  int `json:"grape" yaml:"grape"`
}

// Get returns the capacity for c. It panics on a category outside the closed
// set; callers validate categories at the boundary.
func (b BedCounts) Get(c Category) int {
	switch c {
	case CategoryApple:
		return b.Apple
	case CategoryOrange:
		return b.Orange
	case CategoryLemon:
		return b.Lemon
	case CategoryGrape:
		return b.Grape
	default:
		panic(fmt.Sprintf("domain: unknown category %q", string(c)))
	}
}

// With returns a copy of b with the capacity for c set to n.
func (b BedCounts) With(c Category, n int) BedCounts {
	switch c {
	case CategoryApple:
		b.Apple = n
	case CategoryOrange:
		b.Orange = n
	case CategoryLemon:
		b.Lemon = n
	case CategoryGrape:
		b.Grape = n
	default:
		panic(fmt.Sprintf("domain: unknown category %q", string(c)))
	}
	return b
}

// Validate rejects negative capacities, naming the first offending category.
func (b BedCounts) Validate() error {
	for _, c := range Categories {
		if b.Get(c) < 0 {
			return fmt.Errorf("%w: bed count for %s must be a non-negative integer", ErrInvalidBedCount, c)
		}
	}
	return nil
}

// Total sums capacity over all categories.
func (b BedCounts) Total() int {
	return b.Apple + b.Orange + b.Lemon + b.Grape
}
