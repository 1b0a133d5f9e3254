// Package models defines the canonical domain types shared across the
// collection and rating pipelines. Upstream API payloads are parsed into these
// types at the adapter boundary; nothing downstream touches raw JSON.
package models

import "fmt"

// Category is a content-suitability label. It drives both search phrasing
// during collection and the keyword sets used for scoring.
type Category string

const (
	CategoryHeartwarming Category = "heartwarming"
	CategoryFunny        Category = "funny"
	CategoryTraumatic    Category = "traumatic"

	// CategoryMixed is a pseudo-category: the collector round-robins across
	// all real categories. It is never attached to a candidate.
	CategoryMixed Category = "mixed"
)

// CategoryInfo describes a category for display and logging.
type CategoryInfo struct {
	Name        string
	Description string
}

var categoryInfos = map[Category]CategoryInfo{
	CategoryHeartwarming: {
		Name:        "Heartwarming Content",
		Description: "Genuine emotional moments that create positive feelings",
	},
	CategoryFunny: {
		Name:        "Funny Content",
		Description: "Humorous content that entertains and amuses",
	},
	CategoryTraumatic: {
		Name:        "Traumatic Events",
		Description: "Serious events with significant impact",
	},
}

// Categories returns the real categories in stable order.
func Categories() []Category {
	return []Category{CategoryHeartwarming, CategoryFunny, CategoryTraumatic}
}

// Info returns display metadata for a category.
func (c Category) Info() CategoryInfo {
	return categoryInfos[c]
}

// Valid reports whether c is a known category, including mixed.
func (c Category) Valid() bool {
	if c == CategoryMixed {
		return true
	}
	_, ok := categoryInfos[c]
	return ok
}

// ParseCategory validates a raw string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
