// Package model defines the domain types used across the application.
package model

import "time"

// Category identifies a promotion content domain. The set is closed:
// every category the bot can serve is declared here.
type Category string

// Supported promotion categories.
const (
	CategoryGeneral    Category = "general"
	CategoryTech       Category = "tech"
	CategoryGaming     Category = "gaming"
	CategoryFitness    Category = "fitness"
	CategoryAutomotive Category = "automotive"
	CategoryFashion    Category = "fashion"
	CategoryHome       Category = "home"
	CategoryBugs       Category = "bugs"
	CategoryAliexpress Category = "aliexpress"
	CategoryCoupons    Category = "coupons"
)

// Categories lists all supported categories in display order.
func Categories() []Category {
	return []Category{
		CategoryGeneral,
		CategoryTech,
		CategoryGaming,
		CategoryFitness,
		CategoryAutomotive,
		CategoryFashion,
		CategoryHome,
		CategoryBugs,
		CategoryAliexpress,
		CategoryCoupons,
	}
}

// MediaKind classifies an attachment on a content item.
type MediaKind string

// Supported media kinds.
const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
	MediaOther    MediaKind = "other"
)

// Media describes an attachment that can be downloaded later by reference.
type Media struct {
	Kind MediaKind
	Ref  string
}

// ContentItem is one discovered piece of promotional content.
// Identity is the ID: two items with the same ID are the same content
// regardless of formatting differences.
type ContentItem struct {
	ID          string
	Source      string
	Text        string
	Media       *Media
	PublishedAt time.Time
}
