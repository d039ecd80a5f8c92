// Package catalog holds the naming rules shared by the import pipeline and
// the category repair job: slug generation and deriving a product's category
// from the partner URL it was scraped from.
package catalog

import (
	"errors"
	"net/url"
	"strings"
	"unicode"
)

// DefaultCategoryDescription is written on categories created automatically
const DefaultCategoryDescription = "Browse our range of %s."

var (
	ErrNoSourceURL    = errors.New("product has no source url")
	ErrUnparsableURL  = errors.New("source url could not be parsed")
	ErrNoCategoryPath = errors.New("source url has no category segment")
)

// nonCategorySegments are path segments the partner site puts in front of
// the category segment
var nonCategorySegments = map[string]bool{
	"shop":             true,
	"products":         true,
	"product-category": true,
}

// slugDisplayNames maps partner category slugs onto display names. Several
// partner slugs collapse onto the same main category.
var slugDisplayNames = map[string]string{
	"trees":              "Trees",
	"shrubs":             "Shrubs",
	"perennials":         "Perennials",
	"grasses":            "Grasses",
	"ornamental-grasses": "Grasses",
	"groundcovers":       "Groundcovers",
	"ground-covers":      "Groundcovers",
	"climbers":           "Climbers",
	"climbers-creepers":  "Climbers",
	"succulents":         "Succulents",
	"succulents-cacti":   "Succulents",
	"natives":            "Natives",
	"native-plants":      "Natives",
	"australian-natives": "Natives",
	"fruit-trees":        "Fruit Trees",
	"hedging":            "Hedging & Screening",
	"hedging-screening":  "Hedging & Screening",
	"indoor":             "Indoor Plants",
	"indoor-plants":      "Indoor Plants",
	"palms":              "Palms",
	"palms-cycads":       "Palms",
	"ferns":              "Ferns",
	"bulbs":              "Bulbs",
	"herbs":              "Herbs & Vegetables",
	"vegetables":         "Herbs & Vegetables",
	"herbs-vegetables":   "Herbs & Vegetables",
}

// PartnerCategorySlugs returns the canonical partner slug of every mapped
// display name, in a stable order. Used to walk the whole partner catalog.
func PartnerCategorySlugs() []string {
	return []string{
		"trees", "shrubs", "perennials", "grasses", "groundcovers", "climbers",
		"succulents", "natives", "fruit-trees", "hedging", "indoor-plants",
		"palms", "ferns", "bulbs", "herbs-vegetables",
	}
}

// DisplayName returns the display name for a partner category slug, falling
// back to title-casing the slug
func DisplayName(slug string) string {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if name, ok := slugDisplayNames[slug]; ok {
		return name
	}
	return TitleCase(slug)
}

// CategoryFromURL derives the category display name from a partner product
// URL: the first path segment that is not a known prefix, provided another
// segment (the product itself) follows it.
func CategoryFromURL(sourceURL string) (string, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return "", ErrNoSourceURL
	}
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil || u.Host == "" {
		return "", ErrUnparsableURL
	}

	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || nonCategorySegments[s] {
			continue
		}
		segments = append(segments, s)
	}
	if len(segments) < 2 {
		return "", ErrNoCategoryPath
	}
	return DisplayName(segments[0]), nil
}

// TitleCase turns "fruit-trees" into "Fruit Trees"
func TitleCase(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// Slugify lowercases s and joins its alphanumeric runs with single hyphens
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
