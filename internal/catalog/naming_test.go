package catalog

import (
	"testing"

	"github.com/plant-nursery-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.plantmark.com.au/trees/acer-palmatum", "Trees"},
		{"https://www.plantmark.com.au/shop/hedging/murraya-paniculata", "Hedging & Screening"},
		{"https://www.plantmark.com.au/products/ornamental-grasses/lomandra-tanika?sku=1", "Grasses"},
		{"https://www.plantmark.com.au/water-plants/louisiana-iris", "Water Plants"},
		{"https://www.plantmark.com.au/Trees/Acer/", "Trees"},
	}
	for _, tc := range cases {
		got, err := CategoryFromURL(tc.url)
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.want, got, tc.url)
	}
}

func TestCategoryFromURL_Skips(t *testing.T) {
	_, err := CategoryFromURL("")
	assert.ErrorIs(t, err, ErrNoSourceURL)

	_, err = CategoryFromURL("not a url at all")
	assert.ErrorIs(t, err, ErrUnparsableURL)

	_, err = CategoryFromURL("https://www.plantmark.com.au/acer-palmatum")
	assert.ErrorIs(t, err, ErrNoCategoryPath)

	_, err = CategoryFromURL("https://www.plantmark.com.au/shop/")
	assert.ErrorIs(t, err, ErrNoCategoryPath)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hedging-screening", Slugify("Hedging & Screening"))
	assert.Equal(t, "fruit-trees", Slugify("  Fruit   Trees "))
	assert.Equal(t, "acer-palmatum-bloodgood-45cm", Slugify("Acer palmatum 'Bloodgood' 45cm"))
	assert.Equal(t, "", Slugify("&&"))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Water Plants", TitleCase("water-plants"))
	assert.Equal(t, "Bonsai", TitleCase("bonsai"))
}

func TestMappedNamesAreMainCategories(t *testing.T) {
	for slug, name := range slugDisplayNames {
		assert.True(t, models.IsMainCategoryName(name), "%s maps to %q", slug, name)
	}
	for _, slug := range PartnerCategorySlugs() {
		assert.True(t, models.IsMainCategoryName(DisplayName(slug)), slug)
	}
	assert.Len(t, PartnerCategorySlugs(), len(models.MainCategoryNames))
}
