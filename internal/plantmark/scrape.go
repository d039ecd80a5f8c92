package plantmark

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/plant-nursery-api/internal/catalog"
	"github.com/plant-nursery-api/internal/models"
	"github.com/plant-nursery-api/internal/service"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

// maxListingPages bounds the walk of one category
const maxListingPages = 200

var priceRegex = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?`)

// ScrapeSource reads the partner catalog by walking the storefront's
// category listings and parsing each product page
type ScrapeSource struct {
	client *Client
}

var _ service.Source = (*ScrapeSource)(nil)

// NewScrapeSource creates a storefront scraping source
func NewScrapeSource(client *Client) *ScrapeSource {
	return &ScrapeSource{client: client}
}

// Name identifies the source in job metadata
func (s *ScrapeSource) Name() string { return "plantmark-scrape" }

// Fetch walks /{slug}?p=N for every requested category until a page lists
// no new products, visiting each product page once
func (s *ScrapeSource) Fetch(ctx context.Context, opts service.FetchOptions, visit func(*models.ScrapedProduct) error) error {
	categories := opts.Categories
	if len(categories) == 0 {
		categories = catalog.PartnerCategorySlugs()
	}

	visited := make(map[string]bool)
	for _, slug := range categories {
		if err := s.fetchCategory(ctx, slug, opts, visited, visit); err != nil {
			return err
		}
	}
	return nil
}

func (s *ScrapeSource) fetchCategory(ctx context.Context, slug string, opts service.FetchOptions, visited map[string]bool, visit func(*models.ScrapedProduct) error) error {
	for page := 1; page <= maxListingPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		body, found, err := s.client.getPage(ctx, "/"+slug, map[string]string{"p": strconv.Itoa(page)})
		if err != nil {
			return err
		}
		if !found {
			s.client.log.Warn().Str("category", slug).Msg("Category listing not found")
			return nil
		}

		links, err := parseListing(body, s.client.BaseURL())
		if err != nil {
			return fmt.Errorf("parse listing %s page %d: %w", slug, page, err)
		}

		fresh := 0
		for _, link := range links {
			if visited[link] {
				continue
			}
			visited[link] = true
			fresh++

			product, err := s.fetchProduct(ctx, link)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, ErrLoginFailed) {
					return err
				}
				s.client.log.Warn().Err(err).Str("url", link).Msg("Skipping unreadable product page")
				opts.Skipped(link, err)
				continue
			}
			if product == nil {
				continue
			}
			if err := visit(product); err != nil {
				return err
			}
		}
		// Past the last page the storefront repeats the final page
		if fresh == 0 {
			return nil
		}
	}
	return nil
}

func (s *ScrapeSource) fetchProduct(ctx context.Context, link string) (*models.ScrapedProduct, error) {
	body, found, err := s.client.getPage(ctx, link, nil)
	if err != nil {
		return nil, err
	}
	if !found {
		s.client.log.Debug().Str("url", link).Msg("Product page gone")
		return nil, nil
	}
	return parseProduct(body, link)
}

// parseListing returns the absolute product URLs on a category listing page
func parseListing(body []byte, baseURL string) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	var links []string
	seen := make(map[string]bool)
	for _, a := range findAll(doc, byTagClass("a", "product-item-link")) {
		href := strings.TrimSpace(getAttr(a, "href"))
		if href == "" {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		abs.RawQuery = ""
		abs.Fragment = ""
		if link := abs.String(); !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	}
	return links, nil
}

// parseProduct reads a product page
func parseProduct(body []byte, pageURL string) (*models.ScrapedProduct, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	p := &models.ScrapedProduct{
		URL:            pageURL,
		Name:           textOf(findFirst(doc, byTagClass("h1", "page-title"))),
		Specifications: make(map[string]string),
	}
	if p.Name == "" {
		p.Name = textOf(findFirst(doc, byTagClass("h1", "")))
	}

	p.SourceID = textOf(findFirst(doc, byAttr("", "itemprop", "sku")))
	if p.SourceID == "" {
		if n := findFirst(doc, func(n *html.Node) bool { return getAttr(n, "data-product-id") != "" }); n != nil {
			p.SourceID = getAttr(n, "data-product-id")
		}
	}
	if p.SourceID == "" {
		if u, err := url.Parse(pageURL); err == nil {
			p.SourceID = strings.TrimSuffix(path.Base(u.Path), ".html")
		}
	}

	p.Price = parsePrice(doc)
	p.Availability = parseAvailability(doc)

	if desc := findFirst(doc, func(n *html.Node) bool {
		return hasClass(n, "product") && hasClass(n, "description")
	}); desc != nil {
		p.Description = textOf(desc)
	} else if meta := findFirst(doc, byAttr("meta", "name", "description")); meta != nil {
		p.Description = strings.TrimSpace(getAttr(meta, "content"))
	}

	seen := make(map[string]bool)
	addImage := func(src string) {
		src = strings.TrimSpace(src)
		if src != "" && !seen[src] {
			seen[src] = true
			p.Images = append(p.Images, src)
		}
	}
	for _, meta := range findAll(doc, byAttr("meta", "property", "og:image")) {
		addImage(getAttr(meta, "content"))
	}
	for _, img := range findAll(doc, byTagClass("img", "product-image-photo")) {
		addImage(getAttr(img, "src"))
	}

	if table := findFirst(doc, byAttr("table", "id", "product-attribute-specs-table")); table != nil {
		for _, row := range findAll(table, byTagClass("tr", "")) {
			label := textOf(findFirst(row, byTagClass("th", "")))
			value := textOf(findFirst(row, byTagClass("td", "")))
			if label != "" && value != "" {
				p.Specifications[label] = value
			}
		}
	}

	for _, opt := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "option" && getAttr(n, "data-sku") != ""
	}) {
		p.Variants = append(p.Variants, map[string]string{
			"sku":   getAttr(opt, "data-sku"),
			"label": textOf(opt),
		})
	}

	return p, nil
}

// parsePrice prefers the machine-readable amount over the displayed text
func parsePrice(doc *html.Node) decimal.Decimal {
	if n := findFirst(doc, func(n *html.Node) bool { return getAttr(n, "data-price-amount") != "" }); n != nil {
		if d, err := decimal.NewFromString(getAttr(n, "data-price-amount")); err == nil {
			return d
		}
	}
	if n := findFirst(doc, byTagClass("span", "price")); n != nil {
		if m := priceRegex.FindString(textOf(n)); m != "" {
			if d, err := decimal.NewFromString(strings.ReplaceAll(m, ",", "")); err == nil {
				return d
			}
		}
	}
	return decimal.Zero
}

func parseAvailability(doc *html.Node) models.Availability {
	stock := strings.ToLower(textOf(findFirst(doc, byTagClass("", "stock"))))
	switch {
	case strings.Contains(stock, "out of stock"):
		return models.AvailabilityOutOfStock
	case strings.Contains(stock, "pre-order"), strings.Contains(stock, "preorder"):
		return models.AvailabilityPreOrder
	case strings.Contains(stock, "discontinued"):
		return models.AvailabilityDiscontinued
	default:
		return models.AvailabilityInStock
	}
}
