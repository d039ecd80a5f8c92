package plantmark

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/plant-nursery-api/internal/catalog"
	"github.com/plant-nursery-api/internal/config"
	"github.com/plant-nursery-api/internal/models"
	"github.com/plant-nursery-api/internal/service"
	"github.com/shopspring/decimal"
)

const (
	apiPageSize = 100
	// maxAPIPages bounds one category walk should the partner never report the last page
	maxAPIPages = 1000
)

// apiProduct is a product as returned by the partner API
type apiProduct struct {
	ID             string              `json:"id"`
	SKU            string              `json:"sku"`
	Name           string              `json:"name"`
	URL            string              `json:"url"`
	Description    string              `json:"description"`
	Price          decimal.Decimal     `json:"price"`
	Availability   string              `json:"availability"`
	Images         []string            `json:"images"`
	Specifications map[string]string   `json:"specifications"`
	Variants       []map[string]string `json:"variants"`
}

type apiPage struct {
	Products   []apiProduct `json:"products"`
	Page       int          `json:"page"`
	TotalPages int          `json:"totalPages"`
}

// APISource reads the partner catalog from its JSON product API
type APISource struct {
	client *Client
	apiURL string
	apiKey string
}

var _ service.Source = (*APISource)(nil)

// NewAPISource creates an API source; it shares the client's pacing
func NewAPISource(client *Client, cfg config.PlantmarkConfig) *APISource {
	return &APISource{
		client: client,
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey: cfg.APIKey,
	}
}

// Name identifies the source in job metadata
func (s *APISource) Name() string { return "plantmark-api" }

// Fetch pages through /products for every requested category
func (s *APISource) Fetch(ctx context.Context, opts service.FetchOptions, visit func(*models.ScrapedProduct) error) error {
	categories := opts.Categories
	if len(categories) == 0 {
		categories = catalog.PartnerCategorySlugs()
	}

	for _, slug := range categories {
		for page := 1; page <= maxAPIPages; page++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := s.fetchPage(ctx, slug, page)
			if err != nil {
				return err
			}
			for i := range result.Products {
				if err := visit(s.toScraped(&result.Products[i], slug)); err != nil {
					return err
				}
			}
			if len(result.Products) == 0 || (result.TotalPages > 0 && page >= result.TotalPages) {
				break
			}
		}
	}
	return nil
}

func (s *APISource) fetchPage(ctx context.Context, category string, page int) (*apiPage, error) {
	if err := s.client.pace(ctx); err != nil {
		return nil, err
	}

	result := &apiPage{}
	resp, err := s.client.http.R().
		SetContext(ctx).
		SetHeader("X-API-Key", s.apiKey).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"category": category,
			"page":     strconv.Itoa(page),
			"pageSize": strconv.Itoa(apiPageSize),
		}).
		SetResult(result).
		Get(s.apiURL + "/products")
	if err != nil {
		return nil, fmt.Errorf("plantmark api: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("plantmark api: category %s page %d: status %d", category, page, resp.StatusCode())
	}
	return result, nil
}

// toScraped maps an API product; products without a URL get one under
// their category so the category can still be derived
func (s *APISource) toScraped(p *apiProduct, category string) *models.ScrapedProduct {
	sourceID := p.SKU
	if sourceID == "" {
		sourceID = p.ID
	}
	productURL := p.URL
	if productURL == "" {
		productURL = fmt.Sprintf("%s/%s/%s", s.client.BaseURL(), category, catalog.Slugify(p.Name))
	}
	return &models.ScrapedProduct{
		SourceID:       sourceID,
		Name:           p.Name,
		URL:            productURL,
		Description:    p.Description,
		Price:          p.Price,
		Availability:   normalizeAvailability(p.Availability),
		Images:         p.Images,
		Specifications: p.Specifications,
		Variants:       p.Variants,
	}
}

// normalizeAvailability maps "in stock", "in-stock" and "IN_STOCK" alike.
// Unknown values pass through and are rejected by validation.
func normalizeAvailability(v string) models.Availability {
	if v == "" {
		return ""
	}
	norm := strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_").Replace(strings.TrimSpace(v)))
	if norm == "PREORDER" {
		norm = string(models.AvailabilityPreOrder)
	}
	return models.Availability(norm)
}
