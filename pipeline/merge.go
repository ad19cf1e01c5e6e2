package pipeline

import (
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/parser"
)

// Merge concatenates page items in page order, keeps the first of any items sharing both
// identifier and title, and drops items that fail ValidateItem. Pages are kept as given.
func Merge(baseURL string, pages []*models.PageResult) *models.ScrapeResult {
	if pages == nil {
		pages = []*models.PageResult{}
	}
	result := &models.ScrapeResult{
		Success:     true,
		BaseURL:     baseURL,
		TotalPages:  len(pages),
		Pages:       pages,
		AllProducts: []*models.Item{},
	}

	seen := make(map[string]struct{})
	for _, page := range pages {
		result.RawProducts += page.ProductsCount
		for _, item := range page.Products {
			if item == nil {
				continue
			}
			// placeholder ids never collide; validation drops them below
			if !models.IsGeneratedID(item.SKU) {
				key := itemKey(item)
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
			}
			if parser.ValidateItem(item) != nil {
				continue
			}
			result.AllProducts = append(result.AllProducts, item)
		}
	}
	result.TotalProducts = len(result.AllProducts)
	return result
}

// FilterDiscounted returns the items that carry markdown information.
func FilterDiscounted(items []*models.Item) []*models.Item {
	out := make([]*models.Item, 0, len(items))
	for _, item := range items {
		if item != nil && item.IsDiscounted() {
			out = append(out, item)
		}
	}
	return out
}

func itemKey(item *models.Item) string {
	return item.SKU + "\x00" + item.Title
}
