package site

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus represents product availability
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// IsValid checks if the stock status is valid
func (s StockStatus) IsValid() bool {
	return s == StockStatusInStock || s == StockStatusOutOfStock
}

// Product is one catalog entry. ID doubles as its shard key.
type Product struct {
	ID                string          `json:"id" validate:"required,shardkey"`
	SKU               string          `json:"sku"`
	CategoryID        string          `json:"categoryId"`
	SubcategoryID     string          `json:"subcategoryId"`
	Name              LocalizedText   `json:"name"`
	Description       LocalizedText   `json:"description"`
	Features          LocalizedList   `json:"features"`
	Specs             []Spec          `json:"specs"`
	Price             Price           `json:"price"`
	Images            []string        `json:"images"`
	MainImage         string          `json:"mainImage"`
	Certifications    []string        `json:"certifications"`
	StockStatus       StockStatus     `json:"stockStatus" validate:"oneof=in_stock out_of_stock"`
	LeadTime          LocalizedText   `json:"leadTime"`
	SEO               *PageSEO        `json:"seo,omitempty"`
	TranslationStatus map[string]bool `json:"translationStatus"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Spec is one row of the technical specification table
type Spec struct {
	Key   LocalizedText `json:"key"`
	Value LocalizedText `json:"value"`
}

// Price is the list price per unit with a minimum order quantity
type Price struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"omitempty,len=3"`
	Unit     LocalizedText   `json:"unit"`
	MOQ      int             `json:"moq" validate:"gte=0"`
}

// Normalize fills locale keys, replaces nil collections and repairs the main image.
// An empty image list stays empty.
func (p *Product) Normalize(locales []string) {
	p.Name = p.Name.withLocales(locales)
	p.Description = p.Description.withLocales(locales)
	p.LeadTime = p.LeadTime.withLocales(locales)
	p.Features = p.Features.withLocales(locales)
	p.Price.Unit = p.Price.Unit.withLocales(locales)
	if p.Price.Currency == "" {
		p.Price.Currency = "USD"
	}
	p.Price.Currency = strings.ToUpper(p.Price.Currency)
	if p.Specs == nil {
		p.Specs = []Spec{}
	}
	for i := range p.Specs {
		p.Specs[i].Key = p.Specs[i].Key.withLocales(locales)
		p.Specs[i].Value = p.Specs[i].Value.withLocales(locales)
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Certifications == nil {
		p.Certifications = []string{}
	}
	if len(p.Images) > 0 && !slices.Contains(p.Images, p.MainImage) {
		p.MainImage = p.Images[0]
	}
	if p.StockStatus == "" {
		p.StockStatus = StockStatusInStock
	}
	if p.SEO != nil {
		p.SEO.normalize(locales)
	}
	if p.TranslationStatus == nil {
		p.TranslationStatus = make(map[string]bool, len(locales))
	}
	for _, l := range locales {
		p.TranslationStatus[l] = p.Name.Complete(l) && p.Description.Complete(l)
	}
}

// Touch stamps the modification time, and the creation time on first save
func (p *Product) Touch(now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// KeepOrTouch keeps supplied timestamps and stamps now only when either is missing
func (p *Product) KeepOrTouch(now time.Time) {
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		p.Touch(now)
	}
}

// Clone returns a deep copy of p
func (p Product) Clone() Product {
	p.Name = p.Name.Clone()
	p.Description = p.Description.Clone()
	p.Features = p.Features.Clone()
	p.Specs = cloneSlice(p.Specs, func(s Spec) Spec {
		return Spec{Key: s.Key.Clone(), Value: s.Value.Clone()}
	})
	p.Price.Unit = p.Price.Unit.Clone()
	p.Images = slices.Clone(p.Images)
	p.Certifications = slices.Clone(p.Certifications)
	p.LeadTime = p.LeadTime.Clone()
	if p.SEO != nil {
		seo := p.SEO.clone()
		p.SEO = &seo
	}
	p.TranslationStatus = maps.Clone(p.TranslationStatus)
	return p
}

// IndexOfProduct returns the position of id in products, or -1
func IndexOfProduct(products []Product, id string) int {
	return slices.IndexFunc(products, func(p Product) bool { return p.ID == id })
}

// UpsertProduct returns a new list where p replaces the entry with the same id in place,
// or is prepended when the id is new. The input slice is not modified.
func UpsertProduct(products []Product, p Product) []Product {
	if i := IndexOfProduct(products, p.ID); i >= 0 {
		out := slices.Clone(products)
		out[i] = p
		return out
	}
	out := make([]Product, 0, len(products)+1)
	out = append(out, p)
	return append(out, products...)
}

// RemoveProduct returns a new list without id, keeping the relative order of the rest
func RemoveProduct(products []Product, id string) ([]Product, bool) {
	i := IndexOfProduct(products, id)
	if i < 0 {
		return products, false
	}
	out := make([]Product, 0, len(products)-1)
	out = append(out, products[:i]...)
	return append(out, products[i+1:]...), true
}

// UpsertID is the index counterpart of UpsertProduct: existing ids keep their position and new
// ids are prepended.
func UpsertID(ids []string, id string) ([]string, bool) {
	if slices.Contains(ids, id) {
		return ids, false
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, id)
	return append(out, ids...), true
}

// RemoveID returns ids without id
func RemoveID(ids []string, id string) ([]string, bool) {
	i := slices.Index(ids, id)
	if i < 0 {
		return ids, false
	}
	out := make([]string, 0, len(ids)-1)
	out = append(out, ids[:i]...)
	return append(out, ids[i+1:]...), true
}

// DeleteProduct removes a product and its featured entry from the document
func (d *Document) DeleteProduct(id string) bool {
	products, ok := RemoveProduct(d.Products, id)
	if !ok {
		return false
	}
	d.Products = products
	d.FeaturedProducts, _ = RemoveID(d.FeaturedProducts, id)
	return true
}

// ProductIDs returns the ids of products in order
func ProductIDs(products []Product) []string {
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}
