package site

import "slices"

// Document is the whole site: configuration, marketing sections and the product catalog.
// It is persisted as independent shards, one per section plus one per product.
type Document struct {
	Locales          LocaleConfig       `json:"locales"`
	Settings         Settings           `json:"settings"`
	Hero             Hero               `json:"hero"`
	Advantages       []Advantage        `json:"advantages" validate:"dive"`
	Partners         []Partner          `json:"partners" validate:"dive"`
	TradeRegions     []TradeRegion      `json:"tradeRegions" validate:"dive"`
	Categories       []Category         `json:"categories" validate:"dive"`
	FeaturedProducts []string           `json:"featuredProducts" validate:"dive,shardkey"`
	Products         []Product          `json:"products" validate:"dive"`
	About            About              `json:"about"`
	Contact          Contact            `json:"contact"`
	SEO              map[string]PageSEO `json:"seo"`
}

// PageSEO holds the meta tags of one page
type PageSEO struct {
	Title       LocalizedText `json:"title"`
	Description LocalizedText `json:"description"`
	Keywords    LocalizedText `json:"keywords"`
}

// Settings holds site-wide branding
type Settings struct {
	Name          LocalizedText `json:"name"`
	Tagline       LocalizedText `json:"tagline"`
	Logo          string        `json:"logo"`
	Favicon       string        `json:"favicon"`
	AdminPassword string        `json:"adminPassword"`
	SEO           PageSEO       `json:"seo"`
}

// Hero is the landing page banner
type Hero struct {
	Title           LocalizedText `json:"title"`
	Subtitle        LocalizedText `json:"subtitle"`
	BackgroundImage string        `json:"backgroundImage"`
	CTAText         LocalizedText `json:"ctaText"`
	CTALink         string        `json:"ctaLink"`
}

type Advantage struct {
	ID          string        `json:"id" validate:"required"`
	Icon        string        `json:"icon"`
	Title       LocalizedText `json:"title"`
	Description LocalizedText `json:"description"`
}

type Partner struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
	Logo string `json:"logo"`
	URL  string `json:"url" validate:"omitempty,url"`
}

type TradeRegion struct {
	ID          string        `json:"id" validate:"required"`
	Name        LocalizedText `json:"name"`
	Countries   []string      `json:"countries"`
	Description LocalizedText `json:"description"`
}

// Category is a node of the two level product taxonomy
type Category struct {
	ID            string        `json:"id" validate:"required,shardkey"`
	Name          LocalizedText `json:"name"`
	Description   LocalizedText `json:"description"`
	Image         string        `json:"image"`
	Subcategories []Subcategory `json:"subcategories" validate:"dive"`
}

type Subcategory struct {
	ID   string        `json:"id" validate:"required,shardkey"`
	Name LocalizedText `json:"name"`
}

type About struct {
	Title   LocalizedText `json:"title"`
	Content LocalizedText `json:"content"`
	Image   string        `json:"image"`
	Stats   []Stat        `json:"stats"`
}

type Stat struct {
	Label LocalizedText `json:"label"`
	Value string        `json:"value"`
}

type Contact struct {
	Address      LocalizedText `json:"address"`
	Phone        string        `json:"phone"`
	Email        string        `json:"email" validate:"omitempty,email"`
	WhatsApp     string        `json:"whatsapp"`
	WeChat       string        `json:"wechat"`
	WorkingHours LocalizedText `json:"workingHours"`
}

// Skeleton returns the empty document every stored section is decoded over.
// Each call returns fresh maps and slices.
func Skeleton() Document {
	d := Document{
		Locales: LocaleConfig{
			Supported: DefaultSupportedLocales(),
			Default:   LocaleEnglish,
		},
	}
	d.Normalize()
	return d
}

// Normalize brings the document to its canonical shape: canonical locale codes, a key for
// every supported locale in every localized field, non-nil collections and a valid main
// image on every product. It is idempotent.
func (d *Document) Normalize() {
	d.Locales.normalize()
	locales := d.Locales.Supported

	d.Settings.normalize(locales)
	d.Hero.normalize(locales)
	d.About.normalize(locales)
	d.Contact.normalize(locales)

	if d.Advantages == nil {
		d.Advantages = []Advantage{}
	}
	for i := range d.Advantages {
		d.Advantages[i].Title = d.Advantages[i].Title.withLocales(locales)
		d.Advantages[i].Description = d.Advantages[i].Description.withLocales(locales)
	}
	if d.Partners == nil {
		d.Partners = []Partner{}
	}
	if d.TradeRegions == nil {
		d.TradeRegions = []TradeRegion{}
	}
	for i := range d.TradeRegions {
		r := &d.TradeRegions[i]
		r.Name = r.Name.withLocales(locales)
		r.Description = r.Description.withLocales(locales)
		if r.Countries == nil {
			r.Countries = []string{}
		}
	}
	if d.Categories == nil {
		d.Categories = []Category{}
	}
	for i := range d.Categories {
		d.Categories[i].normalize(locales)
	}
	if d.FeaturedProducts == nil {
		d.FeaturedProducts = []string{}
	}
	if d.Products == nil {
		d.Products = []Product{}
	}
	for i := range d.Products {
		d.Products[i].Normalize(locales)
	}
	if d.SEO == nil {
		d.SEO = map[string]PageSEO{}
	}
	for page, seo := range d.SEO {
		seo.normalize(locales)
		d.SEO[page] = seo
	}
}

func (p *PageSEO) normalize(locales []string) {
	p.Title = p.Title.withLocales(locales)
	p.Description = p.Description.withLocales(locales)
	p.Keywords = p.Keywords.withLocales(locales)
}

func (s *Settings) normalize(locales []string) {
	s.Name = s.Name.withLocales(locales)
	s.Tagline = s.Tagline.withLocales(locales)
	s.SEO.normalize(locales)
}

func (h *Hero) normalize(locales []string) {
	h.Title = h.Title.withLocales(locales)
	h.Subtitle = h.Subtitle.withLocales(locales)
	h.CTAText = h.CTAText.withLocales(locales)
}

func (a *About) normalize(locales []string) {
	a.Title = a.Title.withLocales(locales)
	a.Content = a.Content.withLocales(locales)
	if a.Stats == nil {
		a.Stats = []Stat{}
	}
	for i := range a.Stats {
		a.Stats[i].Label = a.Stats[i].Label.withLocales(locales)
	}
}

func (c *Contact) normalize(locales []string) {
	c.Address = c.Address.withLocales(locales)
	c.WorkingHours = c.WorkingHours.withLocales(locales)
}

func (c *Category) normalize(locales []string) {
	c.Name = c.Name.withLocales(locales)
	c.Description = c.Description.withLocales(locales)
	if c.Subcategories == nil {
		c.Subcategories = []Subcategory{}
	}
	for i := range c.Subcategories {
		c.Subcategories[i].Name = c.Subcategories[i].Name.withLocales(locales)
	}
}

// IsEmpty reports whether the document holds no real content yet: the site name and the hero
// title are blank in every locale and there are no products. Other populated sections do not
// change the outcome.
func (d *Document) IsEmpty() bool {
	return d.Settings.Name.IsBlank() && d.Hero.Title.IsBlank() && len(d.Products) == 0
}

// Product returns the product with id, if present
func (d *Document) Product(id string) (Product, bool) {
	i := IndexOfProduct(d.Products, id)
	if i < 0 {
		return Product{}, false
	}
	return d.Products[i], true
}

// Clone returns a deep copy of d
func (d Document) Clone() Document {
	out := d
	out.Locales.Supported = slices.Clone(d.Locales.Supported)
	out.Settings = d.Settings.clone()
	out.Hero = Hero{
		Title:           d.Hero.Title.Clone(),
		Subtitle:        d.Hero.Subtitle.Clone(),
		BackgroundImage: d.Hero.BackgroundImage,
		CTAText:         d.Hero.CTAText.Clone(),
		CTALink:         d.Hero.CTALink,
	}
	out.Advantages = cloneSlice(d.Advantages, func(a Advantage) Advantage {
		a.Title = a.Title.Clone()
		a.Description = a.Description.Clone()
		return a
	})
	out.Partners = slices.Clone(d.Partners)
	out.TradeRegions = cloneSlice(d.TradeRegions, func(r TradeRegion) TradeRegion {
		r.Name = r.Name.Clone()
		r.Description = r.Description.Clone()
		r.Countries = slices.Clone(r.Countries)
		return r
	})
	out.Categories = cloneSlice(d.Categories, func(c Category) Category {
		c.Name = c.Name.Clone()
		c.Description = c.Description.Clone()
		c.Subcategories = cloneSlice(c.Subcategories, func(s Subcategory) Subcategory {
			s.Name = s.Name.Clone()
			return s
		})
		return c
	})
	out.FeaturedProducts = slices.Clone(d.FeaturedProducts)
	out.Products = cloneSlice(d.Products, Product.Clone)
	out.About = About{
		Title:   d.About.Title.Clone(),
		Content: d.About.Content.Clone(),
		Image:   d.About.Image,
		Stats: cloneSlice(d.About.Stats, func(s Stat) Stat {
			s.Label = s.Label.Clone()
			return s
		}),
	}
	out.Contact = d.Contact
	out.Contact.Address = d.Contact.Address.Clone()
	out.Contact.WorkingHours = d.Contact.WorkingHours.Clone()
	if d.SEO != nil {
		out.SEO = make(map[string]PageSEO, len(d.SEO))
		for k, v := range d.SEO {
			out.SEO[k] = v.clone()
		}
	}
	return out
}

func (p PageSEO) clone() PageSEO {
	return PageSEO{
		Title:       p.Title.Clone(),
		Description: p.Description.Clone(),
		Keywords:    p.Keywords.Clone(),
	}
}

func (s Settings) clone() Settings {
	s.Name = s.Name.Clone()
	s.Tagline = s.Tagline.Clone()
	s.SEO = s.SEO.clone()
	return s
}

func cloneSlice[T any](in []T, fn func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
