package site

import (
	"encoding/json"
	"fmt"

	"github.com/catalogsite/backend/internal/domain/shared"
)

// Section names a top-level slice of the document that can be replaced on its own
type Section string

const (
	SectionLocales          Section = "locales"
	SectionDefaultLocale    Section = "defaultLocale"
	SectionSettings         Section = "settings"
	SectionHero             Section = "hero"
	SectionAdvantages       Section = "advantages"
	SectionPartners         Section = "partners"
	SectionTradeRegions     Section = "tradeRegions"
	SectionCategories       Section = "categories"
	SectionFeaturedProducts Section = "featuredProducts"
	SectionAbout            Section = "about"
	SectionContact          Section = "contact"
	SectionSEO              Section = "seo"
)

var sections = []Section{
	SectionLocales,
	SectionDefaultLocale,
	SectionSettings,
	SectionHero,
	SectionAdvantages,
	SectionPartners,
	SectionTradeRegions,
	SectionCategories,
	SectionFeaturedProducts,
	SectionAbout,
	SectionContact,
	SectionSEO,
}

// Sections returns the allow-list of patchable sections
func Sections() []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}

// ParseSection validates name against the allow-list
func ParseSection(name string) (Section, error) {
	for _, s := range sections {
		if string(s) == name {
			return s, nil
		}
	}
	return "", shared.ErrInvalidSection.WithMessage(fmt.Sprintf("unknown section %q", name))
}

func (s Section) String() string {
	return string(s)
}

func (d *Document) sectionPtr(s Section) any {
	switch s {
	case SectionLocales:
		return &d.Locales
	case SectionDefaultLocale:
		return &d.Locales.Default
	case SectionSettings:
		return &d.Settings
	case SectionHero:
		return &d.Hero
	case SectionAdvantages:
		return &d.Advantages
	case SectionPartners:
		return &d.Partners
	case SectionTradeRegions:
		return &d.TradeRegions
	case SectionCategories:
		return &d.Categories
	case SectionFeaturedProducts:
		return &d.FeaturedProducts
	case SectionAbout:
		return &d.About
	case SectionContact:
		return &d.Contact
	case SectionSEO:
		return &d.SEO
	}
	return nil
}

// DecodeSection decodes data over the current value of section s. Keys missing from data keep
// their current values, which is how stored sections are merged over the skeleton.
func (d *Document) DecodeSection(s Section, data []byte) error {
	ptr := d.sectionPtr(s)
	if ptr == nil {
		return shared.ErrInvalidSection.WithMessage(fmt.Sprintf("unknown section %q", s))
	}
	if err := json.Unmarshal(data, ptr); err != nil {
		return shared.ErrValidation.WithMessage(fmt.Sprintf("section %s: %v", s, err)).WithCause(err)
	}
	return nil
}

// EncodeSection returns the JSON form of section s
func (d *Document) EncodeSection(s Section) ([]byte, error) {
	ptr := d.sectionPtr(s)
	if ptr == nil {
		return nil, shared.ErrInvalidSection.WithMessage(fmt.Sprintf("unknown section %q", s))
	}
	return json.Marshal(ptr)
}

// SectionValue returns the current value of section s
func (d *Document) SectionValue(s Section) any {
	switch ptr := d.sectionPtr(s).(type) {
	case *LocaleConfig:
		return *ptr
	case *string:
		return *ptr
	case *Settings:
		return *ptr
	case *Hero:
		return *ptr
	case *[]Advantage:
		return *ptr
	case *[]Partner:
		return *ptr
	case *[]TradeRegion:
		return *ptr
	case *[]Category:
		return *ptr
	case *[]string:
		return *ptr
	case *About:
		return *ptr
	case *Contact:
		return *ptr
	case *map[string]PageSEO:
		return *ptr
	}
	return nil
}
