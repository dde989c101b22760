package site

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/catalogsite/backend/internal/domain/shared"
)

var (
	localizedTextType = reflect.TypeOf(LocalizedText{})
	localizedListType = reflect.TypeOf(LocalizedList{})
)

// UpgradeLegacy reads a document exported by any earlier version of the site and returns it in
// the current shape, normalized but not validated. It accepts:
//   - plain strings where localized text is expected (assigned to the default locale)
//   - top-level supportedLocales/defaultLocale instead of a locales object
//   - a JSON-encoded defaultLocale ("\"zh\"")
//   - products with a scalar price, an inStock flag, a single image or a category key
//
// Unknown keys are dropped.
func UpgradeLegacy(raw []byte) (Document, error) {
	var root map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		return Document{}, shared.ErrValidation.WithMessage("document is not a JSON object").WithCause(err)
	}
	if root == nil {
		return Document{}, shared.ErrValidation.WithMessage("document is empty")
	}

	upgradeLocales(root)
	defLocale := LocaleEnglish
	if locales, ok := root["locales"].(map[string]any); ok {
		if s, ok := locales["default"].(string); ok && s != "" {
			defLocale = s
		}
	}
	if products, ok := root["products"].([]any); ok {
		for _, p := range products {
			if m, ok := p.(map[string]any); ok {
				upgradeProduct(m)
			}
		}
	}
	upgraded := upgradeValue(reflect.TypeOf(Document{}), root, defLocale)

	data, err := json.Marshal(upgraded)
	if err != nil {
		return Document{}, fmt.Errorf("re-encode legacy document: %w", err)
	}
	doc := Skeleton()
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, shared.ErrValidation.WithMessage("document does not match the site schema").WithCause(err)
	}
	doc.Normalize()
	return doc, nil
}

func upgradeLocales(root map[string]any) {
	locales, _ := root["locales"].(map[string]any)
	if locales == nil {
		locales = map[string]any{}
	}
	if v, ok := root["supportedLocales"]; ok {
		if _, set := locales["supported"]; !set {
			locales["supported"] = v
		}
		delete(root, "supportedLocales")
	}
	if v, ok := root["defaultLocale"]; ok {
		if _, set := locales["default"]; !set {
			locales["default"] = v
		}
		delete(root, "defaultLocale")
	}
	if s, ok := locales["default"].(string); ok {
		locales["default"] = UnwrapScalar(s)
	}
	if len(locales) > 0 {
		root["locales"] = locales
	}
}

func upgradeProduct(p map[string]any) {
	switch v := p["price"].(type) {
	case json.Number, string:
		p["price"] = map[string]any{"amount": v}
	}
	if v, ok := p["inStock"].(bool); ok {
		if _, set := p["stockStatus"]; !set {
			if v {
				p["stockStatus"] = string(StockStatusInStock)
			} else {
				p["stockStatus"] = string(StockStatusOutOfStock)
			}
		}
		delete(p, "inStock")
	}
	if v, ok := p["image"].(string); ok {
		if _, set := p["images"]; !set && v != "" {
			p["images"] = []any{v}
		}
		delete(p, "image")
	}
	if v, ok := p["category"].(string); ok {
		if _, set := p["categoryId"]; !set {
			p["categoryId"] = v
		}
		delete(p, "category")
	}
}

// upgradeValue walks v alongside the Go type t and wraps bare strings into localized maps
func upgradeValue(t reflect.Type, v any, defLocale string) any {
	switch t {
	case localizedTextType:
		if s, ok := v.(string); ok {
			return map[string]any{defLocale: s}
		}
		return v
	case localizedListType:
		switch x := v.(type) {
		case []any:
			return map[string]any{defLocale: x}
		case string:
			return map[string]any{defLocale: []any{x}}
		}
		return v
	}

	switch t.Kind() {
	case reflect.Pointer:
		return upgradeValue(t.Elem(), v, defLocale)
	case reflect.Struct:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				continue
			}
			if fv, ok := m[name]; ok {
				m[name] = upgradeValue(f.Type, fv, defLocale)
			}
		}
		return m
	case reflect.Slice:
		arr, ok := v.([]any)
		if !ok {
			return v
		}
		for i := range arr {
			arr[i] = upgradeValue(t.Elem(), arr[i], defLocale)
		}
		return arr
	case reflect.Map:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		for k, mv := range m {
			m[k] = upgradeValue(t.Elem(), mv, defLocale)
		}
		return m
	}
	return v
}

// UnwrapScalar removes any number of JSON string encodings around a scalar value:
// "zh", "\"zh\"" and "\"\\\"zh\\\"\"" all yield zh.
func UnwrapScalar(s string) string {
	for {
		t := strings.TrimSpace(s)
		if len(t) < 2 || t[0] != '"' || t[len(t)-1] != '"' {
			return t
		}
		var inner string
		if err := json.Unmarshal([]byte(t), &inner); err != nil {
			return t
		}
		s = inner
	}
}
