// Package catalog classifies collectible items into reward categories.
//
// The item_types table is the source of truth. It is seeded from a YAML file; names not
// in the table yet fall back to a keyword vocabulary. A pickup item's category is resolved
// once, when the pickup is created.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ecohood/points-ledger/internal/models"
)

// File is the layout of the catalog seed file.
type File struct {
	Items []Item `yaml:"items"`
}

// Item is one entry in the seed file.
type Item struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Unit     string `yaml:"unit"`
}

// Load reads and validates a catalog seed file.
func Load(path string) ([]models.ItemType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes catalog YAML into item types.
func Parse(data []byte) ([]models.ItemType, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	seen := make(map[string]bool, len(file.Items))
	items := make([]models.ItemType, 0, len(file.Items))
	for i, item := range file.Items {
		name := Normalize(item.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog item %d: name is required", i)
		}
		if !ValidCategory(item.Category) {
			return nil, fmt.Errorf("catalog item %q: unknown category %q", item.Name, item.Category)
		}
		if seen[name] {
			return nil, fmt.Errorf("catalog item %q: duplicate name", item.Name)
		}
		seen[name] = true

		unit := item.Unit
		if unit == "" {
			unit = "kg"
		}
		items = append(items, models.ItemType{Name: name, Category: item.Category, Unit: unit})
	}
	return items, nil
}

// Normalize folds an item name for catalog lookups.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c string) bool {
	switch c {
	case models.CategoryRecyclable, models.CategoryOrganic, models.CategoryGeneral:
		return true
	}
	return false
}

var keywords = []struct {
	category string
	words    []string
}{
	{models.CategoryRecyclable, []string{
		"plastic", "paper", "cardboard", "glass", "metal", "aluminum", "aluminium", "cans",
		"bottle", "e-waste", "electronic",
		"بلاستيك", "ورق", "كرتون", "زجاج", "معدن", "ألمنيوم", "إلكترونيات",
	}},
	{models.CategoryOrganic, []string{
		"organic", "food", "compost", "garden", "green waste",
		"عضوي", "طعام", "سماد",
	}},
}

// Classify maps an item name to a category by keyword. Unknown names are general waste.
func Classify(name string) string {
	n := Normalize(name)
	for _, group := range keywords {
		for _, w := range group.words {
			if strings.Contains(n, w) {
				return group.category
			}
		}
	}
	return models.CategoryGeneral
}

// Lookup finds item types by normalized name. A nil result means unknown.
type Lookup interface {
	GetByName(name string) (*models.ItemType, error)
}

// Resolver resolves item categories against the catalog table.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a resolver.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the category of an item name.
func (r *Resolver) Resolve(name string) (string, error) {
	item, err := r.lookup.GetByName(Normalize(name))
	if err != nil {
		return "", err
	}
	if item != nil {
		return item.Category, nil
	}
	return Classify(name), nil
}
