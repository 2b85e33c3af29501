package models

import "github.com/google/uuid"

// Category is a named classification. Transactions reference it by Name only.
type Category struct {
	ID           uuid.UUID `yaml:"id" json:"id"`
	Name         string    `yaml:"name" json:"name"`
	IconName     string    `yaml:"icon_name" json:"icon_name"`
	DisplayOrder int       `yaml:"display_order" json:"display_order"`
}

// categoryNamespace seeds deterministic preset IDs so both process contexts
// agree on them without persisting categories.
var categoryNamespace = uuid.MustParse("5c3f0b5e-8f65-4d0e-9a55-2a0c5f7d4b11")

var presetDefs = []struct {
	name string
	icon string
}{
	{"食費", "fork.knife"},
	{"交通費", "car.fill"},
	{"娯楽", "gamecontroller.fill"},
	{"日用品", "cart.fill"},
	{"光熱費", "bolt.fill"},
	{"通信費", "phone.fill"},
	{"医療費", "cross.case.fill"},
	{"その他", "ellipsis.circle.fill"},
}

// PresetCategories returns the fixed category catalog in display order.
func PresetCategories() []Category {
	out := make([]Category, len(presetDefs))
	for i, def := range presetDefs {
		out[i] = Category{
			ID:           uuid.NewSHA1(categoryNamespace, []byte(def.name)),
			Name:         def.name,
			IconName:     def.icon,
			DisplayOrder: i,
		}
	}
	return out
}

// PresetCategoryNames returns the preset names in display order.
func PresetCategoryNames() []string {
	names := make([]string, len(presetDefs))
	for i, def := range presetDefs {
		names[i] = def.name
	}
	return names
}

// FindPreset looks up a preset by name. A miss is not an error anywhere in
// the ledger: category names are never enforced.
func FindPreset(name string) (Category, bool) {
	for _, c := range PresetCategories() {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}
