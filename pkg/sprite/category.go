package sprite

// Category is a semantic slot that layers are grouped under.
type Category struct {
	Name     string `json:"name" toml:"name"`
	Nullable bool   `json:"nullable" toml:"nullable"`
}

// DefaultCategories is the category table used when a project declares none.
// Declaration order is significant: it is the order randomize visits slots.
var DefaultCategories = []Category{
	{Name: "base"},
	{Name: "torsos"},
	{Name: "feet"},
	{Name: "hands"},
	{Name: "heads"},
	{Name: "eyes"},
	{Name: "hairs", Nullable: true},
	{Name: "hats", Nullable: true},
}

// FindCategory returns the category named name, or false.
func FindCategory(categories []Category, name string) (Category, bool) {
	for _, c := range categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryNames returns the names of categories in declaration order.
func CategoryNames(categories []Category) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return names
}
