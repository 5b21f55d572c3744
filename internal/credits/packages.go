package credits

import "github.com/shopspring/decimal"

// Package is a purchasable credit bundle. Total is what the account is
// credited with; Price is charged in CNY.
type Package struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Credits int             `json:"credits"`
	Bonus   int             `json:"bonus"`
	Price   decimal.Decimal `json:"price"`
}

// Total returns purchased credits plus bonus credits.
func (p Package) Total() int {
	return p.Credits + p.Bonus
}

var packageCatalog = []Package{
	{ID: "basic", Name: "Basic", Credits: 10, Bonus: 0, Price: decimal.RequireFromString("9.9")},
	{ID: "standard", Name: "Standard", Credits: 50, Bonus: 5, Price: decimal.RequireFromString("49")},
	{ID: "pro", Name: "Pro", Credits: 100, Bonus: 15, Price: decimal.RequireFromString("89")},
	{ID: "enterprise", Name: "Enterprise", Credits: 500, Bonus: 100, Price: decimal.RequireFromString("399")},
}

// Packages returns the purchasable bundles in display order.
func Packages() []Package {
	out := make([]Package, len(packageCatalog))
	copy(out, packageCatalog)
	return out
}

// PackageByID resolves a bundle by its identifier.
func PackageByID(id string) (Package, bool) {
	for _, p := range packageCatalog {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}
