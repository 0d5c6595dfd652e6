package catalog

import (
	"errors"

	"github.com/shopspring/decimal"

	"credential-storefront/services/storefront-api/internal/inventory"
)

var ErrProductNotFound = errors.New("catalog: product not found")

type Product struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Type          inventory.ProductType `json:"type"`
	Price         decimal.Decimal       `json:"price"`
	OriginalPrice decimal.Decimal       `json:"original_price"`
	Features      []string              `json:"features"`
	Rating        float64               `json:"rating"`
	Badge         string                `json:"badge,omitempty"`
}

type Catalog struct {
	products []Product
	byID     map[string]int
}

func New(products ...Product) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(products))}
	for _, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			continue
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c
}

// Default is the storefront's shelf. Stock levels are not part of it; they
// come from the inventory store.
func Default() *Catalog {
	return New(Product{
		ID:            "p1",
		Name:          "Perfil Facebook Aquecido",
		Description:   "Perfil com alta resistência, aquecido com atividade real e pronto para subir campanhas.",
		Type:          inventory.TypeFacebook,
		Price:         decimal.RequireFromString("70.00"),
		OriginalPrice: decimal.RequireFromString("110.00"),
		Features:      []string{"Marketplace Ativo", "Identidade Confirmada", "Cookies + 2FA", "Pronto para Anunciar"},
		Rating:        5.0,
		Badge:         "Alta Resistência",
	})
}

func (c *Catalog) List() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Get(id string) (Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return c.products[i], nil
}
