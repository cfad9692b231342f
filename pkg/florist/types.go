package florist

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yourflorist/storefront/pkg/types"
)

// ID tolerates the upstream API's habit of sending identifiers as either
// JSON numbers or strings.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Product is a catalog entry as served by the florist API. It is read-only
// for the storefront except for the price override a customized bouquet
// carries into the cart.
type Product struct {
	ID           ID              `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	Category     types.Category  `json:"category"`
	InStock      bool            `json:"inStock"`
	Quantity     int             `json:"quantity"`
	Tags         []string        `json:"tags,omitempty"`
	IsActive     *bool           `json:"isActive,omitempty"`
	Compositions []Composition   `json:"compositions,omitempty"`
}

// ImageRef prefers the product image and falls back to the bouquet field.
func (p Product) ImageRef() string {
	if p.Image != "" {
		return p.Image
	}
	return p.ImageURL
}

// Flower is a single stem referenced by bouquet compositions.
type Flower struct {
	ID       ID              `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl,omitempty"`
	IsActive *bool           `json:"isActive,omitempty"`
}

// Composition is one flower's configurable quantity slot within a bouquet
// template.
type Composition struct {
	ID          ID   `json:"id"`
	FlowerID    ID   `json:"flowerId"`
	MinQuantity int  `json:"minQuantity"`
	MaxQuantity int  `json:"maxQuantity"`
	Quantity    int  `json:"quantity"`
	IsActive    bool `json:"isActive"`
}

// Bouquet is the detailed bouquet payload from /bouquets/{id}.
type Bouquet struct {
	ID           ID              `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     string          `json:"imageUrl"`
	IsActive     bool            `json:"isActive"`
	Compositions []Composition   `json:"compositions"`
	Category     types.Category  `json:"category"`
}

// Promotion is a named discount percentage applied to a cart's goods
// subtotal.
type Promotion struct {
	ID                 ID      `json:"id"`
	Code               string  `json:"code"`
	DiscountPercentage float64 `json:"discountPercentage"`
	ValidFrom          string  `json:"validFrom,omitempty"`
	ValidTo            string  `json:"validTo,omitempty"`
	IsActive           *bool   `json:"isActive,omitempty"`
}

// Active reports whether the promotion is usable; a missing flag counts as
// active, matching the upstream lookup endpoint.
func (p Promotion) Active() bool {
	return p.IsActive == nil || *p.IsActive
}

// User is the authenticated shopper profile.
type User struct {
	ID            ID     `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	Phone         string `json:"phone,omitempty"`
	Gender        string `json:"gender,omitempty"`
	LoyaltyPoints int    `json:"loyaltyPoints,omitempty"`
	Role          string `json:"role,omitempty"`
}

// UnmarshalJSON flattens the upstream's string-or-object address into a
// single display string at the ingestion boundary.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var raw struct {
		alias
		Address json.RawMessage `json:"address"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw.alias)
	u.Address = flattenAddress(raw.Address)
	return nil
}

func flattenAddress(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	var structured struct {
		Street  string `json:"street"`
		City    string `json:"city"`
		State   string `json:"state"`
		ZipCode string `json:"zipCode"`
		Country string `json:"country"`
	}
	if err := json.Unmarshal(raw, &structured); err != nil {
		return ""
	}
	parts := []string{}
	for _, part := range []string{structured.Street, structured.City, structured.State, structured.ZipCode, structured.Country} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Gender   string `json:"gender"`
}

// ProfileUpdate carries the mutable profile fields.
type ProfileUpdate struct {
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Gender  string `json:"gender,omitempty"`
}

// OrderItemInput is one cart line in an order payload. The upstream order
// service expects numeric ids and a precomputed line subtotal.
type OrderItemInput struct {
	BouquetID           json.Number    `json:"bouquetId"`
	Quantity            int            `json:"quantity"`
	SubTotal            float64        `json:"subTotal"`
	IsActive            bool           `json:"isActive"`
	OrderBouquetFlowers []OrderBouquet `json:"orderBouquetFlowers"`
}

// OrderBouquet is a per-flower override line inside an order item. The
// storefront always submits an empty slice; the field exists to satisfy the
// upstream contract.
type OrderBouquet struct {
	FlowerID json.Number `json:"flowerId"`
	Quantity int         `json:"quantity"`
}

// OrderInput is the payload the checkout flow submits upstream.
type OrderInput struct {
	UserID          json.Number      `json:"userId"`
	PromotionID     *json.Number     `json:"promotionId"`
	TotalPrice      float64          `json:"totalPrice"`
	ShippingAddress string           `json:"shippingAddress"`
	CreatedAt       string           `json:"createdAt"`
	OrderItems      []OrderItemInput `json:"orderItems"`
}

// Order is an order-history entry.
type Order struct {
	ID              ID              `json:"id"`
	UserID          ID              `json:"userId"`
	Items           []OrderItem     `json:"items,omitempty"`
	Total           decimal.Decimal `json:"total"`
	Status          string          `json:"status"`
	CreatedAt       string          `json:"createdAt"`
	ShippingAddress string          `json:"shippingAddress,omitempty"`
}

// OrderItem is one line inside an order-history entry.
type OrderItem struct {
	ID        ID               `json:"id"`
	BouquetID ID               `json:"bouquetId"`
	Quantity  int              `json:"quantity"`
	SubTotal  *decimal.Decimal `json:"subTotal,omitempty"`
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Success bool            `json:"success"`
}

type categoryPage struct {
	Content []types.Category `json:"content"`
}
