package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CategoryKind distinguishes the two shapes the upstream API uses for a
// product's category: a bare name string or a structured object.
type CategoryKind string

const (
	CategoryKindNamed      CategoryKind = "named"
	CategoryKindStructured CategoryKind = "structured"
)

// Category is the resolved form of the upstream string-or-object category
// field. The union is decoded once at the ingestion boundary; everything
// downstream works with this struct.
type Category struct {
	Kind        CategoryKind `json:"kind"`
	ID          string       `json:"id,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Image       string       `json:"image,omitempty"`
	IsActive    bool         `json:"is_active,omitempty"`
}

// NamedCategory builds the plain-name variant.
func NamedCategory(name string) Category {
	return Category{Kind: CategoryKindNamed, Name: strings.TrimSpace(name)}
}

// UnmarshalJSON accepts either a JSON string or a structured category object.
func (c *Category) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*c = Category{}
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return fmt.Errorf("decoding category name: %w", err)
		}
		*c = NamedCategory(name)
		return nil
	}

	var structured struct {
		ID          string          `json:"id"`
		CategoryID  json.RawMessage `json:"categoryId"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Image       string          `json:"image"`
		IsActive    *bool           `json:"isActive"`
	}
	if err := json.Unmarshal(data, &structured); err != nil {
		return fmt.Errorf("decoding category object: %w", err)
	}

	id := structured.ID
	if id == "" && len(structured.CategoryID) > 0 {
		// The bouquet API numbers its categories; normalize to a string id.
		id = strings.Trim(string(structured.CategoryID), `"`)
	}

	active := true
	if structured.IsActive != nil {
		active = *structured.IsActive
	}

	*c = Category{
		Kind:        CategoryKindStructured,
		ID:          id,
		Name:        structured.Name,
		Description: structured.Description,
		Image:       structured.Image,
		IsActive:    active,
	}
	return nil
}

// Label returns the display name regardless of variant.
func (c Category) Label() string {
	return c.Name
}

func (c Category) IsZero() bool {
	return c.Kind == "" && c.Name == ""
}
