package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	// DefaultCurrency is used when a menu document omits its currency.
	DefaultCurrency = "USD"

	maxNameLength            = 255
	maxCategoryNameLength    = 100
	maxItemDescriptionLength = 1000
	maxCategoryDescLength    = 500
)

// ErrInvalidMenu is returned when a menu snapshot breaks a model invariant.
var ErrInvalidMenu = errors.New("invalid menu")

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// MenuItemOption is a priced modifier attached to an item.
type MenuItemOption struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	Price     decimal.Decimal `json:"price" yaml:"price"`
	Available bool            `json:"available" yaml:"available"`
}

// MenuItem is a single sellable dish or drink.
type MenuItem struct {
	ID              string           `json:"id" yaml:"id"`
	Name            string           `json:"name" yaml:"name"`
	Description     string           `json:"description,omitempty" yaml:"description,omitempty"`
	Price           decimal.Decimal  `json:"price" yaml:"price"`
	Category        string           `json:"category" yaml:"category"`
	Available       bool             `json:"available" yaml:"available"`
	Options         []MenuItemOption `json:"options" yaml:"options"`
	Images          []string         `json:"images" yaml:"images"`
	Tags            []string         `json:"tags" yaml:"tags"`
	NutritionalInfo map[string]any   `json:"nutritional_info,omitempty" yaml:"nutritional_info,omitempty"`
	CreatedAt       time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" yaml:"updated_at"`
}

// MenuCategory groups items for display.
type MenuCategory struct {
	ID           string     `json:"id" yaml:"id"`
	Name         string     `json:"name" yaml:"name"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	DisplayOrder int        `json:"display_order" yaml:"display_order"`
	Items        []MenuItem `json:"items" yaml:"items"`
	Active       bool       `json:"active" yaml:"active"`
}

// Menu is a full snapshot of a restaurant menu at fetch time.
type Menu struct {
	ID           string         `json:"id" yaml:"id"`
	RestaurantID string         `json:"restaurant_id" yaml:"restaurant_id"`
	Name         string         `json:"name" yaml:"name"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	Categories   []MenuCategory `json:"categories" yaml:"categories"`
	Currency     string         `json:"currency" yaml:"currency"`
	Active       bool           `json:"active" yaml:"active"`
	Version      int            `json:"version" yaml:"version"`
	CreatedAt    time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" yaml:"updated_at"`
}

// TotalItems counts items across all categories.
func (m *Menu) TotalItems() int {
	if m == nil {
		return 0
	}
	total := 0
	for _, category := range m.Categories {
		total += len(category.Items)
	}
	return total
}

// Items flattens items in category order.
func (m *Menu) Items() []MenuItem {
	if m == nil {
		return nil
	}
	items := make([]MenuItem, 0, m.TotalItems())
	for _, category := range m.Categories {
		items = append(items, category.Items...)
	}
	return items
}

// Normalize trims names, title-cases categories and rounds prices.
func (o *MenuItemOption) Normalize() {
	o.ID = strings.TrimSpace(o.ID)
	o.Name = strings.TrimSpace(o.Name)
	o.Price = o.Price.Round(2)
}

// Validate checks option invariants.
func (o MenuItemOption) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("%w: option id is empty", ErrInvalidMenu)
	}
	if o.Name == "" || utf8.RuneCountInString(o.Name) > maxNameLength {
		return fmt.Errorf("%w: option %s name must be 1-%d characters", ErrInvalidMenu, o.ID, maxNameLength)
	}
	if o.Price.IsNegative() {
		return fmt.Errorf("%w: option %s has negative price", ErrInvalidMenu, o.ID)
	}
	return nil
}

// Normalize trims names, title-cases categories and rounds prices.
func (i *MenuItem) Normalize() {
	i.ID = strings.TrimSpace(i.ID)
	i.Name = strings.TrimSpace(i.Name)
	i.Category = TitleCase(i.Category)
	i.Price = i.Price.Round(2)
	for idx := range i.Options {
		i.Options[idx].Normalize()
	}
	if i.Options == nil {
		i.Options = []MenuItemOption{}
	}
	if i.Images == nil {
		i.Images = []string{}
	}
	if i.Tags == nil {
		i.Tags = []string{}
	}
}

// Validate checks item invariants.
func (i MenuItem) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: item id is empty", ErrInvalidMenu)
	}
	if i.Name == "" || utf8.RuneCountInString(i.Name) > maxNameLength {
		return fmt.Errorf("%w: item %s name must be 1-%d characters", ErrInvalidMenu, i.ID, maxNameLength)
	}
	if utf8.RuneCountInString(i.Description) > maxItemDescriptionLength {
		return fmt.Errorf("%w: item %s description exceeds %d characters", ErrInvalidMenu, i.ID, maxItemDescriptionLength)
	}
	if i.Price.IsNegative() {
		return fmt.Errorf("%w: item %s has negative price", ErrInvalidMenu, i.ID)
	}
	if i.Category == "" || utf8.RuneCountInString(i.Category) > maxCategoryNameLength {
		return fmt.Errorf("%w: item %s category must be 1-%d characters", ErrInvalidMenu, i.ID, maxCategoryNameLength)
	}
	for _, option := range i.Options {
		if err := option.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Normalize normalizes the category and its items.
func (c *MenuCategory) Normalize() {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = TitleCase(c.Name)
	if c.Items == nil {
		c.Items = []MenuItem{}
	}
	for idx := range c.Items {
		c.Items[idx].Normalize()
	}
}

// Validate checks category invariants.
func (c MenuCategory) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: category id is empty", ErrInvalidMenu)
	}
	if c.Name == "" || utf8.RuneCountInString(c.Name) > maxCategoryNameLength {
		return fmt.Errorf("%w: category %s name must be 1-%d characters", ErrInvalidMenu, c.ID, maxCategoryNameLength)
	}
	if utf8.RuneCountInString(c.Description) > maxCategoryDescLength {
		return fmt.Errorf("%w: category %s description exceeds %d characters", ErrInvalidMenu, c.ID, maxCategoryDescLength)
	}
	for _, item := range c.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Normalize applies defaults and normalizes nested values.
func (m *Menu) Normalize() {
	m.ID = strings.TrimSpace(m.ID)
	m.RestaurantID = strings.TrimSpace(m.RestaurantID)
	m.Name = strings.TrimSpace(m.Name)
	m.Currency = strings.ToUpper(strings.TrimSpace(m.Currency))
	if m.Currency == "" {
		m.Currency = DefaultCurrency
	}
	if m.Version < 1 {
		m.Version = 1
	}
	if m.Categories == nil {
		m.Categories = []MenuCategory{}
	}
	for idx := range m.Categories {
		m.Categories[idx].Normalize()
	}
}

// Validate checks menu invariants.
func (m Menu) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: menu id is empty", ErrInvalidMenu)
	}
	if m.RestaurantID == "" {
		return fmt.Errorf("%w: menu %s restaurant id is empty", ErrInvalidMenu, m.ID)
	}
	if m.Name == "" || utf8.RuneCountInString(m.Name) > maxNameLength {
		return fmt.Errorf("%w: menu %s name must be 1-%d characters", ErrInvalidMenu, m.ID, maxNameLength)
	}
	if !currencyPattern.MatchString(m.Currency) {
		return fmt.Errorf("%w: menu %s currency %q is not a 3-letter code", ErrInvalidMenu, m.ID, m.Currency)
	}
	if m.Version < 1 {
		return fmt.Errorf("%w: menu %s version must be >= 1", ErrInvalidMenu, m.ID)
	}
	for _, category := range m.Categories {
		if err := category.Validate(); err != nil {
			return err
		}
	}
	return nil
}
