package otter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mekedron/otter-menusync/internal/domain"
)

type menuDocument struct {
	ID           string             `json:"id"`
	RestaurantID string             `json:"restaurant_id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Currency     string             `json:"currency"`
	Categories   []categoryDocument `json:"categories"`
}

type categoryDocument struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Order       int            `json:"order"`
	Items       []itemDocument `json:"items"`
}

type itemDocument struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Price           *decimal.Decimal `json:"price"`
	Available       *bool            `json:"available"`
	Images          []string         `json:"images"`
	Tags            []string         `json:"tags"`
	Options         []optionDocument `json:"options"`
	NutritionalInfo map[string]any   `json:"nutritional_info"`
}

type optionDocument struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Price     *decimal.Decimal `json:"price"`
	Available *bool            `json:"available"`
}

// ParseMenuDocument maps an Otter menu response onto the menu model.
// Items take their category from the enclosing category name and default to available.
func ParseMenuDocument(raw []byte) (*domain.Menu, error) {
	var doc menuDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode menu document: %w", err)
	}
	if strings.TrimSpace(doc.ID) == "" || strings.TrimSpace(doc.RestaurantID) == "" || strings.TrimSpace(doc.Name) == "" {
		return nil, fmt.Errorf("%w: menu document requires id, restaurant_id and name", domain.ErrInvalidMenu)
	}

	now := time.Now().UTC()
	menu := &domain.Menu{
		ID:           doc.ID,
		RestaurantID: doc.RestaurantID,
		Name:         doc.Name,
		Description:  doc.Description,
		Currency:     doc.Currency,
		Active:       true,
		Version:      1,
		Categories:   make([]domain.MenuCategory, 0, len(doc.Categories)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, catDoc := range doc.Categories {
		category := domain.MenuCategory{
			ID:           catDoc.ID,
			Name:         catDoc.Name,
			Description:  catDoc.Description,
			DisplayOrder: catDoc.Order,
			Active:       true,
			Items:        make([]domain.MenuItem, 0, len(catDoc.Items)),
		}
		for _, itemDoc := range catDoc.Items {
			item, err := parseItem(itemDoc, catDoc.Name, now)
			if err != nil {
				return nil, err
			}
			category.Items = append(category.Items, item)
		}
		menu.Categories = append(menu.Categories, category)
	}

	menu.Normalize()
	if err := menu.Validate(); err != nil {
		return nil, err
	}
	return menu, nil
}

func parseItem(doc itemDocument, categoryName string, now time.Time) (domain.MenuItem, error) {
	if doc.Price == nil {
		return domain.MenuItem{}, fmt.Errorf("%w: item %s has no price", domain.ErrInvalidMenu, doc.ID)
	}
	item := domain.MenuItem{
		ID:              doc.ID,
		Name:            doc.Name,
		Description:     doc.Description,
		Price:           *doc.Price,
		Category:        categoryName,
		Available:       boolOr(doc.Available, true),
		Images:          doc.Images,
		Tags:            doc.Tags,
		NutritionalInfo: doc.NutritionalInfo,
		Options:         make([]domain.MenuItemOption, 0, len(doc.Options)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, optDoc := range doc.Options {
		option := domain.MenuItemOption{
			ID:        optDoc.ID,
			Name:      optDoc.Name,
			Available: boolOr(optDoc.Available, true),
		}
		if optDoc.Price != nil {
			option.Price = *optDoc.Price
		}
		item.Options = append(item.Options, option)
	}
	return item, nil
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

// itemPayload is the write shape of a menu item; timestamps are omitted.
type itemPayload struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	Description     string                  `json:"description,omitempty"`
	Price           decimal.Decimal         `json:"price"`
	Category        string                  `json:"category"`
	Available       bool                    `json:"available"`
	Options         []domain.MenuItemOption `json:"options"`
	Images          []string                `json:"images"`
	Tags            []string                `json:"tags"`
	NutritionalInfo map[string]any          `json:"nutritional_info,omitempty"`
}

func newItemPayload(item domain.MenuItem) itemPayload {
	return itemPayload{
		ID:              item.ID,
		Name:            item.Name,
		Description:     item.Description,
		Price:           item.Price,
		Category:        item.Category,
		Available:       item.Available,
		Options:         item.Options,
		Images:          item.Images,
		Tags:            item.Tags,
		NutritionalInfo: item.NutritionalInfo,
	}
}
