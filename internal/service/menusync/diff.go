package menusync

import "github.com/mekedron/otter-menusync/internal/domain"

// Diff compares two snapshots by item id. Items sharing an id keep the last
// occurrence. Added and updated items follow the new menu order; deleted ids
// follow the old menu order. Categories are not compared.
func Diff(oldMenu, newMenu *domain.Menu) domain.MenuDiff {
	diff := domain.MenuDiff{
		AddedItems:        []domain.MenuItem{},
		UpdatedItems:      []domain.MenuItem{},
		DeletedItems:      []string{},
		AddedCategories:   []domain.MenuCategory{},
		UpdatedCategories: []domain.MenuCategory{},
		DeletedCategories: []string{},
	}

	oldItems, oldOrder := indexItems(oldMenu)
	newItems, newOrder := indexItems(newMenu)

	for _, id := range newOrder {
		newItem := newItems[id]
		oldItem, existed := oldItems[id]
		switch {
		case !existed:
			diff.AddedItems = append(diff.AddedItems, newItem)
		case ItemChanged(oldItem, newItem):
			diff.UpdatedItems = append(diff.UpdatedItems, newItem)
		}
	}

	for _, id := range oldOrder {
		if _, ok := newItems[id]; !ok {
			diff.DeletedItems = append(diff.DeletedItems, id)
		}
	}
	return diff
}

// ItemChanged reports whether name, description, price, category or
// availability differ. Options, images, tags and timestamps are ignored.
func ItemChanged(oldItem, newItem domain.MenuItem) bool {
	return oldItem.Name != newItem.Name ||
		oldItem.Description != newItem.Description ||
		!oldItem.Price.Equal(newItem.Price) ||
		oldItem.Category != newItem.Category ||
		oldItem.Available != newItem.Available
}

// indexItems maps item ids to their last occurrence and returns ids in first-seen order.
func indexItems(menu *domain.Menu) (map[string]domain.MenuItem, []string) {
	all := menu.Items()
	items := make(map[string]domain.MenuItem, len(all))
	order := make([]string, 0, len(all))
	for _, item := range all {
		if _, seen := items[item.ID]; !seen {
			order = append(order, item.ID)
		}
		items[item.ID] = item
	}
	return items, order
}
