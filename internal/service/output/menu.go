package output

import (
	"strconv"
	"strings"
	"time"

	"github.com/mekedron/otter-menusync/internal/domain"
)

// MenuCSVHeaders are the export columns.
var MenuCSVHeaders = []string{"Category", "Item Name", "Description", "Price"}

// MenuRows flattens the menu into export rows in category order.
func MenuRows(menu *domain.Menu) [][]string {
	if menu == nil {
		return [][]string{}
	}
	rows := make([][]string, 0, menu.TotalItems())
	for _, category := range menu.Categories {
		for _, item := range category.Items {
			rows = append(rows, []string{
				category.Name,
				item.Name,
				item.Description,
				domain.FormatPrice(item.Price, menu.Currency),
			})
		}
	}
	return rows
}

// MenuCSV renders the menu export as CSV.
func MenuCSV(menu *domain.Menu) (string, error) {
	return RenderCSV(MenuCSVHeaders, MenuRows(menu))
}

// MenuTables renders one table per category.
func MenuTables(menu *domain.Menu) string {
	if menu == nil || menu.TotalItems() == 0 {
		return "Menu has no items."
	}
	sections := make([]string, 0, len(menu.Categories))
	for _, category := range menu.Categories {
		rows := make([][]string, 0, len(category.Items))
		for _, item := range category.Items {
			rows = append(rows, []string{item.Name, item.Description, domain.FormatPrice(item.Price, menu.Currency)})
		}
		sections = append(sections, RenderTable("Category: "+category.Name, []string{"Item", "Description", "Price"}, rows))
	}
	return strings.Join(sections, "\n\n")
}

// SyncResultTable renders a result line followed by the run statistics.
func SyncResultTable(result domain.SyncResult) string {
	var b strings.Builder
	if result.Succeeded() {
		b.WriteString("Menu sync completed successfully")
	} else {
		b.WriteString("Menu sync failed: " + result.Error)
	}
	if result.DryRun {
		b.WriteString(" (dry run)")
	}
	status := result.SyncStatus
	if status == nil {
		return b.String()
	}
	b.WriteString("\n\n")
	b.WriteString(RenderTable("Sync Statistics", []string{"Metric", "Value"}, [][]string{
		{"Items Processed", strconv.Itoa(status.ItemsProcessed)},
		{"Items Created", strconv.Itoa(status.ItemsCreated)},
		{"Items Updated", strconv.Itoa(status.ItemsUpdated)},
		{"Items Deleted", strconv.Itoa(status.ItemsDeleted)},
	}))
	if len(status.Errors) > 0 {
		b.WriteString("\n\nErrors encountered:")
		for _, message := range status.Errors {
			b.WriteString("\n  - " + message)
		}
	}
	return b.String()
}

// YesNo renders booleans the way status tables show them.
func YesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// Timestamp renders t in UTC, or "-" when zero.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
