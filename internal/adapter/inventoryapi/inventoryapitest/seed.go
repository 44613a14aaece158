package inventoryapitest

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// DemoItems is a small storeroom used by the development server.
var DemoItems = []ItemSpec{
	{SKU: "BLT-M8", Name: "Hex bolt M8x40", Quantity: decimal.NewFromInt(120), ShelfLocation: "A2"},
	{SKU: "NUT-M8", Name: "Hex nut M8", Quantity: decimal.NewFromInt(300), ShelfLocation: "A2", ShelfNote: "top tray"},
	{SKU: "WSH-M8", Name: "Washer M8", Quantity: decimal.NewFromInt(250), ShelfLocation: "A10"},
	{SKU: "CBL-TIE", Name: "Cable ties 200mm", Quantity: decimal.NewFromInt(40), Unit: "pack", ShelfLocation: "B1"},
	{SKU: "OIL-5W", Name: "Machine oil", Quantity: decimal.RequireFromString("12.5"), Unit: "l", ShelfLocation: "C3 floor"},
	{SKU: "GLV-L", Name: "Work gloves L", Quantity: decimal.NewFromInt(18), Unit: "pair"},
	{SKU: "TAPE-50", Name: "Duct tape 50mm", Quantity: decimal.NewFromInt(9), Unit: "roll", ShelfLocation: "b12"},
}

// DemoStocktake is the title of the session Seed opens.
const DemoStocktake = "Quarterly count"

// Seed fills b with DemoItems and opens one stocktake.
func Seed(ctx context.Context, b Backend) error {
	for _, spec := range DemoItems {
		if _, err := b.CreateItem(ctx, spec); err != nil {
			return fmt.Errorf("seed item %s: %w", spec.SKU, err)
		}
	}
	if _, err := b.OpenStocktake(ctx, DemoStocktake); err != nil {
		return fmt.Errorf("seed stocktake: %w", err)
	}
	return nil
}
