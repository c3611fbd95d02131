// Package sample builds a small retail dataset for trying the tool without
// a spreadsheet of your own.
package sample

import (
	"math/rand"
	"time"

	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
)

// DefaultDays is the length of the generated series.
const DefaultDays = 30

var (
	regions  = []string{"North", "South", "East", "West"}
	products = []string{"Coffee", "Tea", "Bread", "Milk", "Rice"}
	prices   = map[string]float64{"Coffee": 7.5, "Tea": 4.25, "Bread": 2.8, "Milk": 1.9, "Rice": 3.6}
)

// Generate returns one row per day starting 2024-01-01. The same seed always
// yields the same data. Roughly one row in twelve misses its Quantity so the
// missing-value views have something to show.
func Generate(days int, seed int64) *dataset.Dataset {
	if days <= 0 {
		days = DefaultDays
	}
	r := rand.New(rand.NewSource(seed))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var (
		date    = make([]dataset.Value, days)
		sales   = make([]dataset.Value, days)
		qty     = make([]dataset.Value, days)
		region  = make([]dataset.Value, days)
		product = make([]dataset.Value, days)
		price   = make([]dataset.Value, days)
	)
	for i := 0; i < days; i++ {
		p := products[r.Intn(len(products))]
		date[i] = dataset.Time(start.AddDate(0, 0, i))
		sales[i] = dataset.Number(float64(1000 + r.Intn(4000)))
		if r.Intn(12) == 0 {
			qty[i] = dataset.Null()
		} else {
			qty[i] = dataset.Number(float64(10 + r.Intn(90)))
		}
		region[i] = dataset.Text(regions[r.Intn(len(regions))])
		product[i] = dataset.Text(p)
		price[i] = dataset.Number(prices[p])
	}
	return dataset.MustNew("sample_sales",
		dataset.Column{Name: "Date", Values: date},
		dataset.Column{Name: "Sales", Values: sales},
		dataset.Column{Name: "Quantity", Values: qty},
		dataset.Column{Name: "Region", Values: region},
		dataset.Column{Name: "Product", Values: product},
		dataset.Column{Name: "Price", Values: price},
	)
}
