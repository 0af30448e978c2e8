// Package export renders dashboard views as CSV downloads.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/panelsync/panelsync/internal/dashboard"
	"github.com/panelsync/panelsync/internal/orders"
)

// WriteStatisticsCSV serialises the statistics cards.
func WriteStatisticsCSV(w io.Writer, stats orders.Statistics, label string) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"Range", label},
		{"Orders", strconv.Itoa(stats.OrderCount)},
		{"Sales", stats.SalesTotal.String()},
		{"Cost", stats.CostTotal.String()},
		{"Profit", stats.ProfitTotal.String()},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteOrdersCSV emits one line per order row.
func WriteOrdersCSV(w io.Writer, rows []dashboard.OrderRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Order", "Order ID", "Date", "Product", "Total", "Payment", "Status"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.Name,
			row.LegacyID,
			row.CreatedAt.UTC().Format(time.RFC3339),
			row.Product,
			row.Total.String(),
			row.FinancialStatus,
			row.StatusLabel,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteWarningsCSV lists degraded upstream sources. Nothing is written when
// there are none.
func WriteWarningsCSV(w io.Writer, warnings []dashboard.Warning) error {
	if len(warnings) == 0 {
		return nil
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Warning", "Message"}); err != nil {
		return err
	}
	for _, warning := range warnings {
		if err := writer.Write([]string{warning.Source, warning.Message}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
