package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rovshanmuradov/orderdesk/internal/order"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Format represents the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %q", s)
	}
}

// Options configures the export behavior
type Options struct {
	Format    Format
	Status    order.Status // empty exports every status
	Since     time.Time    // zero exports regardless of creation time
	OutputDir string
}

// Exporter writes order snapshots to CSV or JSON
type Exporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// New creates a new exporter
func New(logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{logger: logger.Named("export"), now: time.Now}
}

// ExportFile writes the matching orders to a new file in opts.OutputDir and
// returns its path.
func (e *Exporter) ExportFile(orders []order.Order, opts Options) (string, error) {
	filtered := Filter(orders, opts)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no orders match the export criteria")
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(opts.OutputDir, e.filename(opts))

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if err := e.Write(file, filtered, opts.Format); err != nil {
		return "", err
	}

	e.logger.Info("Orders exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(opts.Format)))

	return outputPath, nil
}

// Write encodes orders to w without filtering.
func (e *Exporter) Write(w io.Writer, orders []order.Order, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, orders)
	case FormatJSON:
		return e.writeJSON(w, orders)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// Filter returns the orders matching opts.
func Filter(orders []order.Order, opts Options) []order.Order {
	var filtered []order.Order
	for _, o := range orders {
		if opts.Status != "" && o.Status != opts.Status {
			continue
		}
		if !opts.Since.IsZero() && o.CreatedAt.Before(opts.Since) {
			continue
		}
		filtered = append(filtered, o)
	}
	return filtered
}

func (e *Exporter) filename(opts Options) string {
	prefix := "orders_all"
	if opts.Status != "" {
		prefix = "orders_" + string(opts.Status)
	}
	return fmt.Sprintf("%s_%s.%s", prefix, e.now().Format("20060102_150405"), opts.Format)
}

// CSVHeaders lists the CSV columns.
func CSVHeaders() []string {
	return []string{"id", "customer_name", "customer_email", "status", "items", "total_amount", "currency", "created_at", "updated_at", "city", "country"}
}

func csvRecord(o order.Order) []string {
	return []string{
		o.ID,
		o.CustomerName,
		o.CustomerEmail,
		string(o.Status),
		strconv.Itoa(len(o.Items)),
		o.TotalAmount.StringFixed(2),
		o.Currency,
		o.CreatedAt.UTC().Format(time.RFC3339),
		o.UpdatedAt.UTC().Format(time.RFC3339),
		o.ShippingAddress.City,
		o.ShippingAddress.Country,
	}
}

func writeCSV(w io.Writer, orders []order.Order) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, o := range orders {
		if err := writer.Write(csvRecord(o)); err != nil {
			return fmt.Errorf("failed to write order %s: %w", o.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func (e *Exporter) writeJSON(w io.Writer, orders []order.Order) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time     `json:"export_time"`
		OrderCount int           `json:"order_count"`
		Summary    Summary       `json:"summary"`
		Orders     []order.Order `json:"orders"`
	}{
		ExportTime: e.now().UTC(),
		OrderCount: len(orders),
		Summary:    Summarize(orders),
		Orders:     orders,
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary contains summary statistics for exported orders
type Summary struct {
	TotalOrders int                        `json:"total_orders"`
	ByStatus    map[order.Status]int       `json:"by_status"`
	Revenue     map[string]decimal.Decimal `json:"revenue"` // per currency, cancelled orders excluded
	ItemCount   int                        `json:"item_count"`
	StartDate   time.Time                  `json:"start_date"`
	EndDate     time.Time                  `json:"end_date"`
}

// Summarize calculates summary statistics
func Summarize(orders []order.Order) Summary {
	summary := Summary{
		TotalOrders: len(orders),
		ByStatus:    make(map[order.Status]int),
		Revenue:     make(map[string]decimal.Decimal),
	}

	for i, o := range orders {
		summary.ByStatus[o.Status]++
		for _, it := range o.Items {
			summary.ItemCount += it.Quantity
		}
		if o.Status != order.StatusCancelled {
			summary.Revenue[o.Currency] = summary.Revenue[o.Currency].Add(o.TotalAmount)
		}

		if i == 0 || o.CreatedAt.Before(summary.StartDate) {
			summary.StartDate = o.CreatedAt
		}
		if i == 0 || o.CreatedAt.After(summary.EndDate) {
			summary.EndDate = o.CreatedAt
		}
	}

	return summary
}
