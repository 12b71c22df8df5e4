package export

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

const (
	notAvailable    = "N/A"
	defaultFilename = "cart-items.pdf"
	timestampLayout = "02/01/2006, 15:04:05"

	rowHeight    = 10.0
	firstRowY    = 40.0
	lastRowY     = 270.0
	continuedRow = 20.0
	pageBottom   = 287.0
)

// compress is switched off in tests to inspect the page content.
var compress = true

type Customer struct {
	Name   string
	Mobile string
}

type Row struct {
	SerialNo    int
	Brand       string
	ProductName string
	Quantity    string
	Category    string
}

type Document struct {
	StoreName   string
	Customer    Customer
	Items       []response.CartLineItem
	GeneratedAt time.Time
}

// Filename is <name>-cart.pdf for a named customer and cart-items.pdf otherwise. Path
// separators, parent references and control characters in the name become underscores, so
// the result always stays inside the directory it is joined to.
func Filename(customer Customer) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(customer.Name))
	name = strings.ReplaceAll(name, "..", "_")
	name = filepath.Base(strings.TrimSpace(name))
	if strings.Trim(name, "._ ") == "" {
		return defaultFilename
	}
	return name + "-cart.pdf"
}

func orNotAvailable(value string) string {
	if strings.TrimSpace(value) == "" {
		return notAvailable
	}
	return value
}

func Rows(items []response.CartLineItem) []Row {
	rows := make([]Row, 0, len(items))
	for i, item := range items {
		row := Row{
			SerialNo:    i + 1,
			Brand:       notAvailable,
			ProductName: notAvailable,
			Category:    notAvailable,
			Quantity:    strconv.FormatFloat(item.Quantity, 'f', -1, 64),
		}
		if item.Product != nil {
			row.Brand = orNotAvailable(item.Product.Brand)
			row.ProductName = orNotAvailable(item.Product.Name)
			row.Category = orNotAvailable(item.Product.Category)
		}
		rows = append(rows, row)
	}
	return rows
}

func (d Document) TotalLine() string {
	return fmt.Sprintf("Approx Amount In Rs: %s", response.ApproximateTotal(d.Items).StringFixed(2))
}

func (d Document) TimestampLine() string {
	return fmt.Sprintf("Downloaded on: %s", d.GeneratedAt.Format(timestampLayout))
}

func (d Document) WritePDF(c context.Context, w io.Writer) error {
	c, span := otel.Tracer.Start(c, "Document WritePDF")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Document WritePDF").
		Int(log.KeyCartItemsLen, len(d.Items)).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "rendering pdf").Logger()
	logger.Trace().Msg("rendering pdf")

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetTitle(d.StoreName, true)
	pdf.AddPage()

	// core fonts are cp1252 encoded
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(x, y float64, value string) {
		pdf.Text(x, y, tr(value))
	}

	pdf.SetFont("Helvetica", "", 16)
	pdf.SetTextColor(62, 123, 39)
	text(90, 10, d.StoreName)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(75, 22, 76)
	text(10, 15, "Name: "+orNotAvailable(d.Customer.Name))
	text(10, 20, "Mobile no: "+orNotAvailable(d.Customer.Mobile))

	header := func(y float64) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(255, 0, 0)
		text(10, y, "SL.No.")
		text(30, y, "Brand")
		text(65, y, "Product Name")
		text(135, y, "Qty")
		text(150, y, "Category")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(0, 0, 0)
	}
	header(30)

	y := firstRowY
	for _, row := range Rows(d.Items) {
		if y > lastRowY {
			pdf.AddPage()
			header(continuedRow - rowHeight)
			y = continuedRow
		}
		text(10, y, strconv.Itoa(row.SerialNo))
		text(30, y, row.Brand)
		text(65, y, row.ProductName)
		text(135, y, row.Quantity)
		text(150, y, row.Category)
		y += rowHeight
	}

	y += rowHeight
	if y+rowHeight > pageBottom {
		pdf.AddPage()
		y = continuedRow
	}
	pdf.SetFontSize(12)
	pdf.SetTextColor(255, 0, 0)
	text(10, y, d.TotalLine())
	pdf.SetTextColor(0, 0, 255)
	text(10, y+rowHeight, d.TimestampLine())

	logger = logger.With().Str(log.KeyProcess, "writing pdf").Logger()
	if err := pdf.Output(w); err != nil {
		err = fmt.Errorf("failed writing pdf with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("wrote pdf")

	return nil
}
