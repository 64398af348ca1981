package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goormlabs/orders_backend/config"
	"github.com/goormlabs/orders_backend/models"
	"github.com/shopspring/decimal"
)

const qrImageSize = 256

type InvoiceData struct {
	InvoiceId string
	Order     *models.Order
	Company   *models.Company
	IssueDate time.Time
	QrImage   []byte
}

// qrPayload is the verification payload embedded in the invoice QR code.
type qrPayload struct {
	InvoiceId   string          `json:"invoiceId"`
	OrderId     int             `json:"orderId"`
	CompanyId   int             `json:"companyId"`
	FinalAmount decimal.Decimal `json:"finalAmount"`
	IssueDate   string          `json:"issueDate"`
}

type InvoiceGenerator struct {
	QR       QREncoder
	Renderer InvoiceRenderer
	Pdf      PdfConverter
}

func NewInvoiceGenerator() *InvoiceGenerator {
	return &InvoiceGenerator{
		QR:       NewQREncoder(),
		Renderer: NewInvoiceRenderer(),
		Pdf:      NewPdfConverter(),
	}
}

// FormatInvoiceId builds the printed invoice identifier. The order id is
// folded mod 1000, so two same-day orders whose ids differ by a multiple of
// 1000 print the same identifier; the audit trail keeps the real order id.
func FormatInvoiceId(orderId int, issueDate time.Time) string {
	return fmt.Sprintf("INV-%s-%03d", issueDate.Format("20060102"), orderId%1000)
}

// InvoiceFileName is the deterministic download name for a generated PDF.
func InvoiceFileName(order *models.Order, at time.Time) string {
	return fmt.Sprintf("invoice_%s_%s.pdf", at.Format("20060102_150405"), order.OrderNumber)
}

// GenerateInvoicePdf renders the invoice for an order and appends the
// print-audit row. QR encoding failure is non-fatal: the invoice is still
// produced, just without the verification image.
func (g *InvoiceGenerator) GenerateInvoicePdf(ctx context.Context, orderId int, actor string) ([]byte, *models.InvoiceHistory, error) {
	logger := config.GetLogger()

	order, err := models.GetOrder(ctx, orderId)
	if err != nil {
		return nil, nil, err
	}
	company, err := models.GetCompany(ctx, order.CompanyId)
	if err != nil {
		return nil, nil, err
	}

	issueDate := time.Now()
	invoiceId := FormatInvoiceId(order.ID, issueDate)

	payload, err := json.Marshal(qrPayload{
		InvoiceId:   invoiceId,
		OrderId:     order.ID,
		CompanyId:   order.CompanyId,
		FinalAmount: order.FinalAmount,
		IssueDate:   issueDate.Format("2006-01-02"),
	})
	if err != nil {
		return nil, nil, err
	}

	var qrImage []byte
	if qrImage, err = g.QR.Encode(string(payload), qrImageSize); err != nil {
		config.LogError(logger, "workflow", "GenerateInvoicePdf", "qr encoding failed", invoiceId, err)
		qrImage = nil
	}

	html, err := g.Renderer.Render(&InvoiceData{
		InvoiceId: invoiceId,
		Order:     order,
		Company:   company,
		IssueDate: issueDate,
		QrImage:   qrImage,
	})
	if err != nil {
		return nil, nil, err
	}

	pdf, err := g.Pdf.Convert(html)
	if err != nil {
		return nil, nil, err
	}

	db := config.GetDB()
	history, err := models.CreateInvoiceHistory(db.WithContext(ctx), order.ID, invoiceId, actor)
	if err != nil {
		return nil, nil, err
	}

	return pdf, history, nil
}
