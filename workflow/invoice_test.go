package workflow

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/goormlabs/orders_backend/models"
	"github.com/shopspring/decimal"
)

func TestFormatInvoiceId(t *testing.T) {
	issueDate := time.Date(2025, 3, 15, 14, 30, 5, 0, time.UTC)

	if got := FormatInvoiceId(7, issueDate); got != "INV-20250315-007" {
		t.Fatalf("got %q", got)
	}
	if got := FormatInvoiceId(123, issueDate); got != "INV-20250315-123" {
		t.Fatalf("got %q", got)
	}
	// ids fold mod 1000: 12007 prints the same identifier as 7
	if got := FormatInvoiceId(12007, issueDate); got != "INV-20250315-007" {
		t.Fatalf("got %q", got)
	}
}

func TestInvoiceFileName(t *testing.T) {
	order := &models.Order{OrderNumber: "202503150001"}
	at := time.Date(2025, 3, 15, 14, 30, 5, 0, time.UTC)

	if got := InvoiceFileName(order, at); got != "invoice_20250315_143005_202503150001.pdf" {
		t.Fatalf("got %q", got)
	}
}

func TestQrPayloadShape(t *testing.T) {
	b, err := json.Marshal(qrPayload{
		InvoiceId:   "INV-20250315-007",
		OrderId:     7,
		CompanyId:   3,
		FinalAmount: decimal.NewFromInt(95000),
		IssueDate:   "2025-03-15",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"invoiceId", "orderId", "companyId", "finalAmount", "issueDate"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("payload missing key %q in %s", key, b)
		}
	}
}

func sampleInvoiceData(qrImage []byte) *InvoiceData {
	return &InvoiceData{
		InvoiceId: "INV-20250315-007",
		Order: &models.Order{
			OrderNumber:    "202503150001",
			TotalAmount:    decimal.NewFromInt(100000),
			DiscountRate:   decimal.NewFromInt(5),
			DiscountAmount: decimal.NewFromInt(5000),
			FinalAmount:    decimal.NewFromInt(95000),
			Items: []models.OrderItem{
				{
					ProductName: "Stapler",
					Quantity:    decimal.NewFromInt(10),
					UnitPrice:   decimal.NewFromInt(10000),
					LineTotal:   decimal.NewFromInt(95000),
				},
			},
		},
		Company:   &models.Company{Name: "Acme Trading"},
		IssueDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		QrImage:   qrImage,
	}
}

func TestInvoiceRendererEmbedsQrImage(t *testing.T) {
	html, err := NewInvoiceRenderer().Render(sampleInvoiceData([]byte{0x89, 0x50, 0x4e, 0x47}))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.Contains(html, []byte("data:image/png;base64,")) {
		t.Fatal("expected embedded QR image in rendered invoice")
	}
	if !bytes.Contains(html, []byte("INV-20250315-007")) {
		t.Fatal("expected invoice id in rendered invoice")
	}
	if !bytes.Contains(html, []byte("Acme Trading")) {
		t.Fatal("expected company name in rendered invoice")
	}
}

func TestInvoiceRendererToleratesMissingQrImage(t *testing.T) {
	// QR encoding failures are non-fatal: the invoice renders without the image.
	html, err := NewInvoiceRenderer().Render(sampleInvoiceData(nil))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if bytes.Contains(html, []byte("data:image/png")) {
		t.Fatal("did not expect an img tag without a QR image")
	}
	if !bytes.Contains(html, []byte("202503150001")) {
		t.Fatal("expected order number in rendered invoice")
	}
}

func TestQREncoderProducesPng(t *testing.T) {
	img, err := NewQREncoder().Encode(`{"invoiceId":"INV-20250315-007"}`, 256)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// PNG signature
	if !bytes.HasPrefix(img, []byte{0x89, 0x50, 0x4e, 0x47}) {
		t.Fatal("expected PNG output")
	}
}
