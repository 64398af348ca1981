package workflow

import (
	"bytes"
	"encoding/base64"
	"html/template"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
	qrcode "github.com/skip2/go-qrcode"
)

// Rendering collaborators for invoice generation. The interfaces exist so
// tests can swap in stubs.

type QREncoder interface {
	Encode(payload string, size int) ([]byte, error)
}

type InvoiceRenderer interface {
	Render(data *InvoiceData) ([]byte, error)
}

type PdfConverter interface {
	Convert(html []byte) ([]byte, error)
}

type qrCodeEncoder struct{}

func NewQREncoder() QREncoder {
	return &qrCodeEncoder{}
}

func (e *qrCodeEncoder) Encode(payload string, size int) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, size)
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: sans-serif; font-size: 13px; }
h1 { font-size: 20px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { border: 1px solid #888; padding: 6px 8px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
.totals { margin-top: 16px; float: right; }
.qr { float: right; }
</style>
</head>
<body>
<h1>Invoice {{.InvoiceId}}</h1>
{{if .QrImage}}<img class="qr" width="120" height="120" src="data:image/png;base64,{{qrBase64 .QrImage}}">{{end}}
<p>
Order {{.Order.OrderNumber}}<br>
{{.Company.Name}}<br>
Issued {{.IssueDate.Format "2006-01-02"}}
{{if .Order.PaymentDueDate}}<br>Payment due {{.Order.PaymentDueDate.Format "2006-01-02"}}{{end}}
</p>
<table>
<tr><th>Product</th><th>Qty</th><th>Unit price</th><th>Discount</th><th>Line total</th></tr>
{{range .Order.Items}}
<tr><td>{{.ProductName}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice}}</td><td>{{.DiscountAmount}}</td><td>{{.LineTotal}}</td></tr>
{{end}}
</table>
<div class="totals">
Total: {{.Order.TotalAmount}}<br>
Discount ({{.Order.DiscountRate}}%): {{.Order.DiscountAmount}}<br>
<strong>Final: {{.Order.FinalAmount}}</strong>
</div>
</body>
</html>`

type htmlInvoiceRenderer struct {
	tmpl *template.Template
}

func NewInvoiceRenderer() InvoiceRenderer {
	tmpl := template.Must(template.New("invoice").Funcs(template.FuncMap{
		"qrBase64": func(b []byte) string {
			return base64.StdEncoding.EncodeToString(b)
		},
	}).Parse(invoiceTemplate))
	return &htmlInvoiceRenderer{tmpl: tmpl}
}

func (r *htmlInvoiceRenderer) Render(data *InvoiceData) ([]byte, error) {
	var b bytes.Buffer
	if err := r.tmpl.Execute(&b, data); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

type wkhtmltopdfConverter struct{}

func NewPdfConverter() PdfConverter {
	return &wkhtmltopdfConverter{}
}

func (c *wkhtmltopdfConverter) Convert(html []byte) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, err
	}
	page := wkhtmltopdf.NewPageReader(bytes.NewReader(html))
	page.EnableLocalFileAccess.Set(false)
	pdfg.AddPage(page)
	if err := pdfg.Create(); err != nil {
		return nil, err
	}
	return pdfg.Bytes(), nil
}
