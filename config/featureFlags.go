package config

import (
	"os"
	"strings"
)

// InvoiceAuditAccumulate makes repeated invoice generation for the same order
// carry a running print count on the audit row instead of a constant 1.
//
// Set via env:
// - INVOICE_AUDIT_ACCUMULATE=true
func InvoiceAuditAccumulate() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("INVOICE_AUDIT_ACCUMULATE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
