package httpapi

import (
	"bytes"
	"html/template"
	"log"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
)

const printStyle = `
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
    h2, h3 { margin-bottom: 4px; }`

// purchaseSlipHTMLTmpl renders the pink slip handed to a vendor when the
// shop buys metal.
var purchaseSlipHTMLTmpl = template.Must(template.New("purchase-slip").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Purchase {{.BillNo}}</title>
  <style>` + printStyle + `
    body { background: #fde7ef; }
  </style>
</head>
<body>
  <h2>Purchase Bill {{.BillNo}}</h2>
  <p>Date: {{.BillDate.Format "02-01-2006"}} | Staff: {{.StaffID}} | Payment: {{.PaymentMode}}{{if .PaymentReference}} ({{.PaymentReference}}){{end}}</p>
  {{if .Particulars}}<p>Particulars: {{.Particulars}}</p>{{end}}
  <table>
    <thead><tr><th>HSN</th><th>Code</th><th>Weight (g)</th><th>Purity</th><th>Rate</th><th>Amount</th></tr></thead>
    <tbody>{{range .Items}}<tr><td>{{.HSNCode}}</td><td>{{.Code}}</td><td class="num">{{.Weight.StringFixed 3}}</td><td>{{.Purity}}</td><td class="num">{{.RatePerGram.StringFixed 2}}</td><td class="num">{{.Amount.StringFixed 2}}</td></tr>{{end}}</tbody>
  </table>
  <p>Total: {{.TotalAmount.StringFixed 2}} | CGST: {{.CGST.StringFixed 2}} | SGST: {{.SGST.StringFixed 2}} | Grand Total: {{.GrandTotal.StringFixed 2}}</p>
  {{if .Remark}}<p>Remark: {{.Remark}}</p>{{end}}
</body>
</html>
`))

var layawayStatementHTMLTmpl = template.Must(template.New("layaway-statement").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Layaway {{.BillNo}}</title>
  <style>` + printStyle + `
  </style>
</head>
<body>
  <h2>Layaway Statement {{.BillNo}}</h2>
  <p>Grand Total: {{.GrandTotal.StringFixed 2}} | Paid: {{.TotalPaid.StringFixed 2}} | Remaining: {{.RemainingAmount.StringFixed 2}}</p>
  <table>
    <thead><tr><th>Date</th><th>Method</th><th>Reference</th><th>Amount</th></tr></thead>
    <tbody>{{range .Transactions}}<tr><td>{{.PaymentDate.Format "02-01-2006"}}</td><td>{{.PaymentMethod}}</td><td>{{.ReferenceNumber}}</td><td class="num">{{.Amount.StringFixed 2}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

const printFallbackHTML = "<!doctype html><html><body><p>Document rendering error.</p></body></html>"

func purchaseSlipToPrintableHTML(bill domain.PurchaseBill) string {
	var buf bytes.Buffer
	if err := purchaseSlipHTMLTmpl.Execute(&buf, bill); err != nil {
		log.Printf("[httpapi] WARN: render purchase slip %s: %v", bill.BillNo, err)
		return printFallbackHTML
	}
	return buf.String()
}

func layawayStatementToPrintableHTML(statement domain.LayawayStatement) string {
	var buf bytes.Buffer
	if err := layawayStatementHTMLTmpl.Execute(&buf, statement); err != nil {
		log.Printf("[httpapi] WARN: render layaway statement %s: %v", statement.BillNo, err)
		return printFallbackHTML
	}
	return buf.String()
}

// The status line is already written when an export fails midway.
func logExportFailure(format string, err error) {
	log.Printf("[httpapi] WARN: exchange export (%s) failed: %v", format, err)
}
