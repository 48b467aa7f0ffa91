package usecase

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"bucheron/internal/domain"
	"bucheron/internal/infrastructure/mailer"
)

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(template.FuncMap{
	"eur":  func(v float64) string { return fmt.Sprintf("%.2f €", v) },
	"date": func(t time.Time) string { return t.Format("02/01/2006") },
}).Parse(`<h2>Merci pour votre commande {{.Customer.FirstName}} !</h2>
<p>Votre commande <strong>{{.OrderNumber}}</strong> a bien été enregistrée.</p>
<table cellpadding="4">
{{range .Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}} {{.Unit}}</td><td align="right">{{eur .Total}}</td></tr>
{{end}}<tr><td colspan="2">Sous-total</td><td align="right">{{eur .Subtotal}}</td></tr>
<tr><td colspan="2">Livraison</td><td align="right">{{if eq .ShippingCost 0.0}}Offerte{{else}}{{eur .ShippingCost}}{{end}}</td></tr>
{{if .Tax}}<tr><td colspan="2">Taxes</td><td align="right">{{eur .Tax}}</td></tr>{{end}}
<tr><td colspan="2"><strong>Total</strong></td><td align="right"><strong>{{eur .Total}}</strong></td></tr>
</table>
{{with .BankDetails}}<h3>Règlement par virement</h3>
<p>Banque : {{.BankName}}<br>Titulaire : {{.AccountHolder}}<br>IBAN : {{.IBAN}}<br>BIC : {{.BIC}}<br>
Référence à indiquer : <strong>{{.Reference}}</strong></p>
{{else}}<p>Nos coordonnées bancaires vous seront communiquées très prochainement sur la page de suivi de votre commande.</p>
{{end}}<p>Merci de régler avant le {{date .PaymentDueDate}}. Livraison estimée autour du {{date .EstimatedDelivery}}.</p>`))

func confirmationMessage(order *domain.Order) (mailer.Message, error) {
	var body bytes.Buffer
	if err := confirmationTmpl.Execute(&body, order); err != nil {
		return mailer.Message{}, fmt.Errorf("rendering confirmation: %w", err)
	}
	return mailer.Message{
		To:      order.Customer.Email,
		Subject: "Confirmation de votre commande " + order.OrderNumber,
		HTML:    body.String(),
	}, nil
}
