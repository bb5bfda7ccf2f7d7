// Package report turns ledger reads into markdown for the terminal.
package report

import (
	"fmt"
	"strings"

	"walley/internal/models"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02 15:04"

// Reporter formats amounts, stored in minor units, in a single currency.
type Reporter struct {
	currency *money.Currency
}

// New returns a Reporter for an ISO 4217 currency code.
func New(code string) (*Reporter, error) {
	cur := money.GetCurrency(strings.ToUpper(strings.TrimSpace(code)))
	if cur == nil {
		return nil, fmt.Errorf("unknown currency %q", code)
	}
	return &Reporter{currency: cur}, nil
}

// Amount formats minor units, e.g. -1250 as -$12.50.
func (r *Reporter) Amount(minor int64) string {
	return money.New(minor, r.currency.Code).Display()
}

// Average formats a fractional amount of minor units, rounded half away from zero.
func (r *Reporter) Average(minor decimal.Decimal) string {
	return r.Amount(minor.Round(0).IntPart())
}

// SummaryMarkdown renders the aggregates for one user.
func (r *Reporter) SummaryMarkdown(email string, s models.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Summary for %s\n\n", cell(email))
	b.WriteString("| | |\n|:--|--:|\n")
	fmt.Fprintf(&b, "| **Total spent** | %s |\n", r.Amount(s.TotalSpent))
	fmt.Fprintf(&b, "| **Total deposited** | %s |\n", r.Amount(s.TotalDeposited))
	fmt.Fprintf(&b, "| Average amount | %s |\n", r.Average(s.AverageAmount))
	fmt.Fprintf(&b, "| Transactions | %d |\n", s.TransactionCount)
	return b.String()
}

// HistoryMarkdown renders a user's balances followed by their transactions in date order.
func (r *Reporter) HistoryMarkdown(user *models.User, history []models.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s <%s>\n\n", cell(user.Name), cell(user.Email))
	fmt.Fprintf(&b, "Balance: **%s**, savings: **%s**\n\n", r.Amount(user.Balance), r.Amount(user.Savings))

	if len(history) == 0 {
		b.WriteString("_No transactions._\n")
		return b.String()
	}

	b.WriteString("## Transactions\n\n")
	b.WriteString("| ID | Date | Category | Amount | Notes |\n|--:|:--|:--|--:|:--|\n")
	for _, t := range history {
		notes := ""
		if t.Notes != nil {
			notes = *t.Notes
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			t.ID, t.Date.UTC().Format(dateLayout), cell(t.Category), r.Amount(t.Amount), cell(notes))
	}
	return b.String()
}

// DriftMarkdown compares the stored balance with the sum of the user's transactions.
// drift is balance minus that sum.
func (r *Reporter) DriftMarkdown(user *models.User, drift int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Reconciliation for %s\n\n", cell(user.Email))
	b.WriteString("| | |\n|:--|--:|\n")
	fmt.Fprintf(&b, "| Stored balance | %s |\n", r.Amount(user.Balance))
	fmt.Fprintf(&b, "| Transaction total | %s |\n", r.Amount(user.Balance-drift))
	fmt.Fprintf(&b, "| **Drift** | **%s** |\n\n", r.Amount(drift))
	if drift == 0 {
		b.WriteString("The balance matches the transaction history.\n")
	} else {
		b.WriteString("The balance does not match the transaction history. " +
			"Deleting a transaction or changing its amount leaves the balance untouched.\n")
	}
	return b.String()
}

// CategoriesMarkdown renders a spending breakdown, largest category first.
func (r *Reporter) CategoriesMarkdown(email string, b models.Breakdown) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Spending by category for %s\n\n", cell(email))
	switch {
	case b.From.IsZero() && b.To.IsZero():
		sb.WriteString("All time\n\n")
	case b.To.IsZero():
		fmt.Fprintf(&sb, "From %s\n\n", b.From.Format("2006-01-02"))
	case b.From.IsZero():
		fmt.Fprintf(&sb, "Before %s\n\n", b.To.Format("2006-01-02"))
	default:
		fmt.Fprintf(&sb, "%s to %s\n\n", b.From.Format("2006-01-02"), b.To.AddDate(0, 0, -1).Format("2006-01-02"))
	}

	if len(b.Categories) == 0 {
		sb.WriteString("_No spending._\n")
		return sb.String()
	}

	sb.WriteString("| Category | Spent | Count | Share |\n|:--|--:|--:|--:|\n")
	for _, c := range b.Categories {
		fmt.Fprintf(&sb, "| %s | %s | %d | %s%% |\n", cell(c.Category), r.Amount(c.Total), c.Count, c.Share.StringFixed(2))
	}
	fmt.Fprintf(&sb, "| **Total** | **%s** | | |\n", r.Amount(b.TotalSpent))
	return sb.String()
}

// Render styles markdown for a terminal wrapped at width columns.
func Render(md string, width int) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(md)
}

// cell keeps user text from breaking table rows.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
