package analysis

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"
)

// WriteText renders the report as aligned plain-text sections.
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder

	section(&b, "Monthly transactions", []string{"MONTH", "COUNT", "VOLUME", "NET"}, rows(r.Monthly, func(m MonthlyVolume) []string {
		return []string{m.Month, strconv.Itoa(m.Count), money(m.Volume), money(m.Net)}
	}))
	section(&b, "Proposals by status", []string{"MONTH", "STATUS", "COUNT"}, rows(r.ProposalsByStatus, func(s StatusCount) []string {
		return []string{s.Month, s.Status, strconv.Itoa(s.Count)}
	}))
	fmt.Fprintf(&b, "Approval rate: %s\n", optional(r.ApprovalRate, "%.2f%%"))
	fmt.Fprintf(&b, "Balance correlation: %s\n\n", optional(r.BalanceCorrelation, "%.4f"))
	section(&b, "Accounts opened", []string{"MONTH", "COUNT", "CUMULATIVE"}, rows(r.AccountsOpened, func(m MonthCount) []string {
		return []string{m.Month, strconv.Itoa(m.Count), strconv.Itoa(m.Cumulative)}
	}))
	section(&b, "By state", []string{"UF", "BRANCHES", "ACCOUNTS"}, rows(r.States, func(s StateCount) []string {
		return []string{s.State, strconv.Itoa(s.Branches), strconv.Itoa(s.Accounts)}
	}))
	section(&b, "Employees per branch", []string{"BRANCH", "EMPLOYEES"}, rows(r.EmployeesPerBranch, func(e BranchEmployees) []string {
		return []string{strconv.FormatInt(e.BranchCode, 10), strconv.Itoa(e.Employees)}
	}))
	section(&b, "Age brackets", []string{"AGE", "CUSTOMERS", "MEAN VOLUME", "TRANSACTIONS"}, rows(r.AgeBrackets, func(a AgeBracket) []string {
		return []string{a.Label, strconv.Itoa(a.Customers), money(a.MeanVolume), strconv.Itoa(a.Transactions)}
	}))
	section(&b, "Branch types", []string{"TYPE", "BRANCHES", "ACCOUNTS", "TRANSACTIONS", "VOLUME"}, rows(r.BranchTypes, func(t BranchTypeSummary) []string {
		return []string{t.Type, strconv.Itoa(t.Branches), strconv.Itoa(t.Accounts), strconv.Itoa(t.Transactions), money(t.Volume)}
	}))
	section(&b, "Quarters", []string{"QUARTER", "TRANSACTIONS", "MEAN VOLUME"}, rows(r.Quarters, func(q QuarterSummary) []string {
		return []string{"Q" + strconv.Itoa(q.Quarter), strconv.Itoa(q.Transactions), money(q.MeanVolume)}
	}))
	section(&b, "Months with r", []string{"GROUP", "TRANSACTIONS", "MEAN VOLUME"}, [][]string{
		{"with r", strconv.Itoa(r.MonthsWithR.Transactions), money(r.MonthsWithR.MeanVolume)},
		{"without r", strconv.Itoa(r.MonthsWithoutR.Transactions), money(r.MonthsWithoutR.MeanVolume)},
	})
	for _, m := range r.Macro {
		fmt.Fprintf(&b, "Macro %s: volume r=%s, count r=%s\n", m.Series,
			optional(m.VolumeCorrelation, "%.4f"), optional(m.CountCorrelation, "%.4f"))
		section(&b, "", []string{"MONTH", "VOLUME", "COUNT", "INDEX"}, rows(m.Points, func(p MacroPoint) []string {
			return []string{p.Month, fmt.Sprintf("%.3f", p.VolumeScaled), fmt.Sprintf("%.3f", p.CountScaled), fmt.Sprintf("%.3f", p.IndexScaled)}
		}))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func rows[T any](items []T, fn func(T) []string) [][]string {
	out := make([][]string, 0, len(items))
	for _, it := range items {
		out = append(out, fn(it))
	}
	return out
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func optional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

func section(b *strings.Builder, title string, header []string, body [][]string) {
	if title != "" {
		b.WriteString(title + "\n")
	}
	widths := make([]int, len(header))
	all := append([][]string{header}, body...)
	for _, row := range all {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for _, row := range all {
		b.WriteString("  ")
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]+2))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
