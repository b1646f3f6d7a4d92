// Package analysis computes descriptive aggregates over the clean bank
// tables.
package analysis

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankclean/bankclean/internal/bank"
)

// MonthlyVolume is the transaction activity of one month.
type MonthlyVolume struct {
	Month  string          `json:"month"`
	Count  int             `json:"count"`
	Volume decimal.Decimal `json:"volume"` // sum of absolute amounts
	Net    decimal.Decimal `json:"net"`    // sum of signed amounts
}

// StatusCount is the number of proposals of one status entered in a month.
type StatusCount struct {
	Month  string `json:"month"`
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// MonthCount is a monthly count with its running total.
type MonthCount struct {
	Month      string `json:"month"`
	Count      int    `json:"count"`
	Cumulative int    `json:"cumulative"`
}

// StateCount counts branches and accounts per state (UF).
type StateCount struct {
	State    string `json:"state"`
	Branches int    `json:"branches"`
	Accounts int    `json:"accounts"`
}

// BranchEmployees is the headcount of one branch.
type BranchEmployees struct {
	BranchCode int64 `json:"branch_code"`
	Employees  int   `json:"employees"`
}

// AgeBracket aggregates customer activity by age range.
type AgeBracket struct {
	Label        string          `json:"label"`
	Midpoint     float64         `json:"midpoint"`
	Customers    int             `json:"customers"`
	MeanVolume   decimal.Decimal `json:"mean_volume"` // mean of per-customer totals
	Transactions int             `json:"transactions"`
}

// BranchTypeSummary aggregates activity by branch type.
type BranchTypeSummary struct {
	Type         string          `json:"type"`
	Branches     int             `json:"branches"`
	Accounts     int             `json:"accounts"`
	Transactions int             `json:"transactions"`
	Volume       decimal.Decimal `json:"volume"`
}

// GroupSummary is a transaction count and mean absolute amount for a group.
type GroupSummary struct {
	Transactions int             `json:"transactions"`
	MeanVolume   decimal.Decimal `json:"mean_volume"`
}

// QuarterSummary groups transactions by calendar quarter across years.
type QuarterSummary struct {
	Quarter int `json:"quarter"`
	GroupSummary
}

// Report holds every aggregate.
type Report struct {
	Monthly            []MonthlyVolume     `json:"monthly"`
	ProposalsByStatus  []StatusCount       `json:"proposals_by_status"`
	ApprovalRate       *float64            `json:"approval_rate,omitempty"`
	BalanceCorrelation *float64            `json:"balance_correlation,omitempty"`
	AccountsOpened     []MonthCount        `json:"accounts_opened"`
	States             []StateCount        `json:"states"`
	EmployeesPerBranch []BranchEmployees   `json:"employees_per_branch"`
	AgeBrackets        []AgeBracket        `json:"age_brackets"`
	BranchTypes        []BranchTypeSummary `json:"branch_types"`
	Quarters           []QuarterSummary    `json:"quarters"`
	MonthsWithR        GroupSummary        `json:"months_with_r"`
	MonthsWithoutR     GroupSummary        `json:"months_without_r"`
	Macro              []MacroComparison   `json:"macro,omitempty"`
}

// Analyze computes every aggregate over a clean dataset.
func Analyze(ds *bank.Dataset) *Report {
	r := &Report{
		Monthly:            MonthlyTransactions(ds.Transactions),
		ProposalsByStatus:  ProposalsByMonthStatus(ds.Proposals),
		AccountsOpened:     AccountsOpened(ds.Accounts),
		States:             ByState(ds.Branches, ds.Accounts),
		EmployeesPerBranch: EmployeesPerBranch(ds.Employees),
		AgeBrackets:        AgeBrackets(ds),
		BranchTypes:        ByBranchType(ds),
		Quarters:           ByQuarter(ds.Transactions),
	}
	if v, ok := ApprovalRate(ds.Proposals); ok {
		r.ApprovalRate = &v
	}
	if v, ok := BalanceCorrelation(ds.Accounts); ok {
		r.BalanceCorrelation = &v
	}
	r.MonthsWithR, r.MonthsWithoutR = ByMonthR(ds.Transactions)
	return r
}

// MonthlyTransactions counts transactions and sums their amounts per month.
// Transactions without a period are skipped.
func MonthlyTransactions(txs []bank.Transaction) []MonthlyVolume {
	byMonth := make(map[string]*MonthlyVolume)
	for _, t := range txs {
		if t.Period == "" {
			continue
		}
		m, ok := byMonth[t.Period]
		if !ok {
			m = &MonthlyVolume{Month: t.Period}
			byMonth[t.Period] = m
		}
		m.Count++
		if t.AbsoluteAmount.Valid {
			m.Volume = m.Volume.Add(t.AbsoluteAmount.Decimal)
		}
		if t.Amount.Valid {
			m.Net = m.Net.Add(t.Amount.Decimal)
		}
	}
	out := make([]MonthlyVolume, 0, len(byMonth))
	for _, k := range sortedKeys(byMonth) {
		out = append(out, *byMonth[k])
	}
	return out
}

// ProposalsByMonthStatus counts proposals per entry month and status.
func ProposalsByMonthStatus(ps []bank.Proposal) []StatusCount {
	type key struct{ month, status string }
	counts := make(map[key]int)
	for _, p := range ps {
		if p.EntryPeriod == "" || p.Status == "" {
			continue
		}
		counts[key{p.EntryPeriod, p.Status}]++
	}
	out := make([]StatusCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, StatusCount{Month: k.month, Status: k.status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Status < out[j].Status
	})
	return out
}

// ApprovalRate returns the percentage of proposals with status "aprovada",
// compared case-insensitively, among proposals with a code.
func ApprovalRate(ps []bank.Proposal) (float64, bool) {
	total, approved := 0, 0
	for _, p := range ps {
		if p.Code == nil {
			continue
		}
		total++
		if strings.EqualFold(p.Status, "aprovada") {
			approved++
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(approved) / float64(total) * 100, true
}

// BalanceCorrelation is the Pearson correlation between total and available
// balance over accounts that carry both.
func BalanceCorrelation(accs []bank.Account) (float64, bool) {
	var x, y []float64
	for _, a := range accs {
		if !a.TotalBalance.Valid || !a.AvailableBalance.Valid {
			continue
		}
		x = append(x, a.TotalBalance.Decimal.InexactFloat64())
		y = append(y, a.AvailableBalance.Decimal.InexactFloat64())
	}
	return Pearson(x, y)
}

// AccountsOpened counts accounts per opening month with a running total.
func AccountsOpened(accs []bank.Account) []MonthCount {
	counts := make(map[string]int)
	for _, a := range accs {
		if a.OpeningPeriod != "" && a.Number != nil {
			counts[a.OpeningPeriod]++
		}
	}
	out := make([]MonthCount, 0, len(counts))
	total := 0
	for _, m := range sortedKeys(counts) {
		total += counts[m]
		out = append(out, MonthCount{Month: m, Count: counts[m], Cumulative: total})
	}
	return out
}

func branchIndex(branches []bank.Branch) map[int64]bank.Branch {
	idx := make(map[int64]bank.Branch, len(branches))
	for _, b := range branches {
		if b.Code != nil {
			if _, dup := idx[*b.Code]; !dup {
				idx[*b.Code] = b
			}
		}
	}
	return idx
}

func accountIndex(accs []bank.Account) map[int64]bank.Account {
	idx := make(map[int64]bank.Account, len(accs))
	for _, a := range accs {
		if a.Number != nil {
			if _, dup := idx[*a.Number]; !dup {
				idx[*a.Number] = a
			}
		}
	}
	return idx
}

// ByState counts branches and the accounts held at them per state.
func ByState(branches []bank.Branch, accs []bank.Account) []StateCount {
	byState := make(map[string]*StateCount)
	get := func(uf string) *StateCount {
		s, ok := byState[uf]
		if !ok {
			s = &StateCount{State: uf}
			byState[uf] = s
		}
		return s
	}
	for _, b := range branches {
		if b.State != "" && b.Code != nil {
			get(b.State).Branches++
		}
	}
	idx := branchIndex(branches)
	for _, a := range accs {
		if a.BranchCode == nil || a.Number == nil {
			continue
		}
		if b, ok := idx[*a.BranchCode]; ok && b.State != "" {
			get(b.State).Accounts++
		}
	}
	out := make([]StateCount, 0, len(byState))
	for _, k := range sortedKeys(byState) {
		out = append(out, *byState[k])
	}
	return out
}

// EmployeesPerBranch counts employee rows per branch. Employees without a
// branch are not counted.
func EmployeesPerBranch(emps []bank.Employee) []BranchEmployees {
	counts := make(map[int64]int)
	for _, e := range emps {
		if e.BranchCode != nil {
			counts[*e.BranchCode]++
		}
	}
	out := make([]BranchEmployees, 0, len(counts))
	for code, n := range counts {
		out = append(out, BranchEmployees{BranchCode: code, Employees: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BranchCode < out[j].BranchCode })
	return out
}

// brackets are half-open age ranges [lo, hi).
var brackets = []struct {
	lo, hi   int
	label    string
	midpoint float64
}{
	{0, 20, "0-20", 10},
	{20, 30, "21-30", 25.5},
	{30, 40, "31-40", 35.5},
	{40, 50, "41-50", 45.5},
	{50, 60, "51-60", 55.5},
	{60, 100, "61+", 70.5},
}

// BracketOf returns the index of the bracket containing age, or -1.
func BracketOf(age int) int {
	for i, b := range brackets {
		if age >= b.lo && age < b.hi {
			return i
		}
	}
	return -1
}

// AgeBrackets totals each customer's transactions, reached through their
// accounts, and aggregates the totals by the customer's age bracket.
// Customers without transactions or without an age are left out.
func AgeBrackets(ds *bank.Dataset) []AgeBracket {
	accounts := accountIndex(ds.Accounts)
	ages := make(map[int64]int, len(ds.Customers))
	for _, c := range ds.Customers {
		if c.Code != nil && c.Age != nil {
			if _, dup := ages[*c.Code]; !dup {
				ages[*c.Code] = *c.Age
			}
		}
	}

	type totals struct {
		volume decimal.Decimal
		count  int
	}
	perCustomer := make(map[int64]*totals)
	for _, t := range ds.Transactions {
		if t.AccountNumber == nil {
			continue
		}
		a, ok := accounts[*t.AccountNumber]
		if !ok || a.CustomerCode == nil {
			continue
		}
		c := *a.CustomerCode
		tot, ok := perCustomer[c]
		if !ok {
			tot = &totals{}
			perCustomer[c] = tot
		}
		tot.count++
		if t.AbsoluteAmount.Valid {
			tot.volume = tot.volume.Add(t.AbsoluteAmount.Decimal)
		}
	}

	out := make([]AgeBracket, len(brackets))
	sums := make([]decimal.Decimal, len(brackets))
	for i, b := range brackets {
		out[i] = AgeBracket{Label: b.label, Midpoint: b.midpoint}
	}
	for code, tot := range perCustomer {
		age, ok := ages[code]
		if !ok {
			continue
		}
		i := BracketOf(age)
		if i < 0 {
			continue
		}
		out[i].Customers++
		out[i].Transactions += tot.count
		sums[i] = sums[i].Add(tot.volume)
	}
	for i := range out {
		if out[i].Customers > 0 {
			out[i].MeanVolume = sums[i].Div(decimal.NewFromInt(int64(out[i].Customers)))
		}
	}
	return out
}

// ByBranchType counts branches, accounts and transactions per branch type.
// Transactions reach their branch through their account.
func ByBranchType(ds *bank.Dataset) []BranchTypeSummary {
	byType := make(map[string]*BranchTypeSummary)
	get := func(t string) *BranchTypeSummary {
		s, ok := byType[t]
		if !ok {
			s = &BranchTypeSummary{Type: t}
			byType[t] = s
		}
		return s
	}
	for _, b := range ds.Branches {
		if b.Type != "" {
			get(b.Type).Branches++
		}
	}
	branches := branchIndex(ds.Branches)
	typeOf := func(a bank.Account) string {
		if a.BranchCode == nil {
			return ""
		}
		return branches[*a.BranchCode].Type
	}
	for _, a := range ds.Accounts {
		if t := typeOf(a); t != "" {
			get(t).Accounts++
		}
	}
	accounts := accountIndex(ds.Accounts)
	for _, tx := range ds.Transactions {
		if tx.AccountNumber == nil {
			continue
		}
		a, ok := accounts[*tx.AccountNumber]
		if !ok {
			continue
		}
		if t := typeOf(a); t != "" {
			s := get(t)
			s.Transactions++
			if tx.AbsoluteAmount.Valid {
				s.Volume = s.Volume.Add(tx.AbsoluteAmount.Decimal)
			}
		}
	}
	out := make([]BranchTypeSummary, 0, len(byType))
	for _, k := range sortedKeys(byType) {
		out = append(out, *byType[k])
	}
	return out
}

type accumulator struct {
	count  int
	n      int64
	volume decimal.Decimal
}

func (a *accumulator) add(t bank.Transaction) {
	a.count++
	if t.AbsoluteAmount.Valid {
		a.n++
		a.volume = a.volume.Add(t.AbsoluteAmount.Decimal)
	}
}

func (a *accumulator) summary() GroupSummary {
	s := GroupSummary{Transactions: a.count}
	if a.n > 0 {
		s.MeanVolume = a.volume.Div(decimal.NewFromInt(a.n))
	}
	return s
}

// ByQuarter groups transactions by calendar quarter.
func ByQuarter(txs []bank.Transaction) []QuarterSummary {
	acc := make(map[int]*accumulator)
	for _, t := range txs {
		m, ok := month(t.Period)
		if !ok {
			continue
		}
		q := (int(m)-1)/3 + 1
		if acc[q] == nil {
			acc[q] = &accumulator{}
		}
		acc[q].add(t)
	}
	out := make([]QuarterSummary, 0, len(acc))
	for q := 1; q <= 4; q++ {
		if a, ok := acc[q]; ok {
			out = append(out, QuarterSummary{Quarter: q, GroupSummary: a.summary()})
		}
	}
	return out
}

// monthNames are the Portuguese month names.
var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// HasR reports whether the Portuguese name of m contains the letter r.
func HasR(m time.Month) bool {
	return strings.ContainsRune(monthNames[m-1], 'r')
}

// ByMonthR splits transactions by whether their month's name contains "r".
func ByMonthR(txs []bank.Transaction) (withR, withoutR GroupSummary) {
	var yes, no accumulator
	for _, t := range txs {
		m, ok := month(t.Period)
		if !ok {
			continue
		}
		if HasR(m) {
			yes.add(t)
		} else {
			no.add(t)
		}
	}
	return yes.summary(), no.summary()
}

func month(period string) (time.Month, bool) {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return 0, false
	}
	return t.Month(), true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
