package analysis

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankclean/bankclean/internal/bank"
)

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func tx(code, account int64, period, amount string) bank.Transaction {
	d := decimal.RequireFromString(amount)
	return bank.Transaction{
		Code:           bank.Ptr(code),
		AccountNumber:  bank.Ptr(account),
		Period:         period,
		Amount:         decimal.NewNullDecimal(d),
		AbsoluteAmount: decimal.NewNullDecimal(d.Abs()),
	}
}

func fixture() *bank.Dataset {
	return &bank.Dataset{
		Branches: []bank.Branch{
			{Code: bank.Ptr[int64](1), State: "SP", Type: "Digital"},
			{Code: bank.Ptr[int64](2), State: "RJ", Type: "Física"},
			{Code: bank.Ptr[int64](3), State: "SP", Type: "Física"},
		},
		Customers: []bank.Customer{
			{Code: bank.Ptr[int64](10), Age: bank.Ptr(25)},
			{Code: bank.Ptr[int64](11), Age: bank.Ptr(65)},
			{Code: bank.Ptr[int64](12), Age: bank.Ptr(15)},
		},
		Employees: []bank.Employee{
			{Code: bank.Ptr[int64](100), BranchCode: bank.Ptr[int64](1)},
			{Code: bank.Ptr[int64](101), BranchCode: bank.Ptr[int64](1)},
			{Code: bank.Ptr[int64](102), BranchCode: bank.Ptr[int64](2)},
			{Code: bank.Ptr[int64](103)},
		},
		Accounts: []bank.Account{
			{Number: bank.Ptr[int64](500), CustomerCode: bank.Ptr[int64](10), BranchCode: bank.Ptr[int64](1), OpeningPeriod: "2023-01", TotalBalance: dec("100"), AvailableBalance: dec("50")},
			{Number: bank.Ptr[int64](501), CustomerCode: bank.Ptr[int64](11), BranchCode: bank.Ptr[int64](2), OpeningPeriod: "2023-01", TotalBalance: dec("200"), AvailableBalance: dec("100")},
			{Number: bank.Ptr[int64](502), CustomerCode: bank.Ptr[int64](10), BranchCode: bank.Ptr[int64](3), OpeningPeriod: "2023-03", TotalBalance: dec("300"), AvailableBalance: dec("150")},
		},
		Proposals: []bank.Proposal{
			{Code: bank.Ptr[int64](1), EntryPeriod: "2023-01", Status: "Aprovada"},
			{Code: bank.Ptr[int64](2), EntryPeriod: "2023-01", Status: "Reprovada"},
			{Code: bank.Ptr[int64](3), EntryPeriod: "2023-02", Status: "aprovada"},
			{Code: bank.Ptr[int64](4), EntryPeriod: "2023-02", Status: "Em análise"},
		},
		Transactions: []bank.Transaction{
			tx(1, 500, "2023-01", "-100"),
			tx(2, 500, "2023-01", "50"),
			tx(3, 501, "2023-05", "200"),
			tx(4, 502, "2023-10", "-30"),
		},
	}
}

func TestMonthlyTransactions(t *testing.T) {
	got := MonthlyTransactions(fixture().Transactions)
	if len(got) != 3 {
		t.Fatalf("expected 3 months, got %+v", got)
	}
	jan := got[0]
	if jan.Month != "2023-01" || jan.Count != 2 {
		t.Errorf("unexpected first month %+v", jan)
	}
	if !jan.Volume.Equal(decimal.NewFromInt(150)) || !jan.Net.Equal(decimal.NewFromInt(-50)) {
		t.Errorf("volume %s net %s", jan.Volume, jan.Net)
	}
	if got[2].Month != "2023-10" {
		t.Errorf("months should be sorted, got %s last", got[2].Month)
	}
}

func TestProposals(t *testing.T) {
	ps := fixture().Proposals
	counts := ProposalsByMonthStatus(ps)
	if len(counts) != 4 || counts[0].Month != "2023-01" || counts[0].Status != "Aprovada" {
		t.Errorf("unexpected counts %+v", counts)
	}
	rate, ok := ApprovalRate(ps)
	if !ok || rate != 50 {
		t.Errorf("approval rate = %v, %v; want 50", rate, ok)
	}
	if _, ok := ApprovalRate(nil); ok {
		t.Error("no proposals should have no rate")
	}
}

func TestBalanceCorrelation(t *testing.T) {
	r, ok := BalanceCorrelation(fixture().Accounts)
	if !ok || math.Abs(r-1) > 1e-9 {
		t.Errorf("correlation = %v, %v; want 1", r, ok)
	}
}

func TestAccountsOpened(t *testing.T) {
	got := AccountsOpened(fixture().Accounts)
	want := []MonthCount{{"2023-01", 2, 2}, {"2023-03", 1, 3}}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestByState(t *testing.T) {
	ds := fixture()
	got := ByState(ds.Branches, ds.Accounts)
	want := []StateCount{{"RJ", 1, 1}, {"SP", 2, 2}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestEmployeesPerBranch(t *testing.T) {
	got := EmployeesPerBranch(fixture().Employees)
	if len(got) != 2 || got[0] != (BranchEmployees{1, 2}) || got[1] != (BranchEmployees{2, 1}) {
		t.Errorf("got %+v", got)
	}
}

func TestAgeBrackets(t *testing.T) {
	got := AgeBrackets(fixture())
	if len(got) != 6 {
		t.Fatalf("expected 6 brackets, got %d", len(got))
	}
	young := got[0]
	if young.Label != "0-20" || young.Customers != 0 {
		t.Errorf("customer without transactions should not count: %+v", young)
	}
	twenties := got[1]
	if twenties.Label != "21-30" || twenties.Midpoint != 25.5 || twenties.Customers != 1 || twenties.Transactions != 3 {
		t.Errorf("unexpected bracket %+v", twenties)
	}
	if !twenties.MeanVolume.Equal(decimal.NewFromInt(180)) {
		t.Errorf("mean volume = %s, want 180", twenties.MeanVolume)
	}
	senior := got[5]
	if senior.Label != "61+" || senior.Customers != 1 || !senior.MeanVolume.Equal(decimal.NewFromInt(200)) {
		t.Errorf("unexpected bracket %+v", senior)
	}
}

func TestBracketOf(t *testing.T) {
	tests := []struct {
		age  int
		want int
	}{
		{0, 0}, {19, 0}, {20, 1}, {29, 1}, {30, 2}, {59, 4}, {60, 5}, {99, 5}, {100, -1}, {-1, -1},
	}
	for _, tt := range tests {
		if got := BracketOf(tt.age); got != tt.want {
			t.Errorf("BracketOf(%d) = %d, want %d", tt.age, got, tt.want)
		}
	}
}

func TestByBranchType(t *testing.T) {
	got := ByBranchType(fixture())
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	digital, physical := got[0], got[1]
	if digital.Type != "Digital" || digital.Branches != 1 || digital.Accounts != 1 || digital.Transactions != 2 {
		t.Errorf("unexpected %+v", digital)
	}
	if physical.Branches != 2 || physical.Accounts != 2 || physical.Transactions != 2 || !physical.Volume.Equal(decimal.NewFromInt(230)) {
		t.Errorf("unexpected %+v", physical)
	}
}

func TestByQuarter(t *testing.T) {
	got := ByQuarter(fixture().Transactions)
	if len(got) != 3 {
		t.Fatalf("expected quarters 1, 2 and 4, got %+v", got)
	}
	if got[0].Quarter != 1 || got[0].Transactions != 2 || !got[0].MeanVolume.Equal(decimal.NewFromInt(75)) {
		t.Errorf("unexpected Q1 %+v", got[0])
	}
	if got[2].Quarter != 4 || !got[2].MeanVolume.Equal(decimal.NewFromInt(30)) {
		t.Errorf("unexpected Q4 %+v", got[2])
	}
}

func TestByMonthR(t *testing.T) {
	withR, withoutR := ByMonthR(fixture().Transactions)
	// janeiro and outubro carry an "r", maio does not.
	if withR.Transactions != 3 || !withR.MeanVolume.Equal(decimal.NewFromInt(60)) {
		t.Errorf("with r: %+v", withR)
	}
	if withoutR.Transactions != 1 || !withoutR.MeanVolume.Equal(decimal.NewFromInt(200)) {
		t.Errorf("without r: %+v", withoutR)
	}
}

func TestHasR(t *testing.T) {
	var with []string
	for m := 1; m <= 12; m++ {
		if HasR(time.Month(m)) {
			with = append(with, monthNames[m-1])
		}
	}
	want := "janeiro fevereiro março abril setembro outubro novembro dezembro"
	if strings.Join(with, " ") != want {
		t.Errorf("got %v", with)
	}
}

func TestPearson(t *testing.T) {
	if r, ok := Pearson([]float64{1, 2, 3}, []float64{6, 4, 2}); !ok || math.Abs(r+1) > 1e-9 {
		t.Errorf("expected -1, got %v %v", r, ok)
	}
	if r, ok := Pearson([]float64{1, math.NaN(), 2, 3}, []float64{2, 100, 4, 6}); !ok || math.Abs(r-1) > 1e-9 {
		t.Errorf("NaN pairs should be skipped, got %v %v", r, ok)
	}
	if _, ok := Pearson([]float64{1, 2}, []float64{5, 5}); ok {
		t.Error("constant series has no correlation")
	}
	if _, ok := Pearson([]float64{1}, []float64{1}); ok {
		t.Error("one pair has no correlation")
	}
}

func TestMinMax(t *testing.T) {
	got := MinMax([]float64{10, 20, 15})
	if got[0] != 0 || got[1] != 1 || got[2] != 0.5 {
		t.Errorf("got %v", got)
	}
	if got := MinMax([]float64{3, 3}); got[0] != 0 || got[1] != 0 {
		t.Errorf("constant series should scale to zero, got %v", got)
	}
}

func TestCompareMacro(t *testing.T) {
	monthly := MonthlyTransactions(fixture().Transactions)
	index := map[string]float64{"2023-01": 1, "2023-05": 2, "2023-10": 3, "2024-01": 9}
	c := CompareMacro("ipca", monthly, index)
	if len(c.Points) != 3 {
		t.Fatalf("expected 3 joined months, got %+v", c.Points)
	}
	if c.Points[1].VolumeScaled != 1 || c.Points[2].VolumeScaled != 0 {
		t.Errorf("unexpected scaling %+v", c.Points)
	}
	if c.Points[0].IndexScaled != 0 || c.Points[2].IndexScaled != 1 {
		t.Errorf("unexpected index scaling %+v", c.Points)
	}
	if c.VolumeCorrelation == nil || c.CountCorrelation == nil {
		t.Fatal("expected correlations")
	}

	empty := CompareMacro("icc", monthly, nil)
	if len(empty.Points) != 0 || empty.VolumeCorrelation != nil {
		t.Errorf("no overlap should give no points, got %+v", empty)
	}
}

func TestAnalyzeAndWriteText(t *testing.T) {
	r := Analyze(fixture())
	if r.ApprovalRate == nil || *r.ApprovalRate != 50 {
		t.Errorf("approval rate %v", r.ApprovalRate)
	}
	r.AddMacro([]string{"ipca"}, map[string]map[string]float64{"ipca": {"2023-01": 1, "2023-05": 2}})
	if len(r.Macro) != 1 || len(r.Macro[0].Points) != 2 {
		t.Errorf("unexpected macro %+v", r.Macro)
	}

	var buf bytes.Buffer
	if err := WriteText(&buf, r); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Approval rate: 50.00%",
		"  MONTH    COUNT  VOLUME  NET\n  2023-01  2      150.00  -50.00\n",
		"Macro ipca:",
		"  Q4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
