package analytics

import (
	"fmt"
	"testing"
	"time"

	"chantierpro/internal/core"
)

var testNow = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

func doc(status core.DocumentStatus, date time.Time, ttcCents int64) core.Document {
	return core.Document{
		ID:     fmt.Sprintf("doc-%s-%d", status, ttcCents),
		Type:   core.Devis,
		Status: status,
		Date:   date,
		Totals: core.Totals{TTCGross: core.Money{Cents: ttcCents}},
	}
}

func TestReportConversionExcludesDrafts(t *testing.T) {
	d := testNow
	snap := Snapshot{Documents: []core.Document{
		doc(core.StatusDraft, d, 10000),
		doc(core.StatusDraft, d, 20000),
		doc(core.StatusSent, d, 30000),
		doc(core.StatusSent, d, 40000),
		doc(core.StatusAccepted, d, 50000),
	}}

	r, err := BuildReport(snap, Selector{Period: PeriodMonth}, testNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if r.KPIs.SentCount != 3 {
		t.Fatalf("sentCount = %d, want 3 (drafts excluded)", r.KPIs.SentCount)
	}
	if r.KPIs.SignedCount != 1 {
		t.Fatalf("signedCount = %d, want 1", r.KPIs.SignedCount)
	}
	if r.KPIs.ConversionRate != 33.33 {
		t.Fatalf("conversionRate = %v, want 33.33", r.KPIs.ConversionRate)
	}
	if r.KPIs.DraftCount != 2 || r.KPIs.DraftAmount.Cents != 30000 {
		t.Fatalf("drafts = %d/%d, want 2/30000", r.KPIs.DraftCount, r.KPIs.DraftAmount.Cents)
	}
	// Pipeline does include drafts, unlike the pending figures.
	if r.KPIs.PipelineValue.Cents != 100000 {
		t.Fatalf("pipeline = %d, want 100000", r.KPIs.PipelineValue.Cents)
	}
	if r.KPIs.PendingCount != 2 || r.KPIs.PendingAmount.Cents != 70000 {
		t.Fatalf("pending = %d/%d, want 2/70000", r.KPIs.PendingCount, r.KPIs.PendingAmount.Cents)
	}
}

func TestReportNullBaselineComparison(t *testing.T) {
	// One accepted document this month, nothing in the preceding window.
	snap := Snapshot{Documents: []core.Document{
		doc(core.StatusAccepted, testNow, 100000),
	}}

	r, err := BuildReport(snap, Selector{Period: PeriodMonth}, testNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if r.KPIs.CA.Cents != 100000 {
		t.Fatalf("ca = %d, want 100000", r.KPIs.CA.Cents)
	}
	if r.Comparisons.CA != nil {
		t.Fatalf("comparisons.ca = %v, want nil (zero baseline)", *r.Comparisons.CA)
	}
	if r.Comparisons.Expenses != nil || r.Comparisons.Margin != nil {
		t.Fatalf("expenses/margin comparisons should be nil on zero baselines")
	}
	if r.Prior == nil {
		t.Fatalf("month period should have a prior window")
	}
}

func TestReportPeriodAllDisablesComparison(t *testing.T) {
	snap := Snapshot{Documents: []core.Document{
		doc(core.StatusAccepted, testNow, 100000),
		doc(core.StatusAccepted, testNow.AddDate(-1, 0, 0), 50000),
	}}

	r, err := BuildReport(snap, Selector{Period: PeriodAll}, testNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if r.Prior != nil {
		t.Fatalf("all period must have no prior window")
	}
	if r.Comparisons.CA != nil || r.Comparisons.Expenses != nil ||
		r.Comparisons.ConversionRate != nil || r.Comparisons.Margin != nil {
		t.Fatalf("all comparisons must be nil for period=all")
	}
	if r.KPIs.CA.Cents != 150000 {
		t.Fatalf("all period ca = %d, want 150000 (no filtering)", r.KPIs.CA.Cents)
	}
}

func TestReportComparisons(t *testing.T) {
	prior := testNow.AddDate(0, -1, 0)
	snap := Snapshot{
		Documents: []core.Document{
			doc(core.StatusAccepted, testNow, 120000),
			doc(core.StatusAccepted, prior, 100000),
			doc(core.StatusSent, prior, 100000),
		},
		Expenses: []core.Expense{
			{ID: "e1", Date: testNow, Amount: core.Money{Cents: 20000}},
			{ID: "e2", Date: prior, Amount: core.Money{Cents: 40000}},
		},
	}

	r, err := BuildReport(snap, Selector{Period: PeriodMonth}, testNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if r.Comparisons.CA == nil || *r.Comparisons.CA != 20 {
		t.Fatalf("ca trend = %v, want 20", r.Comparisons.CA)
	}
	if r.Comparisons.Expenses == nil || *r.Comparisons.Expenses != -50 {
		t.Fatalf("expenses trend = %v, want -50", r.Comparisons.Expenses)
	}
	// Prior: 1 signed of 2 sent = 50%; current: 1 of 1 = 100%.
	// Point difference, not percent change.
	if r.Comparisons.ConversionRate == nil || *r.Comparisons.ConversionRate != 50 {
		t.Fatalf("conversion trend = %v, want 50 points", r.Comparisons.ConversionRate)
	}
	// Margin prior 60000, current 100000 -> +66.67% of |prev|.
	if r.Comparisons.Margin == nil || *r.Comparisons.Margin != 66.67 {
		t.Fatalf("margin trend = %v, want 66.67", r.Comparisons.Margin)
	}
}

func TestReportMarginComparisonNegativeBaseline(t *testing.T) {
	prior := testNow.AddDate(0, -1, 0)
	snap := Snapshot{
		Documents: []core.Document{
			doc(core.StatusAccepted, testNow, 50000),
			doc(core.StatusAccepted, prior, 10000),
		},
		Expenses: []core.Expense{
			{ID: "e1", Date: prior, Amount: core.Money{Cents: 30000}}, // prior margin -200.00
		},
	}

	r, err := BuildReport(snap, Selector{Period: PeriodMonth}, testNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// current 500.00, prior -200.00: (500 - (-200)) / |-200| = +350%.
	if r.Comparisons.Margin == nil || *r.Comparisons.Margin != 350 {
		t.Fatalf("margin trend = %v, want 350", r.Comparisons.Margin)
	}
}

func TestReportRankings(t *testing.T) {
	var docs []core.Document
	var projects []core.Project
	var clients []core.Client
	var expenses []core.Expense

	// 12 clients each with one active project and one accepted document;
	// client i bills (12-i)*100 euros so the ranking order is known.
	for i := 0; i < 12; i++ {
		cid := fmt.Sprintf("c%02d", i)
		pid := fmt.Sprintf("p%02d", i)
		clients = append(clients, core.Client{ID: cid, FirstName: "Client", LastName: fmt.Sprintf("%02d", i)})
		projects = append(projects, core.Project{ID: pid, Name: "Chantier " + cid, ClientID: cid, Status: core.ProjectActive})
		d := doc(core.StatusAccepted, testNow, int64(12-i)*10000)
		d.ID = "d" + cid
		d.ClientID = cid
		d.ProjectID = pid
		docs = append(docs, d)
		expenses = append(expenses, core.Expense{
			ID: "e" + cid, Date: testNow, Amount: core.Money{Cents: 5000}, ProjectID: pid,
		})
	}

	snap := Snapshot{Documents: docs, Expenses: expenses, Projects: projects, Clients: clients}
	r, err := BuildReport(snap, Selector{Period: PeriodMonth}, testNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(r.TopClients) != 10 {
		t.Fatalf("top clients = %d, want capped at 10", len(r.TopClients))
	}
	if len(r.ProjectRanking) != 10 {
		t.Fatalf("project ranking = %d, want capped at 10", len(r.ProjectRanking))
	}
	for i := 1; i < len(r.TopClients); i++ {
		if r.TopClients[i].Revenue.Cents > r.TopClients[i-1].Revenue.Cents {
			t.Fatalf("top clients not sorted descending at %d", i)
		}
	}
	for i := 1; i < len(r.ProjectRanking); i++ {
		if r.ProjectRanking[i].Revenue.Cents > r.ProjectRanking[i-1].Revenue.Cents {
			t.Fatalf("project ranking not sorted descending at %d", i)
		}
	}

	top := r.TopClients[0]
	if top.ClientID != "c00" || top.Revenue.Cents != 120000 {
		t.Fatalf("top client = %s/%d, want c00/120000", top.ClientID, top.Revenue.Cents)
	}
	if top.Expenses.Cents != 5000 || top.Margin.Cents != 115000 {
		t.Fatalf("top client expenses/margin = %d/%d, want 5000/115000", top.Expenses.Cents, top.Margin.Cents)
	}
	if top.Name != "Client 00" {
		t.Fatalf("top client name = %q", top.Name)
	}
}

func TestReportProjectRankingFiltersStatus(t *testing.T) {
	snap := Snapshot{
		Projects: []core.Project{
			{ID: "p1", Name: "Actif", Status: core.ProjectActive},
			{ID: "p2", Name: "Prospect", Status: core.ProjectProspect},
			{ID: "p3", Name: "Fini", Status: core.ProjectCompleted},
			{ID: "p4", Name: "Pause", Status: core.ProjectOnHold},
		},
	}
	r, err := BuildReport(snap, Selector{Period: PeriodAll}, testNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(r.ProjectRanking) != 2 {
		t.Fatalf("ranking = %d entries, want 2 (active+completed only)", len(r.ProjectRanking))
	}
}

func TestReportMarginDistribution(t *testing.T) {
	mkProject := func(i int, revCents, expCents int64) (core.Project, core.Document, core.Expense) {
		pid := fmt.Sprintf("p%d", i)
		p := core.Project{ID: pid, Name: pid, Status: core.ProjectActive}
		d := doc(core.StatusAccepted, testNow, revCents)
		d.ID = "d" + pid
		d.ProjectID = pid
		e := core.Expense{ID: "e" + pid, Date: testNow, Amount: core.Money{Cents: expCents}, ProjectID: pid}
		return p, d, e
	}

	var snap Snapshot
	for i, tc := range []struct{ rev, exp int64 }{
		{100000, 50000},  // 50% margin: excellent
		{100000, 80000},  // 20%: good
		{100000, 95000},  // 5%: low
		{100000, 120000}, // -20%: negative
		{0, 10000},       // no revenue: ignored by distribution
	} {
		p, d, e := mkProject(i, tc.rev, tc.exp)
		snap.Projects = append(snap.Projects, p)
		if tc.rev > 0 {
			snap.Documents = append(snap.Documents, d)
		}
		snap.Expenses = append(snap.Expenses, e)
	}

	r, err := BuildReport(snap, Selector{Period: PeriodMonth}, testNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	dist := r.MarginDistribution
	if dist.Excellent != 1 || dist.Good != 1 || dist.Low != 1 || dist.Negative != 1 {
		t.Fatalf("distribution = %+v, want 1/1/1/1", dist)
	}
	// (50 + 20 + 5 - 20) / 4
	if r.AvgProjectMargin != 13.75 {
		t.Fatalf("avg project margin = %v, want 13.75", r.AvgProjectMargin)
	}
}

func TestReportMonthlySeriesIgnoresPeriodFilter(t *testing.T) {
	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Documents: []core.Document{
			doc(core.StatusAccepted, jan, 80000),
			doc(core.StatusAccepted, testNow, 20000),
			doc(core.StatusAccepted, testNow.AddDate(-1, 0, 0), 99999), // previous year: excluded
			doc(core.StatusSent, jan, 70000),                          // not accepted: excluded
		},
		Expenses: []core.Expense{
			{ID: "e1", Date: jan, Amount: core.Money{Cents: 30000}},
		},
	}

	// Month selector filters KPIs to June, but the series still covers the
	// whole current calendar year.
	r, err := BuildReport(snap, Selector{Period: PeriodMonth}, testNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(r.MonthlySeries) != 12 {
		t.Fatalf("series length = %d, want 12", len(r.MonthlySeries))
	}
	if r.MonthlySeries[0].Revenue.Cents != 80000 {
		t.Fatalf("january revenue = %d, want 80000", r.MonthlySeries[0].Revenue.Cents)
	}
	if r.MonthlySeries[0].Expenses.Cents != 30000 || r.MonthlySeries[0].Margin.Cents != 50000 {
		t.Fatalf("january expenses/margin = %d/%d, want 30000/50000",
			r.MonthlySeries[0].Expenses.Cents, r.MonthlySeries[0].Margin.Cents)
	}
	if r.MonthlySeries[5].Revenue.Cents != 20000 {
		t.Fatalf("june revenue = %d, want 20000", r.MonthlySeries[5].Revenue.Cents)
	}
	if r.MonthlySeries[0].Label != "Jan" || r.MonthlySeries[11].Label != "Dec" {
		t.Fatalf("labels wrong: %s..%s", r.MonthlySeries[0].Label, r.MonthlySeries[11].Label)
	}
}

func TestReportDistributionsAndCashFlow(t *testing.T) {
	snap := Snapshot{
		Documents: []core.Document{
			doc(core.StatusDraft, testNow, 0),
			doc(core.StatusAccepted, testNow, 10000),
			{ID: "weird", Type: core.Devis, Status: "acompte_facture", Date: testNow}, // unknown status
			{ID: "empty", Type: core.Devis, Date: testNow},                           // missing status
		},
		Projects: []core.Project{
			{ID: "p1", Status: core.ProjectActive},
			{ID: "p2"}, // missing status
		},
		Payments: []core.Payment{
			{ID: "pay1", Date: testNow, Amount: core.Money{Cents: 50000}},
			{ID: "pay2", Date: testNow.AddDate(0, -6, 0), Amount: core.Money{Cents: 99999}}, // outside period
		},
		Expenses: []core.Expense{
			{ID: "e1", Date: testNow, Amount: core.Money{Cents: 20000}, Category: "Materiaux"},
			{ID: "e2", Date: testNow, Amount: core.Money{Cents: 5000}}, // no category
		},
	}

	r, err := BuildReport(snap, Selector{Period: PeriodMonth}, testNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if r.DocumentsByStatus["acompte_facture"] != 1 {
		t.Fatalf("unknown status must group under its literal value: %v", r.DocumentsByStatus)
	}
	if r.DocumentsByStatus["brouillon"] != 2 {
		t.Fatalf("missing status must default to brouillon: %v", r.DocumentsByStatus)
	}
	if r.ProjectsByStatus["en_attente"] != 1 || r.ProjectsByStatus["en_cours"] != 1 {
		t.Fatalf("project distribution wrong: %v", r.ProjectsByStatus)
	}

	if r.CashFlow.TotalPayments.Cents != 50000 {
		t.Fatalf("payments = %d, want 50000 (period filtered)", r.CashFlow.TotalPayments.Cents)
	}
	if r.CashFlow.TotalExpenses.Cents != 25000 || r.CashFlow.Balance.Cents != 25000 {
		t.Fatalf("cash flow = %+v", r.CashFlow)
	}

	if r.ExpensesByCategory["Materiaux"].Cents != 20000 {
		t.Fatalf("category sum wrong: %v", r.ExpensesByCategory)
	}
	if r.ExpensesByCategory["Divers"].Cents != 5000 {
		t.Fatalf("missing category must default to Divers: %v", r.ExpensesByCategory)
	}
}

func TestReportAvgDocumentValue(t *testing.T) {
	snap := Snapshot{Documents: []core.Document{
		doc(core.StatusAccepted, testNow, 10000),
		doc(core.StatusAccepted, testNow, 20001),
		doc(core.StatusSent, testNow, 99999), // not accepted: excluded from mean
	}}

	r, err := BuildReport(snap, Selector{Period: PeriodMonth}, testNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// (10000 + 20001) / 2 = 15000.5 rounds half away to 15001 cents.
	if r.KPIs.AvgDocumentValue.Cents != 15001 {
		t.Fatalf("avg = %d, want 15001", r.KPIs.AvgDocumentValue.Cents)
	}
}

func TestReportCacheMemoizes(t *testing.T) {
	snap := Snapshot{Documents: []core.Document{doc(core.StatusAccepted, testNow, 10000)}}
	cache := NewReportCache(time.Minute)

	r1, err := cache.Get(snap, Selector{Period: PeriodMonth}, testNow)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	r2, err := cache.Get(snap, Selector{Period: PeriodMonth}, testNow)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if r1.KPIs.CA != r2.KPIs.CA {
		t.Fatalf("memoized report differs")
	}

	// A content change must produce a different key, not a stale hit.
	snap.Documents[0].Totals.TTCGross = core.Money{Cents: 70000}
	r3, err := cache.Get(snap, Selector{Period: PeriodMonth}, testNow)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if r3.KPIs.CA.Cents != 70000 {
		t.Fatalf("stale cache hit after content change: ca = %d", r3.KPIs.CA.Cents)
	}

	// Different selectors never share an entry.
	r4, err := cache.Get(snap, Selector{Period: PeriodAll}, testNow)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if r4.Prior != nil {
		t.Fatalf("period=all report has a prior window")
	}
}

func TestReportCacheProjectEditsBustKey(t *testing.T) {
	snap := Snapshot{
		Projects: []core.Project{{ID: "p1", Name: "Ancien nom", Status: core.ProjectActive}},
		Documents: []core.Document{
			doc(core.StatusAccepted, testNow, 10000),
		},
	}
	cache := NewReportCache(time.Minute)

	r1, err := cache.Get(snap, Selector{Period: PeriodAll}, testNow)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(r1.ProjectRanking) != 1 || r1.ProjectRanking[0].Name != "Ancien nom" {
		t.Fatalf("ranking = %+v, want one entry named Ancien nom", r1.ProjectRanking)
	}

	// Renaming or reworking a project changes the key even when every
	// monetary input stays identical.
	snap.Projects[0].Name = "Nouveau nom"
	snap.Projects[0].Completion = 40
	snap.Projects[0].BudgetEstimate = core.Money{Cents: 500000}
	r2, err := cache.Get(snap, Selector{Period: PeriodAll}, testNow)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(r2.ProjectRanking) != 1 {
		t.Fatalf("ranking = %d entries, want 1", len(r2.ProjectRanking))
	}
	got := r2.ProjectRanking[0]
	if got.Name != "Nouveau nom" || got.Completion != 40 || got.BudgetEstimate.Cents != 500000 {
		t.Fatalf("stale ranking served: name=%q completion=%v budget=%d",
			got.Name, got.Completion, got.BudgetEstimate.Cents)
	}
}
