package analytics

import (
	"fmt"
	"sort"
	"time"

	"chantierpro/internal/core"
)

// Snapshot is the immutable set of collections the aggregator works from.
// The aggregator never mutates it and holds no reference past the call.
type Snapshot struct {
	Documents []core.Document
	Expenses  []core.Expense
	Payments  []core.Payment
	Projects  []core.Project
	Clients   []core.Client
}

// KPIs are the headline figures for the selected period.
type KPIs struct {
	CA               core.Money `json:"ca"`
	PendingCount     int        `json:"pending_count"`
	PendingAmount    core.Money `json:"pending_amount"`
	SentCount        int        `json:"sent_count"`
	SignedCount      int        `json:"signed_count"`
	ConversionRate   float64    `json:"conversion_rate"`
	DraftCount       int        `json:"draft_count"`
	DraftAmount      core.Money `json:"draft_amount"`
	TotalExpenses    core.Money `json:"total_expenses"`
	GrossMargin      core.Money `json:"gross_margin"`
	MarginRate       float64    `json:"margin_rate"`
	PipelineValue    core.Money `json:"pipeline_value"`
	AvgDocumentValue core.Money `json:"avg_document_value"`
}

// Comparisons holds period-over-period trends. A nil value means the trend
// is undefined (zero baseline, or period == all); callers must render that
// distinctly from 0%.
type Comparisons struct {
	CA             *float64 `json:"ca"`
	Expenses       *float64 `json:"expenses"`
	// ConversionRate is a percentage-point difference, not a percent change:
	// the quantity itself is already a percentage.
	ConversionRate *float64 `json:"conversion_rate"`
	Margin         *float64 `json:"margin"`
}

// MonthPoint is one slot of the fixed 12-month series for the current
// calendar year.
type MonthPoint struct {
	Label    string     `json:"label"`
	Revenue  core.Money `json:"revenue"`
	Expenses core.Money `json:"expenses"`
	Margin   core.Money `json:"margin"`
}

// ClientRank is one row of the top-clients ranking.
type ClientRank struct {
	ClientID      string     `json:"client_id"`
	Name          string     `json:"name"`
	Revenue       core.Money `json:"revenue"`
	DocumentCount int        `json:"document_count"`
	Expenses      core.Money `json:"expenses"`
	Margin        core.Money `json:"margin"`
	MarginRate    float64    `json:"margin_rate"`
}

// ProjectRank is one row of the project profitability ranking.
type ProjectRank struct {
	ProjectID      string             `json:"project_id"`
	Name           string             `json:"name"`
	ClientName     string             `json:"client_name"`
	Status         core.ProjectStatus `json:"status"`
	Revenue        core.Money         `json:"revenue"`
	Expenses       core.Money         `json:"expenses"`
	Margin         core.Money         `json:"margin"`
	MarginRate     float64            `json:"margin_rate"`
	Completion     float64            `json:"completion"`
	DocumentCount  int                `json:"document_count"`
	ExpenseCount   int                `json:"expense_count"`
	BudgetEstimate core.Money         `json:"budget_estimate"`
}

// MarginDistribution buckets ranked projects by margin rate.
type MarginDistribution struct {
	Excellent int `json:"excellent"` // >= 30%
	Good      int `json:"good"`      // 15-30%
	Low       int `json:"low"`       // 0-15%
	Negative  int `json:"negative"`  // < 0%
}

// CashFlow is the period-filtered payments vs expenses balance.
type CashFlow struct {
	TotalPayments core.Money `json:"total_payments"`
	TotalExpenses core.Money `json:"total_expenses"`
	Balance       core.Money `json:"balance"`
}

// Report is the full analytics output for one (snapshot, period) pair.
type Report struct {
	Range              Range                 `json:"range"`
	Prior              *Range                `json:"prior,omitempty"`
	KPIs               KPIs                  `json:"kpis"`
	Comparisons        Comparisons           `json:"comparisons"`
	MonthlySeries      []MonthPoint          `json:"monthly_series"`
	TopClients         []ClientRank          `json:"top_clients"`
	ProjectRanking     []ProjectRank         `json:"project_ranking"`
	AvgProjectMargin   float64               `json:"avg_project_margin"`
	MarginDistribution MarginDistribution    `json:"margin_distribution"`
	DocumentsByStatus  map[string]int        `json:"documents_by_status"`
	ProjectsByStatus   map[string]int        `json:"projects_by_status"`
	CashFlow           CashFlow              `json:"cash_flow"`
	ExpensesByCategory map[string]core.Money `json:"expenses_by_category"`
}

const rankingLimit = 10

var monthLabels = [12]string{"Jan", "Fev", "Mar", "Avr", "Mai", "Juin", "Juil", "Aou", "Sep", "Oct", "Nov", "Dec"}

// BuildReport computes the analytics report for the snapshot and selector.
// It is referentially transparent: same inputs, same report. Unknown status
// strings never fail aggregation; they group under their literal value.
func BuildReport(snap Snapshot, sel Selector, now time.Time) (Report, error) {
	current, err := sel.ResolveRange(now)
	if err != nil {
		return Report{}, fmt.Errorf("resolve period: %w", err)
	}

	report := Report{
		Range:              current,
		KPIs:               computeKPIs(snap, current),
		MonthlySeries:      monthlySeries(snap, now),
		DocumentsByStatus:  documentsByStatus(snap.Documents),
		ProjectsByStatus:   projectsByStatus(snap.Projects),
		CashFlow:           cashFlow(snap, current),
		ExpensesByCategory: expensesByCategory(snap.Expenses, current),
	}

	report.TopClients = topClients(snap, current)
	report.ProjectRanking, report.AvgProjectMargin, report.MarginDistribution = projectRanking(snap, current)

	if prior, ok := PriorRange(current); ok {
		report.Prior = &prior
		report.Comparisons = compare(report.KPIs, computeKPIs(snap, prior))
	}

	return report, nil
}

// docTTC is the revenue value of a document: the tax-inclusive total before
// retention holdback.
func docTTC(d core.Document) core.Money {
	return d.Totals.TTCGross
}

func computeKPIs(snap Snapshot, r Range) KPIs {
	var k KPIs
	var acceptedSum int64
	acceptedCount := 0

	for _, d := range snap.Documents {
		if !r.Contains(d.Date) {
			continue
		}
		ttc := docTTC(d)

		switch {
		case d.Status.IsAccepted():
			k.CA = k.CA.Add(ttc)
			acceptedSum += ttc.Cents
			acceptedCount++
			k.SignedCount++
		case d.Status.IsPending():
			k.PendingCount++
			k.PendingAmount = k.PendingAmount.Add(ttc)
		case d.Status == core.StatusDraft:
			k.DraftCount++
			k.DraftAmount = k.DraftAmount.Add(ttc)
		}

		if d.Status.IsSentOut() {
			k.SentCount++
		}
		// Pipeline covers everything still in flight, drafts included.
		if d.Status.IsPending() || d.Status == core.StatusDraft {
			k.PipelineValue = k.PipelineValue.Add(ttc)
		}
	}

	if k.SentCount > 0 {
		k.ConversionRate = core.Round2(float64(k.SignedCount) / float64(k.SentCount) * 100)
	}

	for _, e := range snap.Expenses {
		if r.Contains(e.Date) {
			k.TotalExpenses = k.TotalExpenses.Add(e.Amount)
		}
	}

	k.GrossMargin = k.CA.Sub(k.TotalExpenses)
	if k.CA.Cents > 0 {
		k.MarginRate = core.Round2(float64(k.GrossMargin.Cents) / float64(k.CA.Cents) * 100)
	}

	if acceptedCount > 0 {
		k.AvgDocumentValue = core.Money{Cents: core.RoundCents(float64(acceptedSum) / float64(acceptedCount))}
	}

	return k
}

// compare derives the period-over-period trends. Zero baselines yield nil,
// never an infinite or bogus percentage.
func compare(cur, prev KPIs) Comparisons {
	var c Comparisons

	if prev.CA.Cents != 0 {
		v := core.Round2(float64(cur.CA.Cents-prev.CA.Cents) / float64(prev.CA.Cents) * 100)
		c.CA = &v
	}
	if prev.TotalExpenses.Cents != 0 {
		v := core.Round2(float64(cur.TotalExpenses.Cents-prev.TotalExpenses.Cents) / float64(prev.TotalExpenses.Cents) * 100)
		c.Expenses = &v
	}

	// Point difference; a 0% prior conversion is a defined baseline.
	diff := core.Round2(cur.ConversionRate - prev.ConversionRate)
	c.ConversionRate = &diff

	if prev.GrossMargin.Cents != 0 {
		denom := prev.GrossMargin.Cents
		if denom < 0 {
			denom = -denom
		}
		// |prev| keeps the sign meaningful when the prior margin was negative.
		v := core.Round2(float64(cur.GrossMargin.Cents-prev.GrossMargin.Cents) / float64(denom) * 100)
		c.Margin = &v
	}

	return c
}

// monthlySeries always buckets the current calendar year into 12 fixed
// slots, regardless of the period selector. It feeds the trend chart.
func monthlySeries(snap Snapshot, now time.Time) []MonthPoint {
	series := make([]MonthPoint, 12)
	for i := range series {
		series[i].Label = monthLabels[i]
	}

	year := now.Year()
	for _, d := range snap.Documents {
		if !d.Status.IsAccepted() || d.Date.IsZero() || d.Date.Year() != year {
			continue
		}
		m := int(d.Date.Month()) - 1
		series[m].Revenue = series[m].Revenue.Add(docTTC(d))
	}
	for _, e := range snap.Expenses {
		if e.Date.IsZero() || e.Date.Year() != year {
			continue
		}
		m := int(e.Date.Month()) - 1
		series[m].Expenses = series[m].Expenses.Add(e.Amount)
	}
	for i := range series {
		series[i].Margin = series[i].Revenue.Sub(series[i].Expenses)
	}
	return series
}

func topClients(snap Snapshot, r Range) []ClientRank {
	type agg struct {
		revenue core.Money
		count   int
	}
	byClient := make(map[string]*agg)
	for _, d := range snap.Documents {
		if !d.Status.IsAccepted() || !r.Contains(d.Date) || d.ClientID == "" {
			continue
		}
		a := byClient[d.ClientID]
		if a == nil {
			a = &agg{}
			byClient[d.ClientID] = a
		}
		a.revenue = a.revenue.Add(docTTC(d))
		a.count++
	}

	clientName := make(map[string]string, len(snap.Clients))
	for _, c := range snap.Clients {
		clientName[c.ID] = c.DisplayName()
	}
	projectsByClient := make(map[string][]string)
	for _, p := range snap.Projects {
		if p.ClientID != "" {
			projectsByClient[p.ClientID] = append(projectsByClient[p.ClientID], p.ID)
		}
	}

	ranks := make([]ClientRank, 0, len(byClient))
	for clientID, a := range byClient {
		name := clientName[clientID]
		if name == "" {
			name = "Client #" + clientID
		}

		var expenses core.Money
		clientProjects := make(map[string]bool, len(projectsByClient[clientID]))
		for _, pid := range projectsByClient[clientID] {
			clientProjects[pid] = true
		}
		for _, e := range snap.Expenses {
			if clientProjects[e.ProjectID] && r.Contains(e.Date) {
				expenses = expenses.Add(e.Amount)
			}
		}

		margin := a.revenue.Sub(expenses)
		marginRate := 0.0
		if a.revenue.Cents > 0 {
			marginRate = core.Round2(float64(margin.Cents) / float64(a.revenue.Cents) * 100)
		}

		ranks = append(ranks, ClientRank{
			ClientID:      clientID,
			Name:          name,
			Revenue:       a.revenue,
			DocumentCount: a.count,
			Expenses:      expenses,
			Margin:        margin,
			MarginRate:    marginRate,
		})
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Revenue.Cents != ranks[j].Revenue.Cents {
			return ranks[i].Revenue.Cents > ranks[j].Revenue.Cents
		}
		return ranks[i].ClientID < ranks[j].ClientID
	})
	if len(ranks) > rankingLimit {
		ranks = ranks[:rankingLimit]
	}
	return ranks
}

func projectRanking(snap Snapshot, r Range) ([]ProjectRank, float64, MarginDistribution) {
	clientName := make(map[string]string, len(snap.Clients))
	for _, c := range snap.Clients {
		clientName[c.ID] = c.DisplayName()
	}

	var ranks []ProjectRank
	for _, p := range snap.Projects {
		if p.Status != core.ProjectActive && p.Status != core.ProjectCompleted {
			continue
		}

		var revenue core.Money
		docCount := 0
		for _, d := range snap.Documents {
			if d.ProjectID == p.ID && d.Status.IsAccepted() && r.Contains(d.Date) {
				revenue = revenue.Add(docTTC(d))
				docCount++
			}
		}

		var expenses core.Money
		expCount := 0
		for _, e := range snap.Expenses {
			if e.ProjectID == p.ID && r.Contains(e.Date) {
				expenses = expenses.Add(e.Amount)
				expCount++
			}
		}

		margin := revenue.Sub(expenses)
		marginRate := 0.0
		if revenue.Cents > 0 {
			marginRate = core.Round2(float64(margin.Cents) / float64(revenue.Cents) * 100)
		}

		ranks = append(ranks, ProjectRank{
			ProjectID:      p.ID,
			Name:           p.Name,
			ClientName:     clientName[p.ClientID],
			Status:         p.Status,
			Revenue:        revenue,
			Expenses:       expenses,
			Margin:         margin,
			MarginRate:     marginRate,
			Completion:     p.Completion,
			DocumentCount:  docCount,
			ExpenseCount:   expCount,
			BudgetEstimate: p.BudgetEstimate,
		})
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Revenue.Cents != ranks[j].Revenue.Cents {
			return ranks[i].Revenue.Cents > ranks[j].Revenue.Cents
		}
		return ranks[i].ProjectID < ranks[j].ProjectID
	})
	if len(ranks) > rankingLimit {
		ranks = ranks[:rankingLimit]
	}

	// Distribution and average only consider ranked projects that actually
	// billed something; a zero-revenue project has no meaningful margin rate.
	var dist MarginDistribution
	active := 0
	sum := 0.0
	for _, pr := range ranks {
		if pr.Revenue.Cents <= 0 {
			continue
		}
		active++
		sum += pr.MarginRate
		switch {
		case pr.MarginRate >= 30:
			dist.Excellent++
		case pr.MarginRate >= 15:
			dist.Good++
		case pr.MarginRate >= 0:
			dist.Low++
		default:
			dist.Negative++
		}
	}
	avg := 0.0
	if active > 0 {
		avg = core.Round2(sum / float64(active))
	}

	return ranks, avg, dist
}

func documentsByStatus(docs []core.Document) map[string]int {
	out := make(map[string]int)
	for _, d := range docs {
		s := string(d.Status)
		if s == "" {
			s = string(core.StatusDraft)
		}
		out[s]++
	}
	return out
}

func projectsByStatus(projects []core.Project) map[string]int {
	out := make(map[string]int)
	for _, p := range projects {
		s := string(p.Status)
		if s == "" {
			s = string(core.ProjectOnHold)
		}
		out[s]++
	}
	return out
}

func cashFlow(snap Snapshot, r Range) CashFlow {
	var cf CashFlow
	for _, p := range snap.Payments {
		if r.Contains(p.Date) {
			cf.TotalPayments = cf.TotalPayments.Add(p.Amount)
		}
	}
	for _, e := range snap.Expenses {
		if r.Contains(e.Date) {
			cf.TotalExpenses = cf.TotalExpenses.Add(e.Amount)
		}
	}
	cf.Balance = cf.TotalPayments.Sub(cf.TotalExpenses)
	return cf
}

func expensesByCategory(expenses []core.Expense, r Range) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, e := range expenses {
		if !r.Contains(e.Date) {
			continue
		}
		cat := e.Category
		if cat == "" {
			cat = "Divers"
		}
		out[cat] = out[cat].Add(e.Amount)
	}
	return out
}
