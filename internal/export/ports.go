package export

import (
	"context"
	"time"

	"chantierpro/internal/core"
)

// JournalEntry is one accounting journal row pushed to the bookkeeper's
// spreadsheet when a document is accepted.
type JournalEntry struct {
	Date       time.Time
	Numero     string
	Type       core.DocumentType
	ClientName string
	HT         core.Money
	VAT        core.Money
	TTC        core.Money
	Retention  core.Money
}

// JournalWriter is the outbound port for accounting export.
type JournalWriter interface {
	AppendEntry(ctx context.Context, e JournalEntry) (rowRef string, err error)
}

// EntryFromDocument flattens a document's totals into a journal row.
func EntryFromDocument(d core.Document, clientName string) JournalEntry {
	return JournalEntry{
		Date:       d.Date,
		Numero:     d.Numero,
		Type:       d.Type,
		ClientName: clientName,
		HT:         d.Totals.HTAfterDiscount,
		VAT:        d.Totals.TotalVAT,
		TTC:        d.Totals.TTCGross,
		Retention:  d.Totals.RetentionAmount,
	}
}
