package core

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// statusOrder drives the "by status" sort on document lists: drafts first,
// then the pipeline in lifecycle order, refused last. Unknown statuses sort
// after everything.
var statusOrder = map[DocumentStatus]int{
	StatusDraft:    0,
	StatusSent:     1,
	StatusViewed:   1,
	StatusAccepted: 2,
	StatusSigned:   2,
	StatusInvoiced: 4,
	StatusPaid:     5,
	StatusRefused:  6,
}

// StatusOrder returns the sort rank for a status, with unknown values last.
func StatusOrder(s DocumentStatus) int {
	if o, ok := statusOrder[s]; ok {
		return o
	}
	return 99
}

var numeroPattern = regexp.MustCompile(`^(DEV|FAC)-(\d{4})-(\d+)$`)

// NextNumero generates the next document number for the given type and year,
// e.g. DEV-2026-00001. The sequence restarts each year and is derived from
// the highest existing number of the same type, so gaps left by deleted
// documents are never reused downward.
func NextNumero(t DocumentType, existing []Document, now time.Time) string {
	prefix := "DEV"
	if t == Facture {
		prefix = "FAC"
	}
	year := now.Year()

	maxSeq := 0
	for _, d := range existing {
		dt := d.Type
		if dt == "" {
			dt = Devis
		}
		if dt != t {
			continue
		}
		m := numeroPattern.FindStringSubmatch(d.Numero)
		if m == nil || m[1] != prefix {
			continue
		}
		if y, _ := strconv.Atoi(m[2]); y != year {
			continue
		}
		if n, _ := strconv.Atoi(m[3]); n > maxSeq {
			maxSeq = n
		}
	}

	return fmt.Sprintf("%s-%d-%05d", prefix, year, maxSeq+1)
}

// SortDocuments returns a sorted copy; the input slice is left untouched.
// Criteria: "status" (lifecycle order), "amount" (TTC descending), anything
// else means most recent first.
func SortDocuments(items []Document, by string) []Document {
	out := make([]Document, len(items))
	copy(out, items)
	switch by {
	case "status":
		sort.SliceStable(out, func(i, j int) bool {
			return StatusOrder(out[i].Status) < StatusOrder(out[j].Status)
		})
	case "amount":
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Totals.TTCNet.Cents > out[j].Totals.TTCNet.Cents
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Date.After(out[j].Date)
		})
	}
	return out
}

// FilterDocuments narrows a document list by kind ("devis", "factures",
// "attente" for pending ones, anything else keeps all) and by a
// case-insensitive numero search.
func FilterDocuments(items []Document, filter, search string) []Document {
	search = strings.ToLower(strings.TrimSpace(search))
	var out []Document
	for _, d := range items {
		switch filter {
		case "devis":
			if d.Type != Devis {
				continue
			}
		case "factures":
			if d.Type != Facture {
				continue
			}
		case "attente":
			if !d.Status.IsPending() {
				continue
			}
		}
		if search != "" && !strings.Contains(strings.ToLower(d.Numero), search) {
			continue
		}
		out = append(out, d)
	}
	return out
}
