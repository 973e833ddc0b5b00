// Package filter evaluates structured predicates over stored knowledge
// entry metadata. A predicate is a conjunction: every set field must
// match. Entries missing a field referenced by the predicate are
// excluded, never silently matched.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/kilupskalvis/kbsync/internal/models"
)

// Supported date layouts: day/month/year, ISO, and month/year. The
// slash layouts are unpadded so they accept both "01/07/2025" and the
// extractor's "1/7/2025" form.
var dateLayouts = []string{"2/1/2006", "2006-01-02", "1/2006"}

// Predicate is a conjunction of optional conditions over entry metadata.
type Predicate struct {
	Types         []models.DocumentType // document type membership
	DateFrom      string                // inclusive, any supported format
	DateTo        string                // inclusive, any supported format
	AmountMin     *float64
	AmountMax     *float64
	People        []string // case-insensitive substring, all must match
	Organizations []string // case-insensitive substring, all must match
	BusinessUnit  string   // equality, case-insensitive
}

// IsEmpty reports whether no conditions are set.
func (p Predicate) IsEmpty() bool {
	return len(p.Types) == 0 && p.DateFrom == "" && p.DateTo == "" &&
		p.AmountMin == nil && p.AmountMax == nil &&
		len(p.People) == 0 && len(p.Organizations) == 0 && p.BusinessUnit == ""
}

// Validate checks that the date bounds parse.
func (p Predicate) Validate() error {
	if p.DateFrom != "" {
		if _, _, ok := parseDate(p.DateFrom); !ok {
			return fmt.Errorf("invalid date_from %q", p.DateFrom)
		}
	}
	if p.DateTo != "" {
		if _, _, ok := parseDate(p.DateTo); !ok {
			return fmt.Errorf("invalid date_to %q", p.DateTo)
		}
	}
	return nil
}

// Evaluate returns the entries matching the predicate. An empty
// predicate returns the input unchanged.
func Evaluate(entries []*models.KnowledgeEntry, p Predicate) []*models.KnowledgeEntry {
	if p.IsEmpty() {
		return entries
	}

	var out []*models.KnowledgeEntry
	for _, entry := range entries {
		if Matches(entry, p) {
			out = append(out, entry)
		}
	}
	return out
}

// Matches reports whether a single entry satisfies every set condition.
func Matches(entry *models.KnowledgeEntry, p Predicate) bool {
	md := entry.Metadata

	if len(p.Types) > 0 {
		docType, ok := md.GetString(models.MetaKeyDocumentType)
		if !ok || !containsType(p.Types, models.DocumentType(docType)) {
			return false
		}
	}

	if p.DateFrom != "" || p.DateTo != "" {
		dates, ok := md.GetStrings(models.MetaKeyDates)
		if !ok || len(dates) == 0 || !anyDateInRange(dates, p.DateFrom, p.DateTo) {
			return false
		}
	}

	if p.AmountMin != nil || p.AmountMax != nil {
		amounts, ok := md.GetNumbers(models.MetaKeyAmounts)
		if !ok || len(amounts) == 0 || !anyAmountInRange(amounts, p.AmountMin, p.AmountMax) {
			return false
		}
	}

	if len(p.People) > 0 {
		people, ok := md.GetStrings(models.MetaKeyPeople)
		if !ok || !allSubstringsMatch(p.People, people) {
			return false
		}
	}

	if len(p.Organizations) > 0 {
		orgs, ok := md.GetStrings(models.MetaKeyOrgs)
		if !ok || !allSubstringsMatch(p.Organizations, orgs) {
			return false
		}
	}

	if p.BusinessUnit != "" {
		unit, ok := md.GetString(models.MetaKeyBusinessUnit)
		if !ok || !strings.EqualFold(unit, p.BusinessUnit) {
			return false
		}
	}

	return true
}

func containsType(types []models.DocumentType, docType models.DocumentType) bool {
	for _, t := range types {
		if t == docType {
			return true
		}
	}
	return false
}

// parseDate parses any supported date format and returns the interval it
// covers: a full date covers one day, a month/year covers the whole
// month. Interval bounds make inclusive range checks uniform across
// precisions.
func parseDate(raw string) (start, end time.Time, ok bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if layout == "1/2006" {
			start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
			end = start.AddDate(0, 1, 0).Add(-time.Second)
			return start, end, true
		}
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1).Add(-time.Second)
		return start, end, true
	}
	return time.Time{}, time.Time{}, false
}

func anyDateInRange(dates []string, fromRaw, toRaw string) bool {
	var from, to time.Time
	hasFrom, hasTo := false, false

	if fromRaw != "" {
		start, _, ok := parseDate(fromRaw)
		if !ok {
			return false
		}
		from, hasFrom = start, true
	}
	if toRaw != "" {
		_, end, ok := parseDate(toRaw)
		if !ok {
			return false
		}
		to, hasTo = end, true
	}

	for _, raw := range dates {
		start, end, ok := parseDate(raw)
		if !ok {
			continue
		}
		if hasFrom && end.Before(from) {
			continue
		}
		if hasTo && start.After(to) {
			continue
		}
		return true
	}
	return false
}

func anyAmountInRange(amounts []float64, min, max *float64) bool {
	for _, amount := range amounts {
		if min != nil && amount < *min {
			continue
		}
		if max != nil && amount > *max {
			continue
		}
		return true
	}
	return false
}

// allSubstringsMatch reports whether each wanted value is a
// case-insensitive substring of at least one entity.
func allSubstringsMatch(wanted, entities []string) bool {
	for _, w := range wanted {
		lw := strings.ToLower(w)
		found := false
		for _, entity := range entities {
			if strings.Contains(strings.ToLower(entity), lw) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
