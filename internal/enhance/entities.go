package enhance

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kilupskalvis/kbsync/internal/config"
	"github.com/kilupskalvis/kbsync/internal/models"
)

// Date patterns, matched longest-form first so a full day/month/year date
// is never partially consumed as a month/year date. Word boundaries keep
// digit runs inside larger numbers from matching.
var (
	reDateDMY = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	reDateISO = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reDateMY  = regexp.MustCompile(`\b(\d{1,2})/(\d{4})\b`)

	// Brazilian currency convention: dot thousands separator, comma
	// decimals. "R$ 13.239,00" -> 13239.00.
	reAmount = regexp.MustCompile(`R\$\s*(\d{1,3}(?:\.\d{3})*(?:,\d{2})?|\d+(?:,\d{2})?)`)

	// Capitalized multi-token sequences with optional lowercase linking
	// particles (da, de, do, das, dos, e).
	rePerson = regexp.MustCompile(`\b\p{Lu}\p{Ll}+(?:\s+(?:da|de|do|das|dos|e)\s+\p{Lu}\p{Ll}+|\s+\p{Lu}\p{Ll}+)+\b`)

	// Capitalized sequences followed by a legal-entity suffix.
	reOrg = regexp.MustCompile(`\b((?:\p{Lu}[\p{L}&]*\s+)+(?:Ltda\.?|LTDA|S\.A\.?|S/A|ME|EPP|Inc\.?|LLC|Corp\.?|GmbH))`)
)

// orgSuffixes used to strip suffixes when deduplicating person matches
// that are actually organizations.
var orgSuffixes = []string{"Ltda", "LTDA", "S.A", "S/A", "ME", "EPP", "Inc", "LLC", "Corp", "GmbH"}

// EntityExtractor pulls dates, currency amounts, person names, and
// organization names out of document content.
type EntityExtractor struct {
	cfg config.EntityConfig
}

// NewEntityExtractor creates an extractor with the given configuration.
func NewEntityExtractor(cfg config.EntityConfig) *EntityExtractor {
	return &EntityExtractor{cfg: cfg}
}

// Extract runs all enabled pattern families over the content. The period
// is derived as the most frequent year-month among extracted dates.
func (e *EntityExtractor) Extract(content string) models.ExtractedEntities {
	var out models.ExtractedEntities
	if !e.cfg.Enabled || content == "" {
		return out
	}

	if e.cfg.ExtractDates {
		out.Dates = extractDates(content)
		out.Period = derivePeriod(out.Dates)
	}
	if e.cfg.ExtractAmounts {
		out.Amounts = extractAmounts(content)
	}
	if e.cfg.ExtractOrganizations {
		out.Organizations = extractOrganizations(content)
	}
	if e.cfg.ExtractNames {
		out.People = extractPeople(content, out.Organizations)
	}

	return out
}

// span is a half-open matched interval used to prevent a longer date from
// being re-matched by a shorter pattern.
type span struct{ start, end int }

func overlaps(spans []span, start, end int) bool {
	for _, s := range spans {
		if start < s.end && end > s.start {
			return true
		}
	}
	return false
}

func extractDates(content string) []string {
	var taken []span

	for _, re := range []*regexp.Regexp{reDateDMY, reDateISO, reDateMY} {
		for _, loc := range re.FindAllStringIndex(content, -1) {
			if overlaps(taken, loc[0], loc[1]) {
				continue
			}
			taken = append(taken, span{loc[0], loc[1]})
		}
	}

	// Restore document order.
	sort.SliceStable(taken, func(i, j int) bool { return taken[i].start < taken[j].start })
	ordered := make([]string, len(taken))
	for i, s := range taken {
		ordered[i] = content[s.start:s.end]
	}
	return dedupe(ordered)
}

func extractAmounts(content string) []float64 {
	var amounts []float64
	for _, m := range reAmount.FindAllStringSubmatch(content, -1) {
		raw := strings.ReplaceAll(m[1], ".", "")
		raw = strings.ReplaceAll(raw, ",", ".")
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		amounts = append(amounts, val)
	}
	return amounts
}

func extractOrganizations(content string) []string {
	var orgs []string
	for _, m := range reOrg.FindAllStringSubmatch(content, -1) {
		orgs = append(orgs, strings.TrimSpace(m[1]))
	}
	return dedupe(orgs)
}

func extractPeople(content string, orgs []string) []string {
	var people []string
	for _, m := range rePerson.FindAllString(content, -1) {
		name := strings.TrimSpace(m)
		if looksLikeOrganization(name, orgs) {
			continue
		}
		people = append(people, name)
	}
	return dedupe(people)
}

// looksLikeOrganization filters person candidates that are prefixes of an
// extracted organization or end in a legal suffix.
func looksLikeOrganization(name string, orgs []string) bool {
	for _, org := range orgs {
		if strings.HasPrefix(org, name) || strings.HasPrefix(name, strings.TrimSpace(trimOrgSuffix(org))) {
			return true
		}
	}
	for _, suffix := range orgSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func trimOrgSuffix(org string) string {
	for _, suffix := range orgSuffixes {
		if idx := strings.LastIndex(org, suffix); idx > 0 {
			return org[:idx]
		}
	}
	return org
}

// derivePeriod returns the most frequent MM/YYYY among the dates.
// Ties break toward the period seen first.
func derivePeriod(dates []string) string {
	counts := make(map[string]int)
	var order []string

	for _, d := range dates {
		period, ok := normalizePeriod(d)
		if !ok {
			continue
		}
		if counts[period] == 0 {
			order = append(order, period)
		}
		counts[period]++
	}

	best := ""
	bestCount := 0
	for _, p := range order {
		if counts[p] > bestCount {
			best = p
			bestCount = counts[p]
		}
	}
	return best
}

// normalizePeriod converts any supported date format to MM/YYYY.
func normalizePeriod(date string) (string, bool) {
	if m := reDateDMY.FindStringSubmatch(date); m != nil && m[0] == date {
		month, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%02d/%s", month, m[3]), true
	}
	if m := reDateISO.FindStringSubmatch(date); m != nil && m[0] == date {
		return fmt.Sprintf("%s/%s", m[2], m[1]), true
	}
	if m := reDateMY.FindStringSubmatch(date); m != nil && m[0] == date {
		month, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%02d/%s", month, m[2]), true
	}
	return "", false
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
