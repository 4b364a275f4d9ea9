package resolve

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Recency windows for the ranking bonus.
const (
	recencyNearWindow = 45 * 24 * time.Hour
	recencyFarWindow  = 120 * 24 * time.Hour
)

type synonymRule struct {
	trigger *regexp.Regexp
	terms   []string
}

// Domain synonym expansions. Each rule fires on a regex match against the raw
// query and contributes its whole term set to the keyword pool, so a user
// asking about the "balance sheet" still matches a file named BS_2024.pdf.
var synonymRules = []synonymRule{
	{regexp.MustCompile(`(?i)\b(balance|bs)\b`), []string{"balance", "bs", "statement", "assets", "liabilities"}},
	{regexp.MustCompile(`(?i)\b(income|pnl|p&l|profit|revenue)\b`), []string{"income", "pnl", "p&l", "profit", "revenue", "earnings"}},
	{regexp.MustCompile(`(?i)\b(cash ?flow|cf)\b`), []string{"cash", "cashflow", "flow"}},
	{regexp.MustCompile(`(?i)\b(payroll|salar(y|ies)|wages)\b`), []string{"payroll", "salary", "wages", "compensation"}},
	{regexp.MustCompile(`(?i)\bcommissions?\b`), []string{"commission", "comp", "payout"}},
	{regexp.MustCompile(`(?i)\b(quotes?|pricing|price)\b`), []string{"quote", "pricing", "price", "rate"}},
	{regexp.MustCompile(`(?i)\b(invoices?|billing)\b`), []string{"invoice", "billing", "receivable"}},
	{regexp.MustCompile(`(?i)\b(forecast|budget)\b`), []string{"forecast", "budget", "projection"}},
}

// Any quarter, fiscal-year, year or month mention is added to the keyword
// pool verbatim.
var periodToken = regexp.MustCompile(`(?i)\b(q[1-4]|fy\d{2,4}|20\d{2}|jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\b`)

// queryKeywords tokenizes the query and unions in synonym expansions. The
// result order is not significant; scoring iterates a sorted copy so ranking
// stays deterministic.
func queryKeywords(query string) []string {
	set := map[string]struct{}{}
	for _, field := range strings.Fields(strings.ToLower(query)) {
		tok := strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '&' {
				return r
			}
			return -1
		}, field)
		if len(tok) < 2 {
			continue
		}
		set[tok] = struct{}{}
	}
	for _, rule := range synonymRules {
		if rule.trigger.MatchString(query) {
			for _, term := range rule.terms {
				set[term] = struct{}{}
			}
		}
	}
	for _, period := range periodToken.FindAllString(strings.ToLower(query), -1) {
		set[period] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func scoreName(name string, keywords []string) int {
	lower := strings.ToLower(name)
	score := 0
	for _, kw := range keywords {
		if !strings.Contains(lower, kw) {
			continue
		}
		if len(kw) >= 4 {
			score += 2
		} else {
			score++
		}
	}
	return score
}

func recencyBonus(modifiedAt, now time.Time) int {
	if modifiedAt.IsZero() {
		return 0
	}
	age := now.Sub(modifiedAt)
	switch {
	case age <= recencyNearWindow:
		return 2
	case age <= recencyFarWindow:
		return 1
	default:
		return 0
	}
}

// SelectTopRelevant scores candidates against the query and returns the first
// max distinct-id results, highest score first, ties broken by ascending file
// name. Pure: same inputs, same output, no side effects. Recency is scored
// against the explicit now so callers with frozen clocks get stable rankings.
func SelectTopRelevant(query string, candidates []CandidateFile, max int, now time.Time) []CandidateFile {
	if max <= 0 || len(candidates) == 0 {
		return nil
	}
	keywords := queryKeywords(query)

	type scored struct {
		file  CandidateFile
		score int
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, scored{file: c, score: scoreName(c.Name, keywords) + recencyBonus(c.ModifiedAt, now)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		ni, nj := strings.ToLower(ranked[i].file.Name), strings.ToLower(ranked[j].file.Name)
		if ni != nj {
			return ni < nj
		}
		return ranked[i].file.ID < ranked[j].file.ID
	})

	seen := make(map[string]struct{}, max)
	out := make([]CandidateFile, 0, max)
	for _, s := range ranked {
		if _, dup := seen[s.file.ID]; dup {
			continue
		}
		seen[s.file.ID] = struct{}{}
		out = append(out, s.file)
		if len(out) == max {
			break
		}
	}
	return out
}
