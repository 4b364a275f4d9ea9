package resolve

import (
	"reflect"
	"testing"
	"time"
)

var rankNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestSelectTopRelevantBalanceSheetQuery(t *testing.T) {
	t.Parallel()
	candidates := []CandidateFile{
		{ID: "1", Name: "BS_2024.pdf"},
		{ID: "2", Name: "Payroll_Report.xlsx"},
		{ID: "3", Name: "Q2_Summary.docx"},
	}
	got := SelectTopRelevant("balance sheet Q2", candidates, 3, rankNow)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if got[0].Name != "BS_2024.pdf" {
		t.Fatalf("expected BS_2024.pdf first, got %s", got[0].Name)
	}
	if got[2].Name != "Payroll_Report.xlsx" {
		t.Fatalf("expected the payroll report last, got %s", got[2].Name)
	}
}

func TestSelectTopRelevantDeterministic(t *testing.T) {
	t.Parallel()
	candidates := []CandidateFile{
		{ID: "a", Name: "commission_summary.xlsx"},
		{ID: "b", Name: "quotes_2025.csv"},
		{ID: "c", Name: "notes.txt"},
		{ID: "d", Name: "pricing_sheet.pdf"},
	}
	first := SelectTopRelevant("commission pricing Q1", candidates, 4, rankNow)
	second := SelectTopRelevant("commission pricing Q1", candidates, 4, rankNow)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("ranking not idempotent:\n%v\n%v", first, second)
	}
}

func TestSelectTopRelevantTieBreakByName(t *testing.T) {
	t.Parallel()
	candidates := []CandidateFile{
		{ID: "z", Name: "zulu.txt"},
		{ID: "a", Name: "alpha.txt"},
		{ID: "m", Name: "mike.txt"},
	}
	got := SelectTopRelevant("unrelated query", candidates, 3, rankNow)
	names := []string{got[0].Name, got[1].Name, got[2].Name}
	want := []string{"alpha.txt", "mike.txt", "zulu.txt"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("tie-break order = %v, want %v", names, want)
	}
}

func TestSelectTopRelevantKeywordWeights(t *testing.T) {
	t.Parallel()
	// "payroll" (>= 4 chars) is worth 2, a bare period token like "q2" is
	// worth 1, so the payroll file must outrank the one matching only "q2".
	candidates := []CandidateFile{
		{ID: "1", Name: "q2_misc.txt"},
		{ID: "2", Name: "payroll_misc.txt"},
	}
	got := SelectTopRelevant("payroll for q2", candidates, 2, rankNow)
	if got[0].ID != "2" {
		t.Fatalf("expected payroll file first, got %+v", got[0])
	}
}

func TestSelectTopRelevantRecencyBonus(t *testing.T) {
	t.Parallel()
	candidates := []CandidateFile{
		{ID: "old", Name: "report_a.pdf", ModifiedAt: rankNow.Add(-200 * 24 * time.Hour)},
		{ID: "mid", Name: "report_b.pdf", ModifiedAt: rankNow.Add(-100 * 24 * time.Hour)},
		{ID: "new", Name: "report_c.pdf", ModifiedAt: rankNow.Add(-10 * 24 * time.Hour)},
		{ID: "unk", Name: "report_d.pdf"},
	}
	got := SelectTopRelevant("anything", candidates, 4, rankNow)
	order := []string{got[0].ID, got[1].ID, got[2].ID, got[3].ID}
	// +2 within 45 days, +1 within 120 days, no bonus otherwise; zero
	// timestamps never earn a bonus. Equal-score stragglers order by name.
	want := []string{"new", "mid", "old", "unk"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("recency order = %v, want %v", order, want)
	}
}

func TestSelectTopRelevantCapsAndDedups(t *testing.T) {
	t.Parallel()
	candidates := []CandidateFile{
		{ID: "1", Name: "a.txt"},
		{ID: "1", Name: "a.txt"},
		{ID: "2", Name: "b.txt"},
		{ID: "3", Name: "c.txt"},
	}
	got := SelectTopRelevant("q", candidates, 2, rankNow)
	if len(got) != 2 {
		t.Fatalf("expected max 2 results, got %d", len(got))
	}
	if got[0].ID == got[1].ID {
		t.Fatalf("duplicate id in output: %v", got)
	}
}

func TestQueryKeywordsDropShortTokensAndExpand(t *testing.T) {
	t.Parallel()
	kws := queryKeywords("a balance sheet for Q2!")
	set := map[string]bool{}
	for _, k := range kws {
		set[k] = true
	}
	if set["a"] {
		t.Fatal("single-char token must be dropped")
	}
	for _, want := range []string{"balance", "bs", "sheet", "q2", "statement"} {
		if !set[want] {
			t.Fatalf("missing keyword %q in %v", want, kws)
		}
	}
}
