package naver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func investorPage(more bool, dates ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="type2"><tr><th>Header</th></tr></table><table class="type2">`)
	for i, d := range dates {
		fmt.Fprintf(&b, `<tr><td>%s</td><td>72,500</td><td>+500</td><td>+0.69%%</td><td>1,000,000</td><td>+%d,000</td><td>-%d,000</td></tr>`, d, 50+i, 30+i)
	}
	b.WriteString(`<tr><td>invalid date</td><td>73,000</td></tr></table>`)
	if more {
		b.WriteString(`<td class="pgRR"><a href="?page=2">맨뒤</a></td>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func TestParseInvestorHTML(t *testing.T) {
	flows, hasMore := parseInvestorHTML(investorPage(true, "2024.01.16", "2024.01.15"))

	if len(flows) != 2 {
		t.Fatalf("parseInvestorHTML() got %d rows, want 2", len(flows))
	}
	if !hasMore {
		t.Error("Expected hasMore with .pgRR")
	}

	f := flows[0]
	if !f.Date.Equal(time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", f.Date)
	}
	if f.Institution != 50000 {
		t.Errorf("Institution = %d, want 50000", f.Institution)
	}
	if f.Foreign != -30000 {
		t.Errorf("Foreign = %d, want -30000", f.Foreign)
	}
	if f.Individual != -20000 {
		t.Errorf("Individual = %d, want -20000", f.Individual)
	}
}

func TestParseInvestorHTMLInvalid(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"empty", ""},
		{"single table", `<table class="type2"><tr><td>2024.01.15</td></tr></table>`},
		{"no rows", investorPage(false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flows, hasMore := parseInvestorHTML(tt.html)
			if len(flows) != 0 || hasMore {
				t.Errorf("got %d rows hasMore=%v, want none", len(flows), hasMore)
			}
		})
	}
}

func TestFetchInvestorFlowPaginates(t *testing.T) {
	var pages []string
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/item/frgn.naver" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		switch page {
		case "1":
			fmt.Fprint(w, investorPage(true, "2024.01.19", "2024.01.18", "2024.01.17"))
		default:
			fmt.Fprint(w, investorPage(false, "2024.01.16", "2024.01.15"))
		}
	})

	flows, err := c.FetchInvestorFlow(context.Background(), "005930", 4)
	if err != nil {
		t.Fatalf("FetchInvestorFlow() error = %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("fetched pages %v, want 2", pages)
	}
	if len(flows) != 4 {
		t.Fatalf("got %d rows, want 4", len(flows))
	}
	// oldest first, newest 4 kept
	if flows[0].Date.Day() != 16 || flows[3].Date.Day() != 19 {
		t.Errorf("order = %v .. %v", flows[0].Date, flows[3].Date)
	}
}

func TestFetchInvestorFlowZeroDays(t *testing.T) {
	c := &Client{}
	flows, err := c.FetchInvestorFlow(context.Background(), "005930", 0)
	if err != nil || flows != nil {
		t.Errorf("FetchInvestorFlow(0) = %v, %v", flows, err)
	}
}

func TestParseNum(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"+1,234", 1234},
		{"-5,000", -5000},
		{" 42 ", 42},
		{"-", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseNum(tt.in); got != tt.want {
			t.Errorf("parseNum(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
