package dart

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/wonny/quantlab/internal/contracts"
)

// reportAnnual is the 사업보고서 reprt_code
const reportAnnual = "11011"

// accountRow is one line of fnlttSinglAcnt.json
type accountRow struct {
	BsnsYear     string `json:"bsns_year"`
	StockCode    string `json:"stock_code"`
	FsDiv        string `json:"fs_div"` // CFS 연결, OFS 별도
	SjDiv        string `json:"sj_div"` // BS 재무상태표, IS 손익계산서
	AccountNm    string `json:"account_nm"`
	ThstrmAmount string `json:"thstrm_amount"`
}

type accountResponse struct {
	List []accountRow `json:"list"`
}

// accountFields ⭐ SSOT: DART 계정명 → Financials 필드
var accountFields = map[string]func(f *contracts.Financials, v float64){
	"매출액":       func(f *contracts.Financials, v float64) { f.Revenue = v },
	"영업이익":      func(f *contracts.Financials, v float64) { f.OperatingIncome = v; f.EBIT = v },
	"당기순이익":     func(f *contracts.Financials, v float64) { f.NetIncome = v },
	"당기순이익(손실)": func(f *contracts.Financials, v float64) { f.NetIncome = v },
	"자산총계":      func(f *contracts.Financials, v float64) { f.TotalAssets = v },
	"부채총계":      func(f *contracts.Financials, v float64) { f.TotalLiabilities = v },
	"자본총계":      func(f *contracts.Financials, v float64) { f.TotalEquity = v },
	"유동자산":      func(f *contracts.Financials, v float64) { f.CurrentAssets = v },
	"유동부채":      func(f *contracts.Financials, v float64) { f.CurrentLiabilities = v },
	"이익잉여금":     func(f *contracts.Financials, v float64) { f.RetainedEarnings = v },
	"영업활동현금흐름":  func(f *contracts.Financials, v float64) { f.FreeCashFlow = v },
}

// FetchFinancials implements contracts.FinancialSource: one annual report
// per year, oldest first. Years without a filing are skipped.
func (c *Client) FetchFinancials(ctx context.Context, code string, fromYear, toYear int) ([]contracts.Financials, error) {
	corp, err := c.corpCode(code)
	if err != nil {
		return nil, err
	}

	var out []contracts.Financials
	for year := fromYear; year <= toYear; year++ {
		params := url.Values{}
		params.Set("corp_code", corp)
		params.Set("bsns_year", strconv.Itoa(year))
		params.Set("reprt_code", reportAnnual)

		var resp accountResponse
		found, err := c.get(ctx, "fnlttSinglAcnt.json", params, &resp)
		if err != nil {
			return nil, fmt.Errorf("financials %s %d: %w", code, year, err)
		}
		if !found {
			c.logger.WithFields(map[string]interface{}{"code": code, "year": year}).Debug("no annual report")
			continue
		}
		out = append(out, parseAccounts(year, resp.List))
	}
	return out, nil
}

// parseAccounts prefers consolidated (CFS) lines and falls back to separate
// (OFS) statements for accounts the consolidated set lacks
func parseAccounts(year int, rows []accountRow) contracts.Financials {
	f := contracts.Financials{Year: year}
	seen := make(map[string]bool)
	for _, div := range []string{"CFS", "OFS"} {
		for _, r := range rows {
			if r.FsDiv != div || seen[r.AccountNm] {
				continue
			}
			set, ok := accountFields[strings.TrimSpace(r.AccountNm)]
			if !ok {
				continue
			}
			v, err := parseAmount(r.ThstrmAmount)
			if err != nil {
				continue
			}
			set(&f, v)
			seen[r.AccountNm] = true
		}
	}
	return f
}

// parseAmount parses "1,234,567" or "-1,234"; "-" alone is an error
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return 0, fmt.Errorf("empty amount")
	}
	return strconv.ParseFloat(s, 64)
}
