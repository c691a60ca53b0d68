package dart

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/quantlab/internal/sentiment"
)

// Disclosure is one filing from list.json
type Disclosure struct {
	CorpCode  string `json:"corp_code"`
	CorpName  string `json:"corp_name"`
	StockCode string `json:"stock_code"`
	CorpCls   string `json:"corp_cls"`  // Y: 유가, K: 코스닥, N: 코넥스, E: 기타
	ReportNm  string `json:"report_nm"` // 공시 제목
	RceptNo   string `json:"rcept_no"`  // 접수번호
	FlrNm     string `json:"flr_nm"`    // 공시 제출인
	RceptDt   string `json:"rcept_dt"`  // YYYYMMDD
}

type disclosureResponse struct {
	TotalPage   int          `json:"total_page"`
	Disclosures []Disclosure `json:"list"`
}

// FetchDisclosures lists filings of a company in a date range
// ⭐ SSOT: DART 공시 데이터 호출은 이 함수에서만
func (c *Client) FetchDisclosures(ctx context.Context, code string, from, to time.Time) ([]Disclosure, error) {
	corp, err := c.corpCode(code)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("corp_code", corp)
	params.Set("bgn_de", from.Format("20060102"))
	params.Set("end_de", to.Format("20060102"))
	params.Set("page_count", "100")

	var resp disclosureResponse
	if _, err := c.get(ctx, "list.json", params, &resp); err != nil {
		return nil, err
	}
	return resp.Disclosures, nil
}

// majorKeywords mark filings that move prices
var majorKeywords = []string{
	"사업보고서", "분기보고서", "반기보고서", "주요사항보고서",
	"유상증자", "무상증자", "합병", "분할", "영업양수도",
	"자기주식", "전환사채", "신주인수권부사채",
}

// IsMajorDisclosure checks if the disclosure is a major one
func IsMajorDisclosure(reportName string) bool {
	for _, k := range majorKeywords {
		if strings.Contains(reportName, k) {
			return true
		}
	}
	return false
}

// keywordTone scores filings that usually move prices one way
var keywordTone = []struct {
	keyword string
	tone    float64
}{
	{"유상증자", -0.5}, // 희석
	{"전환사채", -0.5},
	{"신주인수권부사채", -0.5},
	{"무상증자", 0.5},
	{"자기주식", 0.5},
}

// Headlines turns major filings into scored sentiment headlines
func Headlines(ds []Disclosure) []sentiment.Headline {
	var out []sentiment.Headline
	for _, d := range ds {
		if !IsMajorDisclosure(d.ReportNm) {
			continue
		}
		h := sentiment.Headline{Title: d.CorpName + " " + d.ReportNm}
		for _, kt := range keywordTone {
			if strings.Contains(d.ReportNm, kt.keyword) {
				h.Keyword, h.Score = kt.keyword, kt.tone
				break
			}
		}
		out = append(out, h)
	}
	return out
}

// GetDARTURL builds the DART disclosure URL
func GetDARTURL(rceptNo string) string {
	return "https://dart.fss.or.kr/dsaf001/main.do?rcpNo=" + rceptNo
}
