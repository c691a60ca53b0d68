package naver

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/quantlab/internal/contracts"
)

// 한 페이지 약 20 거래일, 휴장일 대비 한 페이지 여유
const (
	investorRowsPerPage = 20
	maxInvestorPages    = 50
)

var investorDateRe = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)

// FetchInvestorFlow implements contracts.InvestorFlowSource by scraping
// frgn.naver. Returns up to days rows, oldest first.
// ⭐ SSOT: Naver Finance 투자자 수급 데이터 호출은 이 함수에서만
func (c *Client) FetchInvestorFlow(ctx context.Context, code string, days int) ([]contracts.InvestorFlow, error) {
	if days <= 0 {
		return nil, nil
	}
	maxPages := (days+investorRowsPerPage-1)/investorRowsPerPage + 1
	if maxPages > maxInvestorPages {
		maxPages = maxInvestorPages
	}

	var flows []contracts.InvestorFlow // 최신순
	noDataPages := 0
	for page := 1; page <= maxPages && len(flows) < days; page++ {
		params := url.Values{}
		params.Set("code", code)
		params.Set("page", strconv.Itoa(page))

		body, err := c.fetch(ctx, c.baseURL, "/item/frgn.naver", params)
		if err != nil {
			return nil, err
		}

		rows, hasMore := parseInvestorHTML(string(body))
		flows = append(flows, rows...)
		if !hasMore {
			break
		}
		// 연속으로 데이터 없으면 종료
		if len(rows) == 0 {
			noDataPages++
			if noDataPages >= 3 {
				break
			}
		} else {
			noDataPages = 0
		}
	}

	if len(flows) > days {
		flows = flows[:days]
	}
	for i, j := 0, len(flows)-1; i < j; i, j = i+1, j-1 {
		flows[i], flows[j] = flows[j], flows[i]
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_code": code,
		"count":      len(flows),
	}).Debug("Fetched investor flow")
	return flows, nil
}

// parseInvestorHTML reads the second table.type2 of frgn.naver
// 컬럼: 날짜 | 종가 | 대비 | 등락률 | 거래량 | 기관 | 외국인
func parseInvestorHTML(html string) ([]contracts.InvestorFlow, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}
	tables := doc.Find("table.type2")
	if tables.Length() < 2 {
		return nil, false
	}

	var flows []contracts.InvestorFlow
	tables.Eq(1).Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}
		dateText := strings.TrimSpace(cells.Eq(0).Text())
		if !investorDateRe.MatchString(dateText) {
			return
		}
		date, err := time.Parse("2006.01.02", dateText)
		if err != nil {
			return
		}

		inst := parseNum(cells.Eq(5).Text())
		foreign := parseNum(cells.Eq(6).Text())
		flows = append(flows, contracts.InvestorFlow{
			Date:        date,
			Foreign:     foreign,
			Institution: inst,
			Individual:  -(foreign + inst), // 개인 = 나머지
		})
	})

	return flows, doc.Find(".pgRR").Length() > 0
}

func parseNum(s string) int64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "+")
	if s == "" || s == "-" {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
