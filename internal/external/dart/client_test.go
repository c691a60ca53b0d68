package dart

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantlab/pkg/config"
	"github.com/wonny/quantlab/pkg/logger"
)

const accountsJSON = `{
  "status": "000", "message": "정상",
  "list": [
    {"bsns_year": "%d", "fs_div": "CFS", "sj_div": "IS", "account_nm": "매출액", "thstrm_amount": "258,935,494,000,000"},
    {"bsns_year": "%d", "fs_div": "CFS", "sj_div": "IS", "account_nm": "영업이익", "thstrm_amount": "6,566,976,000,000"},
    {"bsns_year": "%d", "fs_div": "CFS", "sj_div": "IS", "account_nm": "당기순이익(손실)", "thstrm_amount": "15,487,100,000,000"},
    {"bsns_year": "%d", "fs_div": "CFS", "sj_div": "BS", "account_nm": "자본총계", "thstrm_amount": "363,677,865,000,000"},
    {"bsns_year": "%d", "fs_div": "OFS", "sj_div": "BS", "account_nm": "자본총계", "thstrm_amount": "1"},
    {"bsns_year": "%d", "fs_div": "OFS", "sj_div": "BS", "account_nm": "이익잉여금", "thstrm_amount": "-1,000"},
    {"bsns_year": "%d", "fs_div": "CFS", "sj_div": "BS", "account_nm": "부채총계", "thstrm_amount": "-"}
  ]
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(config.DARTConfig{APIKey: "key", BaseURL: srv.URL + "/api/"}, nil, logger.Nop())
	c.RegisterCorpCode("005930", "00126380")
	return c
}

func TestFetchFinancials(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/fnlttSinglAcnt.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("crtfc_key"))
		assert.Equal(t, "00126380", q.Get("corp_code"))
		assert.Equal(t, reportAnnual, q.Get("reprt_code"))

		if q.Get("bsns_year") == "2022" {
			fmt.Fprint(w, `{"status":"013","message":"조회된 데이타가 없습니다."}`)
			return
		}
		y := q.Get("bsns_year")
		var year int
		fmt.Sscanf(y, "%d", &year)
		fmt.Fprintf(w, accountsJSON, year, year, year, year, year, year, year)
	})

	fs, err := c.FetchFinancials(context.Background(), "005930", 2022, 2023)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, fs, 1, "missing year skipped")

	f := fs[0]
	assert.Equal(t, 2023, f.Year)
	assert.Equal(t, 258935494000000.0, f.Revenue)
	assert.Equal(t, f.OperatingIncome, f.EBIT)
	assert.Equal(t, 15487100000000.0, f.NetIncome)
	assert.Equal(t, 363677865000000.0, f.TotalEquity, "CFS wins over OFS")
	assert.Equal(t, -1000.0, f.RetainedEarnings, "OFS fills gaps")
	assert.Equal(t, 0.0, f.TotalLiabilities, "dash is skipped")
}

func TestFetchFinancialsErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"020","message":"요청 제한을 초과하였습니다."}`)
	})
	_, err := c.FetchFinancials(context.Background(), "005930", 2023, 2023)
	assert.ErrorContains(t, err, "020")

	_, err = c.FetchFinancials(context.Background(), "000660", 2023, 2023)
	assert.ErrorContains(t, err, "no DART corp code")

	noKey := NewClient(config.DARTConfig{BaseURL: "http://unused"}, nil, nil)
	_, err = noKey.FetchFinancials(context.Background(), "00126380", 2023, 2023)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestFetchDisclosures(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/list.json", r.URL.Path)
		assert.Equal(t, "20240101", r.URL.Query().Get("bgn_de"))
		fmt.Fprint(w, `{"status":"000","total_page":1,"list":[
			{"corp_name":"삼성전자","report_nm":"주요사항보고서(유상증자결정)","rcept_no":"1"},
			{"corp_name":"삼성전자","report_nm":"감사보고서제출","rcept_no":"2"},
			{"corp_name":"삼성전자","report_nm":"자기주식취득결정","rcept_no":"3"}
		]}`)
	})
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ds, err := c.FetchDisclosures(context.Background(), "005930", from, from.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, ds, 3)

	hs := Headlines(ds)
	require.Len(t, hs, 2)
	assert.Equal(t, -0.5, hs[0].Score)
	assert.Equal(t, "유상증자", hs[0].Keyword)
	assert.Equal(t, 0.5, hs[1].Score)
}

func TestIsMajorDisclosure(t *testing.T) {
	tests := []struct {
		name       string
		reportName string
		want       bool
	}{
		{"사업보고서", "사업보고서 (2024.01)", true},
		{"분기보고서", "분기보고서 (2024.3Q)", true},
		{"주요사항보고서", "주요사항보고서(유상증자결정)", true},
		{"합병", "합병계약체결결정", true},
		{"자기주식", "자기주식취득신탁계약체결", true},
		{"일반공시", "감사보고서제출", false},
		{"기타공시", "임원ㆍ주요주주특정증권등소유상황보고서", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMajorDisclosure(tt.reportName); got != tt.want {
				t.Errorf("IsMajorDisclosure(%q) = %v, want %v", tt.reportName, got, tt.want)
			}
		})
	}
}

func TestGetDARTURL(t *testing.T) {
	want := "https://dart.fss.or.kr/dsaf001/main.do?rcpNo=20240115000123"
	if got := GetDARTURL("20240115000123"); got != want {
		t.Errorf("GetDARTURL() = %v, want %v", got, want)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"connection reset", fmt.Errorf("connection reset by peer"), true},
		{"EOF uppercase", fmt.Errorf("unexpected EOF"), true},
		{"timeout", fmt.Errorf("context deadline exceeded: i/o timeout"), true},
		{"connection refused", fmt.Errorf("dial tcp: connection refused"), true},
		{"api error", &apiError{Status: "020", Message: "timeout of quota"}, false},
		{"not found", fmt.Errorf("404 not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
