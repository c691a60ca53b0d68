package builder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantlab/internal/contracts"
)

const sampleYAML = `
name: rsi_value
owner: u1
entry_logic: and
entry:
  - {indicator: RSI, op: "<", value: 30}
  - {indicator: PER, op: "<=", value: 12}
exit:
  - {indicator: RSI, op: ">", value: 70}
target_return_pct: 15
max_drawdown_pct: 20
stop_loss_pct: 7
`

func validDefinition() *Definition {
	return &Definition{
		Name:         "rsi_value",
		Owner:        "u1",
		EntryLogic:   LogicAnd,
		Entry:        []Condition{{RSI, OpLT, 30}, {PER, OpLE, 12}},
		Exit:         []Condition{{RSI, OpGT, 70}},
		TargetReturn: 15,
		MaxDrawdown:  20,
		StopLoss:     7,
	}
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in      string
		want    Condition
		wantErr bool
	}{
		{"RSI < 30", Condition{RSI, OpLT, 30}, false},
		{"ma_ratio >= 1.05", Condition{MARatio, OpGE, 1.05}, false},
		{"ROE == 15", Condition{ROE, OpEQ, 15}, false},
		{"MACD > 0", Condition{}, true},
		{"RSI => 30", Condition{}, true},
		{"RSI <", Condition{}, true},
		{"RSI < abc", Condition{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCondition(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCondition(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCondition(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
	assert.Equal(t, "MA_RATIO >= 1.05", Condition{MARatio, OpGE, 1.05}.String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Definition)
		field  string
	}{
		{"valid", func(d *Definition) {}, ""},
		{"no name", func(d *Definition) { d.Name = " " }, "name"},
		{"bad logic", func(d *Definition) { d.EntryLogic = "xor" }, "entry_logic"},
		{"no entry", func(d *Definition) { d.Entry = nil }, "entry"},
		{"rsi out of range", func(d *Definition) { d.Entry[0].Value = 130 }, "entry[0]"},
		{"bad exit op", func(d *Definition) { d.Exit[0].Op = "!=" }, "exit[0]"},
		{"conflict", func(d *Definition) { d.Entry = append(d.Entry, Condition{RSI, OpGT, 70}) }, "entry"},
		{"boundary conflict", func(d *Definition) { d.Entry = append(d.Entry, Condition{RSI, OpGE, 30}) }, "entry"},
		{"target", func(d *Definition) { d.TargetReturn = 0 }, "target_return_pct"},
		{"drawdown", func(d *Definition) { d.MaxDrawdown = 60 }, "max_drawdown_pct"},
		{"stop beyond drawdown", func(d *Definition) { d.StopLoss = 25 }, "stop_loss_pct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDefinition()
			tt.mutate(d)
			err := Validate(d)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve ValidationError
			require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	d := validDefinition()
	d.EntryLogic = LogicOr
	d.Entry = append(d.Entry, Condition{RSI, OpGT, 70})
	assert.NoError(t, Validate(d), "OR-ed conditions may not overlap")

	d = validDefinition()
	d.Entry = []Condition{{RSI, OpGE, 30}, {RSI, OpLE, 30}}
	assert.NoError(t, Validate(d), "closed bounds meet at a point")
}

func TestSuggest(t *testing.T) {
	assert.Empty(t, Suggest(validDefinition()))

	d := validDefinition()
	d.Entry = []Condition{{RSI, OpLT, 20}, {RSI, OpGT, 80}, {PER, OpLT, 500}, {PBR, OpLT, 1}}
	d.Exit = nil
	d.StopLoss = 0
	d.TargetReturn = 40
	d.MaxDrawdown = 5

	codes := map[string]bool{}
	for _, s := range Suggest(d) {
		codes[s.Code] = true
	}
	for _, want := range []string{"OUT_OF_RANGE", "CONFLICT", "COMPLEX", "NO_STOP", "TIGHT_DRAWDOWN"} {
		assert.True(t, codes[want], "missing %s", want)
	}

	for _, s := range Suggest(d) {
		if s.Code == "OUT_OF_RANGE" {
			assert.Contains(t, s.Message, "PER < 300")
		}
	}
}

func TestEvaluate(t *testing.T) {
	d := validDefinition()

	dec := Evaluate(d, Snapshot{RSI: 25, PER: 10})
	assert.True(t, dec.Entry)
	assert.False(t, dec.Exit)

	dec = Evaluate(d, Snapshot{RSI: 75, PER: 10})
	assert.False(t, dec.Entry)
	assert.True(t, dec.Exit)

	dec = Evaluate(d, Snapshot{RSI: 25})
	assert.False(t, dec.Entry, "missing PER fails an AND")
	assert.Equal(t, []Indicator{PER}, dec.Missing)

	d.EntryLogic = LogicOr
	dec = Evaluate(d, Snapshot{RSI: 25})
	assert.True(t, dec.Entry)
}

func TestSnapshotFrom(t *testing.T) {
	s := &contracts.Series{Code: "005930"}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		s.Bars = append(s.Bars, contracts.Bar{Date: start.AddDate(0, 0, i), Close: 100 + float64(i)})
	}
	fin := &contracts.Financials{PER: 9.5, PBR: 1.1, NetIncome: 15, TotalEquity: 100}

	snap := SnapshotFrom(s, fin)
	assert.InDelta(t, 129.0/109.0*100-100, snap[Momentum], 1e-9)
	assert.InDelta(t, 129.0/119.5, snap[MARatio], 1e-9)
	assert.Contains(t, snap, RSI)
	assert.InDelta(t, 15.0, snap[ROE], 1e-9)
	assert.Equal(t, 9.5, snap[PER])

	snap = SnapshotFrom(nil, nil)
	assert.Empty(t, snap)
}

func TestParseMarshalHash(t *testing.T) {
	d, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, validDefinition(), d)

	out, err := Marshal(d)
	require.NoError(t, err)
	back, err := Parse(out)
	require.NoError(t, err)

	h1, err := Hash(d)
	require.NoError(t, err)
	h2, _ := Hash(back)
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2)

	back.Entry[0].Value = 25
	h3, _ := Hash(back)
	assert.NotEqual(t, h1, h3)

	_, err = Parse([]byte(sampleYAML + "unknown_field: 1\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rsi_value", d.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
