package types

import (
	"testing"
	"time"

	"github.com/xtxerr/rrdb/internal/errors"
)

func TestSampleTimestampTime(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	s := NewSample(now, []float64{1, 2})

	if !s.TimestampTime().Equal(now) {
		t.Errorf("expected %v, got %v", now, s.TimestampTime())
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 values, got %d", s.Len())
	}
}

func TestNewSampleCopiesValues(t *testing.T) {
	vals := []float64{1, 2}
	s := NewSample(time.Now(), vals)
	vals[0] = 99

	if s.Values[0] != 1 {
		t.Errorf("sample shares caller slice: %v", s.Values)
	}

	c := s.Clone()
	c.Values[1] = 42
	if s.Values[1] != 2 {
		t.Errorf("clone shares slice: %v", s.Values)
	}
}

func TestParseValues(t *testing.T) {
	tests := []struct {
		in      string
		want    []float64
		wantErr bool
	}{
		{"12", []float64{12}, false},
		{"1.5:2:-3", []float64{1.5, 2, -3}, false},
		{" 4 : 5 ", []float64{4, 5}, false},
		{"1::2", []float64{1, 2}, false},
		{"", []float64{}, false},
		{"1:abc", nil, true},
		{"NaN", nil, true},
		{"1:+Inf", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseValues(tt.in)
		if tt.wantErr {
			if !errors.Is(err, errors.ErrInvalidValue) {
				t.Errorf("ParseValues(%q): expected ErrInvalidValue, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseValues(%q): %v", tt.in, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParseValues(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseValues(%q)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestGranularityDuration(t *testing.T) {
	tests := []struct {
		g    Granularity
		want time.Duration
	}{
		{FiveMinute, 5 * time.Minute},
		{OneHour, time.Hour},
		{SixHour, 6 * time.Hour},
		{TwelveHour, 12 * time.Hour},
		{OneDay, 24 * time.Hour},
		{Granularity(0), 0},
	}

	for _, tt := range tests {
		if got := tt.g.Duration(); got != tt.want {
			t.Errorf("%s.Duration() = %v, want %v", tt.g, got, tt.want)
		}
	}
}

func TestGranularityTruncate(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 37, 45, 123000000, time.UTC)

	tests := []struct {
		g    Granularity
		want time.Time
	}{
		{FiveMinute, time.Date(2024, 1, 15, 10, 35, 0, 0, time.UTC)},
		{OneHour, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)},
		{SixHour, time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC)},
		{TwelveHour, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{OneDay, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got := time.UnixMilli(tt.g.TruncateMs(ts.UnixMilli())).UTC()
		if !got.Equal(tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.g, tt.want, got)
		}
	}
}

func TestGranularityTruncateNegative(t *testing.T) {
	// One millisecond before the epoch belongs to the bucket ending at it.
	if got := FiveMinute.TruncateMs(-1); got != -300000 {
		t.Errorf("TruncateMs(-1) = %d, want -300000", got)
	}
	if got := FiveMinute.TruncateMs(-300000); got != -300000 {
		t.Errorf("TruncateMs(-300000) = %d, want -300000", got)
	}
}

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		input   string
		want    Granularity
		wantErr bool
	}{
		{"FIVEMINUTE", FiveMinute, false},
		{"fiveminute", FiveMinute, false},
		{"SHORT", Short, false},
		{"ONEHOUR", OneHour, false},
		{"SIXHOUR", SixHour, false},
		{"TWELVEHOUR", TwelveHour, false},
		{"ONEDAY", OneDay, false},
		{"long", Long, false},
		{"WEEKLY", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseGranularity(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseGranularity(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseGranularity(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseGranularity(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestGranularityRoundTrip(t *testing.T) {
	for _, g := range []Granularity{FiveMinute, OneHour, SixHour, TwelveHour, OneDay} {
		parsed, err := ParseGranularity(g.String())
		if err != nil {
			t.Fatalf("ParseGranularity(%s): %v", g, err)
		}
		if parsed != g {
			t.Errorf("round trip %s -> %s", g, parsed)
		}
	}
}

func TestParseFunction(t *testing.T) {
	tests := []struct {
		input string
		want  Function
	}{
		{"RRDBCOUNT", Count},
		{"COUNT", Count},
		{"rrdbsum", Sum},
		{"MAX", Max},
		{"RRDBMIN", Min},
		{"MEAN", Mean},
		{"P99", P99},
	}

	for _, tt := range tests {
		got, err := ParseFunction(tt.input)
		if err != nil {
			t.Errorf("ParseFunction(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFunction(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if _, err := ParseFunction("MEDIAN"); !errors.Is(err, errors.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTransforms(t *testing.T) {
	ts, err := ParseTransforms("RRDBCOUNT:FIVEMINUTE:COUNT:ONEDAY:RRDBSUM:FIVEMINUTE:0:MAX:SHORT:1:mean:FIVEMINUTE:0")
	if err != nil {
		t.Fatalf("ParseTransforms: %v", err)
	}
	if len(ts) != 5 {
		t.Fatalf("expected 5 transforms, got %d", len(ts))
	}

	want := []string{
		"RRDBCOUNT:FIVEMINUTE",
		"RRDBCOUNT:ONEDAY",
		"RRDBSUM:FIVEMINUTE:0",
		"RRDBMAX:FIVEMINUTE:1",
		"RRDBMEAN:FIVEMINUTE:0",
	}
	for i, tr := range ts {
		if tr.Index != i {
			t.Errorf("transform %d has index %d", i, tr.Index)
		}
		if tr.Token() != want[i] {
			t.Errorf("transform %d = %s, want %s", i, tr.Token(), want[i])
		}
	}

	if _, ok := ts[0].Target.(Arrivals); !ok {
		t.Errorf("COUNT should target arrivals, got %v", ts[0].Target)
	}
	if d, ok := ts[3].Target.(Dataset); !ok || d.Index != 1 {
		t.Errorf("MAX should target dataset 1, got %v", ts[3].Target)
	}
}

func TestParseTransformsErrors(t *testing.T) {
	tests := []string{
		"RRDBCOUNT",
		"RRDBCOUNT:WEEKLY",
		"RRDBSUM:FIVEMINUTE",
		"RRDBSUM:FIVEMINUTE:x",
		"RRDBSUM:FIVEMINUTE:-1",
		"FIVEMINUTE:RRDBCOUNT",
		"RRDBCOUNT:FIVEMINUTE:0",
	}

	for _, input := range tests {
		if _, err := ParseTransforms(input); !errors.Is(err, errors.ErrInvalidToken) {
			t.Errorf("ParseTransforms(%q) = %v, want ErrInvalidToken", input, err)
		}
	}
}

func TestParseTransformsEmpty(t *testing.T) {
	ts, err := ParseTransforms("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ts) != 0 {
		t.Errorf("expected no transforms, got %d", len(ts))
	}

	ts, err = ParseTransforms("::RRDBCOUNT::ONEDAY:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ts) != 1 {
		t.Errorf("expected 1 transform, got %d", len(ts))
	}
}

func TestFormatTransformsRoundTrip(t *testing.T) {
	input := "count:short:sum:long:0:p95:ONEHOUR:1:RRDBMIN:SIXHOUR:0"
	ts, err := ParseTransforms(input)
	if err != nil {
		t.Fatalf("ParseTransforms: %v", err)
	}

	canonical := FormatTransforms(ts)
	if canonical != "RRDBCOUNT:FIVEMINUTE:RRDBSUM:ONEDAY:0:RRDBP95:ONEHOUR:1:RRDBMIN:SIXHOUR:0" {
		t.Errorf("unexpected canonical form %q", canonical)
	}

	again, err := ParseTransforms(canonical)
	if err != nil {
		t.Fatalf("ParseTransforms(canonical): %v", err)
	}
	if FormatTransforms(again) != canonical {
		t.Errorf("canonical form not stable: %q", FormatTransforms(again))
	}
}

func TestTransformValidate(t *testing.T) {
	tests := []struct {
		name    string
		tr      Transform
		wantErr bool
	}{
		{"count", NewTransform(0, Count, FiveMinute, 0), false},
		{"sum in range", NewTransform(0, Sum, OneDay, 1), false},
		{"sum out of range", NewTransform(0, Sum, OneDay, 2), true},
		{"bad granularity", NewTransform(0, Sum, Granularity(9), 0), true},
		{"count with dataset", Transform{Function: Count, Granularity: OneDay, Target: Dataset{Index: 0}}, true},
		{"sum without dataset", Transform{Function: Sum, Granularity: OneDay, Target: Arrivals{}}, true},
		{"no target", Transform{Function: Sum, Granularity: OneDay}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tr.Validate(2)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestGranularitiesFirstReferenceOrder(t *testing.T) {
	ts, err := ParseTransforms("COUNT:ONEDAY:COUNT:FIVEMINUTE:SUM:ONEDAY:0")
	if err != nil {
		t.Fatalf("ParseTransforms: %v", err)
	}

	gs := Granularities(ts)
	if len(gs) != 2 || gs[0] != OneDay || gs[1] != FiveMinute {
		t.Errorf("unexpected granularities %v", gs)
	}
}

func TestUsesPercentiles(t *testing.T) {
	ts, _ := ParseTransforms("COUNT:ONEDAY:P90:FIVEMINUTE:1")

	if UsesPercentiles(ts, 0) {
		t.Error("dataset 0 should not track a sketch")
	}
	if !UsesPercentiles(ts, 1) {
		t.Error("dataset 1 should track a sketch")
	}
}

func TestSeriesCurrent(t *testing.T) {
	s := Series{}
	if _, ok := s.Current(); ok {
		t.Error("empty series has no current bucket")
	}

	s.Results = []Result{{Start: 0}, {Start: 300000, Open: true, Value: 3}}
	cur, ok := s.Current()
	if !ok || !cur.Open || cur.Value != 3 {
		t.Errorf("unexpected current %+v", cur)
	}
	if cur.StartSeconds() != 300 {
		t.Errorf("expected 300s, got %d", cur.StartSeconds())
	}
}
