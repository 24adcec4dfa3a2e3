package report

import (
	"strings"
	"testing"

	"github.com/graphlint/graphlint/internal/usage"
	"github.com/graphlint/graphlint/internal/validate"
)

func verdict(status validate.Status, line int, name string) validate.Verdict {
	return validate.Verdict{
		Usage:       usage.SymbolUse{Kind: usage.KindCall, Name: name, Line: line},
		Status:      status,
		Explanation: "test",
	}
}

func TestSummarizeCounts(t *testing.T) {
	r := Summarize([]validate.Verdict{
		verdict(validate.StatusValid, 1, "a"),
		verdict(validate.StatusValid, 2, "b"),
		verdict(validate.StatusInvalid, 3, "c"),
		verdict(validate.StatusUncertain, 4, "d"),
	})

	if r.ValidCount != 2 || r.HallucinationCount != 1 || r.UncertainCount != 1 {
		t.Fatalf("counts: valid=%d invalid=%d uncertain=%d", r.ValidCount, r.HallucinationCount, r.UncertainCount)
	}
	want := 2.0 / 3.0
	if r.OverallConfidence != want {
		t.Errorf("confidence: got %f, want %f", r.OverallConfidence, want)
	}
}

func TestConfidenceExcludesUncertain(t *testing.T) {
	r := Summarize([]validate.Verdict{
		verdict(validate.StatusValid, 1, "a"),
		verdict(validate.StatusUncertain, 2, "b"),
		verdict(validate.StatusUncertain, 3, "c"),
	})
	if r.OverallConfidence != 1.0 {
		t.Errorf("confidence with only uncertain noise: got %f, want 1.0", r.OverallConfidence)
	}
}

func TestConfidenceBounds(t *testing.T) {
	r := Summarize([]validate.Verdict{
		verdict(validate.StatusInvalid, 1, "a"),
		verdict(validate.StatusInvalid, 2, "b"),
	})
	if r.OverallConfidence != 0.0 {
		t.Errorf("all invalid: got %f, want 0.0", r.OverallConfidence)
	}

	r = Summarize(nil)
	if r.OverallConfidence != 1.0 {
		t.Errorf("empty verdicts: got %f, want 1.0", r.OverallConfidence)
	}
	if r.Findings == nil || len(r.Findings) != 0 {
		t.Errorf("empty verdicts should yield empty findings, got %v", r.Findings)
	}
}

func TestFindingsOrdering(t *testing.T) {
	r := Summarize([]validate.Verdict{
		verdict(validate.StatusUncertain, 1, "u1"),
		verdict(validate.StatusInvalid, 9, "i2"),
		verdict(validate.StatusInvalid, 3, "i1"),
		verdict(validate.StatusUncertain, 5, "u2"),
	})

	got := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		got[i] = f.Name
	}
	want := []string{"i1", "i2", "u1", "u2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("findings order: got %v, want %v", got, want)
		}
	}
}

func TestRender(t *testing.T) {
	r := Summarize([]validate.Verdict{verdict(validate.StatusInvalid, 7, "Foo.baz")})
	out := r.Render()
	if !strings.Contains(out, "line 7") || !strings.Contains(out, "Foo.baz") {
		t.Errorf("render output missing finding details:\n%s", out)
	}
}
