// Package report aggregates verdicts into a scored hallucination report.
package report

import (
	"fmt"
	"sort"

	"github.com/graphlint/graphlint/internal/validate"
)

// Finding is one reportable problem: an INVALID usage or an UNCERTAIN one
// the reader should double-check.
type Finding struct {
	Status      validate.Status `json:"status"`
	Line        int             `json:"line"`
	Name        string          `json:"name"`
	Explanation string          `json:"explanation"`
	MatchedQN   string          `json:"matched_qn,omitempty"`
}

// Report is the aggregate outcome of one validation request.
type Report struct {
	OverallConfidence  float64   `json:"overall_confidence"`
	ValidCount         int       `json:"valid_count"`
	HallucinationCount int       `json:"hallucination_count"`
	UncertainCount     int       `json:"uncertain_count"`
	Findings           []Finding `json:"findings"`
}

// Summarize folds a verdict list into a report. Confidence is the valid share
// of decidable verdicts; UNCERTAIN carries no weight in either direction but
// its findings are listed, never dropped. With nothing decidable the script
// gets the benefit of the doubt.
func Summarize(verdicts []validate.Verdict) *Report {
	r := &Report{Findings: []Finding{}}

	var invalid, uncertain []Finding
	for _, v := range verdicts {
		switch v.Status {
		case validate.StatusValid:
			r.ValidCount++
		case validate.StatusInvalid:
			r.HallucinationCount++
			invalid = append(invalid, toFinding(v))
		case validate.StatusUncertain:
			r.UncertainCount++
			uncertain = append(uncertain, toFinding(v))
		}
	}

	decidable := r.ValidCount + r.HallucinationCount
	if decidable == 0 {
		r.OverallConfidence = 1.0
	} else {
		r.OverallConfidence = float64(r.ValidCount) / float64(decidable)
	}

	sort.SliceStable(invalid, func(i, j int) bool { return invalid[i].Line < invalid[j].Line })
	sort.SliceStable(uncertain, func(i, j int) bool { return uncertain[i].Line < uncertain[j].Line })
	r.Findings = append(r.Findings, invalid...)
	r.Findings = append(r.Findings, uncertain...)
	return r
}

func toFinding(v validate.Verdict) Finding {
	return Finding{
		Status:      v.Status,
		Line:        v.Usage.Line,
		Name:        v.Usage.Name,
		Explanation: v.Explanation,
		MatchedQN:   v.MatchedQN,
	}
}

// Render formats a report for terminal output.
func (r *Report) Render() string {
	out := fmt.Sprintf("confidence %.2f  valid %d  hallucinations %d  uncertain %d\n",
		r.OverallConfidence, r.ValidCount, r.HallucinationCount, r.UncertainCount)
	for _, f := range r.Findings {
		out += fmt.Sprintf("  [%s] line %d: %s: %s\n", f.Status, f.Line, f.Name, f.Explanation)
	}
	return out
}
