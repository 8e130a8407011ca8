package scenario

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Summary counts outcomes.
type Summary struct {
	Passed, Failed int
}

func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// WriteReport renders one PASS/FAIL line per result, the failure
// diagnostics indented beneath, and a closing summary line.
func WriteReport(w io.Writer, results []Result) error {
	var b strings.Builder
	suite := ""
	for _, r := range results {
		if r.Suite != suite {
			if suite != "" {
				b.WriteByte('\n')
			}
			suite = r.Suite
			fmt.Fprintf(&b, "%s\n", suite)
		}
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "  %s  %s (%v)\n", status, r.Name, r.Duration.Round(time.Millisecond))
		if r.Err != nil {
			for _, line := range strings.Split(strings.TrimRight(r.Err.Error(), "\n"), "\n") {
				fmt.Fprintf(&b, "        %s\n", line)
			}
		}
	}

	s := Summarize(results)
	if len(results) > 0 {
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d passed, %d failed, %d total\n", s.Passed, s.Failed, len(results))
	_, err := io.WriteString(w, b.String())
	return err
}
