package expect

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
)

// All holds when every predicate holds. The observation reported is the one
// rendered by the first failing predicate.
func All[T any](preds ...Predicate[T]) Predicate[T] {
	names := make([]string, len(preds))
	for i, p := range preds {
		names[i] = p.Name
	}
	return Predicate[T]{
		Name: strings.Join(names, " and "),
		Match: func(v T) (bool, string) {
			var last string
			for _, p := range preds {
				ok, obs := p.Match(v)
				if !ok {
					return false, obs
				}
				last = obs
			}
			return true, last
		},
	}
}

func describe(nodes []driver.Node) string {
	if len(nodes) == 0 {
		return "no elements"
	}
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		vis := "visible"
		if !n.Visible {
			vis = "hidden"
		}
		parts[i] = fmt.Sprintf("<%s %s %q>", n.Tag, vis, strings.TrimSpace(n.Text))
	}
	return strings.Join(parts, ", ")
}

func joinedText(nodes []driver.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(strings.TrimSpace(n.Text))
	}
	return b.String()
}

// Exist holds when at least one element is present.
func Exist() Predicate[[]driver.Node] {
	return Predicate[[]driver.Node]{
		Name: "exist",
		Match: func(nodes []driver.Node) (bool, string) {
			return len(nodes) > 0, describe(nodes)
		},
	}
}

// NotExist holds as soon as no element is present, including when the
// element never existed.
func NotExist() Predicate[[]driver.Node] {
	return Predicate[[]driver.Node]{
		Name: "not exist",
		Match: func(nodes []driver.Node) (bool, string) {
			return len(nodes) == 0, describe(nodes)
		},
	}
}

// Visible holds when elements are present and all of them are visible.
func Visible() Predicate[[]driver.Node] {
	return Predicate[[]driver.Node]{
		Name: "be visible",
		Match: func(nodes []driver.Node) (bool, string) {
			if len(nodes) == 0 {
				return false, describe(nodes)
			}
			for _, n := range nodes {
				if !n.Visible {
					return false, describe(nodes)
				}
			}
			return true, describe(nodes)
		},
	}
}

// Contains holds when the text of at least one element contains sub.
func Contains(sub string) Predicate[[]driver.Node] {
	return Predicate[[]driver.Node]{
		Name: "contain " + strconv.Quote(sub),
		Match: func(nodes []driver.Node) (bool, string) {
			for _, n := range nodes {
				if strings.Contains(strings.TrimSpace(n.Text), sub) {
					return true, describe(nodes)
				}
			}
			return false, describe(nodes)
		},
	}
}

// HasText holds when the combined trimmed text equals text exactly.
func HasText(text string) Predicate[[]driver.Node] {
	return Predicate[[]driver.Node]{
		Name: "have text " + strconv.Quote(text),
		Match: func(nodes []driver.Node) (bool, string) {
			return len(nodes) > 0 && joinedText(nodes) == text, describe(nodes)
		},
	}
}

// Count holds when exactly n elements are present.
func Count(n int) Predicate[[]driver.Node] {
	return Predicate[[]driver.Node]{
		Name: fmt.Sprintf("have %d elements", n),
		Match: func(nodes []driver.Node) (bool, string) {
			return len(nodes) == n, fmt.Sprintf("%d elements: %s", len(nodes), describe(nodes))
		},
	}
}

// Equal holds when the observation equals want.
func Equal[T comparable](want T) Predicate[T] {
	return Predicate[T]{
		Name: fmt.Sprintf("equal %#v", want),
		Match: func(v T) (bool, string) {
			return v == want, fmt.Sprintf("%#v", v)
		},
	}
}

// SequenceEqual holds when the observed slice equals want element by element.
// A mismatch is rendered as a unified diff.
func SequenceEqual(want []string) Predicate[[]string] {
	return Predicate[[]string]{
		Name: fmt.Sprintf("equal sequence of %d items", len(want)),
		Match: func(got []string) (bool, string) {
			if slices.Equal(got, want) {
				return true, fmt.Sprintf("%q", got)
			}
			return false, diffLines(want, got)
		},
	}
}

// SetEqual holds when both slices hold the same items regardless of order.
func SetEqual(want []string) Predicate[[]string] {
	sortedWant := slices.Clone(want)
	slices.Sort(sortedWant)
	return Predicate[[]string]{
		Name: fmt.Sprintf("equal set of %d items", len(want)),
		Match: func(got []string) (bool, string) {
			sortedGot := slices.Clone(got)
			slices.Sort(sortedGot)
			if slices.Equal(sortedGot, sortedWant) {
				return true, fmt.Sprintf("%q", got)
			}
			return false, diffLines(sortedWant, sortedGot)
		},
	}
}

func diffLines(want, got []string) string {
	d := difflib.UnifiedDiff{
		A:        withNewlines(want),
		B:        withNewlines(got),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  1,
	}
	text, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return fmt.Sprintf("%q", got)
	}
	return "\n" + text
}

func withNewlines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}
	return out
}
