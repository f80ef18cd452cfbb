package analytics

import (
	"fmt"
	"strings"
	"unicode"
)

// LabelEntry is one catalog entry offered for selection
type LabelEntry struct {
	Key           string
	Title         string
	CompleteTitle string
}

// ResolvedLabel pairs a unique display label with its series key
type ResolvedLabel struct {
	Label string `json:"label"`
	Key   string `json:"key"`
}

// LabelResolution is the outcome of ResolveLabels: labels in input order plus
// the label -> key lookup.
type LabelResolution struct {
	Ordered []ResolvedLabel
	ByLabel map[string]string
}

// ResolveLabels gives every entry a unique display label.
// Unique titles are used as is. For a repeated title, the text the complete
// title adds beyond the short title becomes a parenthesized suffix; when no such
// residual exists the first occurrence keeps the bare title and later ones get
// "(2)", "(3)", ... in first-seen order. Any remaining collision is broken with
// the next free counter on the same base.
func ResolveLabels(entries []LabelEntry) LabelResolution {
	titleCount := make(map[string]int, len(entries))
	for _, e := range entries {
		titleCount[baseTitle(e)]++
	}

	res := LabelResolution{
		Ordered: make([]ResolvedLabel, 0, len(entries)),
		ByLabel: make(map[string]string, len(entries)),
	}
	seen := make(map[string]int, len(entries))

	for _, e := range entries {
		title := baseTitle(e)
		seen[title]++

		label, counterBase := title, title
		if titleCount[title] > 1 {
			if residual := titleResidual(title, e.CompleteTitle); residual != "" {
				label = fmt.Sprintf("%s (%s)", title, residual)
				counterBase = label
			} else if n := seen[title]; n > 1 {
				label = fmt.Sprintf("%s (%d)", title, n)
			}
		}

		label = nextFree(label, counterBase, res.ByLabel)
		res.ByLabel[label] = e.Key
		res.Ordered = append(res.Ordered, ResolvedLabel{Label: label, Key: e.Key})
	}

	return res
}

// baseTitle falls back to the key for untitled entries
func baseTitle(e LabelEntry) string {
	if t := strings.TrimSpace(e.Title); t != "" {
		return t
	}
	return e.Key
}

// nextFree returns label when unused, otherwise the first free "base (n)".
// Ordinal labels count on the bare title so "CPI (2)" moves on to "CPI (3)".
func nextFree(label, base string, used map[string]string) string {
	if _, taken := used[label]; !taken {
		return label
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}

// titleResidual strips the short title out of the complete title and trims
// the punctuation and parentheses left around the remainder.
func titleResidual(title, complete string) string {
	complete = strings.TrimSpace(complete)
	if complete == "" || complete == title {
		return ""
	}

	idx := strings.Index(complete, title)
	if idx < 0 {
		return ""
	}
	rest := complete[:idx] + " " + complete[idx+len(title):]

	rest = strings.TrimFunc(rest, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(titleSeparators, r)
	})
	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") && strings.Count(rest, "(") == 1 {
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}
	return strings.Join(strings.Fields(rest), " ")
}

const titleSeparators = "-–—:,;/|."
