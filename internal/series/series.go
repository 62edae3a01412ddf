// Package series chooses the one nominal series a session works with.
package series

import (
	"errors"
	"strings"
)

// ErrNoSeries means the records carried no series label at all.
var ErrNoSeries = errors.New("nenhuma série encontrada no CSV")

var (
	nominalHints = []string{"corrente", "preços correntes", "nominal"}
	realHints    = []string{"real", "deflator", "2023", "preços de 2023"}
)

// PickNominal selects the session series from the distinct labels, in the order given (callers pass the
// sorted distinct list). Matching is case-insensitive:
//  1. the first label mentioning current prices or "nominal";
//  2. else the first label that does not look deflated;
//  3. else the first label.
func PickNominal(labels []string) (string, error) {
	if len(labels) == 0 {
		return "", ErrNoSeries
	}
	for _, l := range labels {
		if containsAny(strings.ToLower(l), nominalHints) {
			return l, nil
		}
	}
	for _, l := range labels {
		if !containsAny(strings.ToLower(l), realHints) {
			return l, nil
		}
	}
	return labels[0], nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
