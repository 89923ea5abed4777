// Package classify decides whether an utterance is a local command or an
// AI query. It is a pure function over the input text; the router owns
// what happens with the decision.
package classify

import "strings"

type Kind int

const (
	// Local means the utterance names something the app launcher can
	// handle (an application or a web service).
	Local Kind = iota
	// AI means the utterance goes to the AI session manager.
	AI
)

// Decision carries the routing choice for one utterance. Target is only
// set for Local decisions.
type Decision struct {
	Kind   Kind
	Target string
}

// Keywords that mark an utterance as locally handleable even without the
// "open" prefix. The full utterance is passed through as the target, not
// just the keyword.
var localKeywords = []string{"calculator", "terminal", "editor", "browser"}

// Classify routes a trimmed, case-folded utterance. The "open " prefix
// wins over keyword containment.
func Classify(text string) Decision {
	lower := strings.ToLower(strings.TrimSpace(text))

	if rest, ok := strings.CutPrefix(lower, "open "); ok {
		return Decision{Kind: Local, Target: strings.TrimSpace(rest)}
	}

	for _, kw := range localKeywords {
		if strings.Contains(lower, kw) {
			return Decision{Kind: Local, Target: lower}
		}
	}

	return Decision{Kind: AI}
}
