package novelty

import (
	"regexp"
	"strings"
)

var (
	markupPattern  = regexp.MustCompile(`<[^>]*>`)
	markerPattern  = regexp.MustCompile("[#*_`~>]")
	nonWordPattern = regexp.MustCompile(`[^\w\s]`)
)

// stopWords is the closed list of function words ignored by the guard
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a an the
		and or but nor so yet if then than because while although though
		of in on at to for from by with about into onto over under above below
		between through during before after against among around without within
		up down out off as via per
		i me my mine myself you your yours yourself we us our ours ourselves
		he him his himself she her hers herself it its itself they them their
		theirs themselves this that these those who whom whose which what
		is am are was were be been being do does did doing done
		have has had having will would shall should can could may might must
		not no there here when where why how all any each both few more most
		other some such only own same too very just also`) {
		stopWords[w] = struct{}{}
	}
}

// IsStopWord reports whether token is dropped by Tokenize
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

// StripMarkup replaces every tag-like <...> span with a space
func StripMarkup(text string) string {
	return markupPattern.ReplaceAllString(text, " ")
}

// Tokenize lowercases text, drops markdown markers and punctuation, and
// returns the remaining non-stop-word tokens in their original order.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = markerPattern.ReplaceAllString(text, " ")
	text = nonWordPattern.ReplaceAllString(text, " ")

	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if field == "" || IsStopWord(field) {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}
