package task

import (
	"regexp"
	"strings"
)

var (
	bracketToken = regexp.MustCompile(`\[([^\[\]]*)\]`)
	keyValueWord = regexp.MustCompile(`^[A-Za-z0-9_.+-]+=[^\s=\[\]]+$`)
)

// ExtractWhiteboardTags parses a Bugzilla whiteboard into tags.
//
// Two token forms are recognized: bracketed labels such as "[good first bug]"
// and bare key=value words such as "lang=js" appearing outside brackets.
// Anything else is ignored. The result is sorted and deduplicated.
func ExtractWhiteboardTags(whiteboard string) []string {
	if strings.TrimSpace(whiteboard) == "" {
		return []string{}
	}

	var tags []string
	for _, m := range bracketToken.FindAllStringSubmatch(whiteboard, -1) {
		if tag := strings.TrimSpace(m[1]); tag != "" {
			tags = append(tags, tag)
		}
	}

	outside := bracketToken.ReplaceAllString(whiteboard, " ")
	for _, word := range strings.Fields(outside) {
		if keyValueWord.MatchString(word) {
			tags = append(tags, word)
		}
	}

	return NormalizeTags(tags)
}
