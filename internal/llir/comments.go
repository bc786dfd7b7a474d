package llir

import (
	"regexp"
	"strconv"
)

// commentRefPattern matches the metadata references the instruction printers append, e.g. " !c12".
var commentRefPattern = regexp.MustCompile(` !c(\d+)`)

// ResolveIRComments scans a textual LLIR listing produced by Module.String and replaces every metadata
// reference with the comment it names, leaving a readable annotated listing. Unknown references are
// dropped.
func (m *Module) ResolveIRComments(ir string) string {
	return commentRefPattern.ReplaceAllStringFunc(ir, func(ref string) string {
		sub := commentRefPattern.FindStringSubmatch(ref)
		id, err := strconv.Atoi(sub[1])
		if err != nil {
			return ""
		}
		text := m.Comment(id)
		if text == "" {
			return ""
		}
		return " ; " + text
	})
}
