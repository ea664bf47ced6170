package email

import (
	"html"
	"strings"
)

// Render substitutes {{key}} placeholders in tpl. Values are HTML-escaped;
// unknown placeholders are left as they are.
func Render(tpl string, vars map[string]string) string {
	if len(vars) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", html.EscapeString(v))
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}
