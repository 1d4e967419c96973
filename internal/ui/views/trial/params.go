package trial

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	trialdto "evseg/internal/modules/trial/dto"
)

// ParametersMarkdown lays the parameter reference out as a markdown table.
func ParametersMarkdown(params []trialdto.ParameterOutput) string {
	var b strings.Builder
	b.WriteString("# Trial parameters\n\n")
	b.WriteString("| Name | Type | Default | Description |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, p := range params {
		typ := p.Type
		if p.Array {
			typ += "[]"
		}
		fmt.Fprintf(&b, "| `%s` | %s | `%s` | %s |\n", p.Name, typ, p.Default, p.Description)
	}
	return b.String()
}

// RenderParameters renders the parameter reference for a terminal width.
func RenderParameters(params []trialdto.ParameterOutput, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(ParametersMarkdown(params))
}
