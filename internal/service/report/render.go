package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"plantdoctor/internal/model"
)

//go:embed templates/report.html
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.html").
	Funcs(template.FuncMap{"results": newResultBlock}).
	ParseFS(templateFS, "templates/report.html"))

// resultBlock is one list of search hits and the anchor text of its links.
type resultBlock struct {
	Items    []model.SearchResult
	LinkText string
}

func newResultBlock(items []model.SearchResult, linkText string) resultBlock {
	return resultBlock{Items: items, LinkText: linkText}
}

// Render writes the HTML fragment for one analysis.
func Render(w io.Writer, r model.AnalysisReport) error {
	if err := reportTemplate.ExecuteTemplate(w, "report", r); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// RenderText returns the report as plain text. With no diseases it is exactly the message.
func RenderText(r model.AnalysisReport) string {
	if len(r.Diseases) == 0 {
		if r.Message != "" {
			return r.Message
		}
		return NoDiseasesMessage
	}

	var sb strings.Builder
	for _, d := range r.Diseases {
		fmt.Fprintf(&sb, "Detected Disease: %s\n", d.DiseaseName)
		fmt.Fprintf(&sb, "Disease Information: %s\n", d.DiseaseName)
		fmt.Fprintf(&sb, "Description: %s\n", d.Description)

		if len(d.PreventionResults) > 0 {
			sb.WriteString("Prevention and Cure Information:\n")
			writeResults(&sb, d.PreventionResults)
		} else {
			sb.WriteString("Prevention and Cure Information: No information found.\n")
		}

		if len(d.ProductResults) > 0 {
			sb.WriteString("Recommended Products from Amazon India:\n")
			writeResults(&sb, d.ProductResults)
		} else {
			sb.WriteString("Product Recommendations: No products found.\n")
		}
		sb.WriteString("---\n")
	}
	return sb.String()
}

func writeResults(sb *strings.Builder, results []model.SearchResult) {
	for _, r := range results {
		fmt.Fprintf(sb, "- Title: %s\n", r.Title)
		fmt.Fprintf(sb, "  Description: %s\n", r.Snippet)
		fmt.Fprintf(sb, "  Reference: %s\n", r.Link)
	}
}
