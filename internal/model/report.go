package model

// SearchResult is one item returned by the web search API.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// DiseaseReport is the enrichment of a single detection.
type DiseaseReport struct {
	Detection         Detection      `json:"detection"`
	DiseaseName       string         `json:"disease_name"`
	Description       string         `json:"description"`
	PreventionResults []SearchResult `json:"prevention_results"`
	ProductResults    []SearchResult `json:"product_results"`
	Warnings          []string       `json:"warnings,omitempty"`
}

// AnalysisReport is the outcome of one upload. It lives for a single request.
type AnalysisReport struct {
	Threshold   float64         `json:"threshold"`
	ImageWidth  int             `json:"image_width"`
	ImageHeight int             `json:"image_height"`
	Preview     string          `json:"preview,omitempty"` // data URL
	Diseases    []DiseaseReport `json:"diseases"`
	Message     string          `json:"message,omitempty"`
}

// Warnings collects the warnings of every disease entry in order.
func (r *AnalysisReport) Warnings() []string {
	var out []string
	for _, d := range r.Diseases {
		out = append(out, d.Warnings...)
	}
	return out
}
