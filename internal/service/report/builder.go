package report

import (
	"context"

	"plantdoctor/internal/logger"
	"plantdoctor/internal/model"
	"plantdoctor/internal/service/enrichment"
)

const (
	// NoDiseasesMessage replaces the report when nothing clears the threshold.
	NoDiseasesMessage = "No diseases detected. Please try another image."
	// NoUploadMessage is shown before any image has been uploaded.
	NoUploadMessage = "Please upload an image to detect plant diseases."
)

// PreventionQuery is the web search used for the prevention and cure block.
func PreventionQuery(disease string) string {
	return disease + " prevention and cure site:.in"
}

// ProductQuery is the web search used for the product block.
func ProductQuery(disease string) string {
	return disease + " pesticides fertilizers site:amazon.in"
}

// Builder enriches detections into report entries.
type Builder struct {
	enricher enrichment.Enricher
	results  int
	logger   *logger.Logger
}

func NewBuilder(enricher enrichment.Enricher, results int, logger *logger.Logger) *Builder {
	if results <= 0 {
		results = enrichment.DefaultResults
	}
	return &Builder{enricher: enricher, results: results, logger: logger}
}

// Build runs one describe and two searches per detection, in detection order.
// The same label detected twice is looked up twice.
func (b *Builder) Build(ctx context.Context, detections []model.Detection) []model.DiseaseReport {
	reports := make([]model.DiseaseReport, 0, len(detections))
	for _, det := range detections {
		reports = append(reports, b.entry(ctx, det))
	}
	return reports
}

func (b *Builder) entry(ctx context.Context, det model.Detection) model.DiseaseReport {
	name := det.Label

	description := b.enricher.Describe(ctx, name)
	prevention := b.enricher.Search(ctx, PreventionQuery(name), b.results)
	products := b.enricher.Search(ctx, ProductQuery(name), b.results)

	entry := model.DiseaseReport{
		Detection:         det,
		DiseaseName:       name,
		Description:       description.Value,
		PreventionResults: prevention.Value,
		ProductResults:    products.Value,
	}
	for _, w := range []string{description.Warning(), prevention.Warning(), products.Warning()} {
		if w != "" {
			entry.Warnings = append(entry.Warnings, w)
		}
	}

	b.logger.Info("Report for %s: %d prevention results, %d products, %d warnings",
		name, len(entry.PreventionResults), len(entry.ProductResults), len(entry.Warnings))
	return entry
}
