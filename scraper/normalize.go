package scraper

import "github.com/use-agent/steel-scraper/models"

// Smart default budgets keyed by primary format, in characters.
var defaultMaxLength = map[models.Format]int{
	models.FormatMarkdown:    8000,
	models.FormatReadability: 10000,
	models.FormatHTML:        15000,
	models.FormatCleanedHTML: 12000,
}

// fallbackMaxLength applies to unrecognised primary formats.
const fallbackMaxLength = 8000

// Share of the budget reserved for metadata on markdown output.
const (
	verboseMetadataReserve = 0.15
	compactMetadataReserve = 0.10
)

// Plan is the normalized form of a ScrapeRequest.
type Plan struct {
	// Formats is the defaulted format sequence; never empty.
	Formats []models.Format

	// Primary is Formats[0].
	Primary models.Format

	// MaxLength is the hard character cutoff for the returned content.
	MaxLength int

	// ContentBudget is the threshold used by the near-limit cutoff heuristic.
	ContentBudget int
}

// Normalize computes the effective formats and length budgets for req.
func Normalize(req *models.ScrapeRequest) Plan {
	formats := req.Format
	if len(formats) == 0 {
		formats = []models.Format{models.DefaultFormat}
	}
	primary := formats[0]

	maxLength := DefaultMaxLength(primary)
	if req.MaxLength != nil && *req.MaxLength > 0 {
		maxLength = *req.MaxLength
	}

	return Plan{
		Formats:       formats,
		Primary:       primary,
		MaxLength:     maxLength,
		ContentBudget: ContentBudget(maxLength, primary, req.VerboseMode),
	}
}

// DefaultMaxLength returns the smart default budget for a primary format.
func DefaultMaxLength(primary models.Format) int {
	if n, ok := defaultMaxLength[primary]; ok {
		return n
	}
	return fallbackMaxLength
}

// ContentBudget reserves room for metadata on markdown output; every other
// format keeps the full budget.
func ContentBudget(maxLength int, primary models.Format, verbose bool) int {
	if primary != models.FormatMarkdown {
		return maxLength
	}
	reserve := compactMetadataReserve
	if verbose {
		reserve = verboseMetadataReserve
	}
	// Integer percentages keep the floor exact (float 0.85*8000 is 6799.999...).
	// Splitting on hundreds keeps large budgets from overflowing.
	reservePercent := int(reserve*100 + 0.5)
	reserved := maxLength/100*reservePercent + (maxLength%100*reservePercent+99)/100
	return maxLength - reserved
}

// remoteRequest builds the wire payload for the remote service.
func (p Plan) remoteRequest(req *models.ScrapeRequest) *models.RemoteScrapeRequest {
	formats := make([]string, len(p.Formats))
	for i, f := range p.Formats {
		formats[i] = string(f)
	}
	return &models.RemoteScrapeRequest{
		URL:        req.URL,
		Format:     formats,
		Screenshot: req.Screenshot,
		PDF:        req.PDF,
		ProxyURL:   req.ProxyURL,
		Delay:      req.Delay,
		LogURL:     req.LogURL,
	}
}
