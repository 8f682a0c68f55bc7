package domain

// QualityKeys is the fixed set of quality labels used to index
// estimated file sizes, in display order.
var QualityKeys = []string{"2160p", "1080p", "720p", "360p", "audio"}

// VideoMetadata is the resolved descriptive metadata for a media URL.
// Values returned by the resolver are always fully populated: every
// string field is non-empty and EstimatedSizes contains all of
// QualityKeys. A value is built fresh per resolution and never mutated
// afterwards.
type VideoMetadata struct {
	Title          string            `json:"title"`
	Author         string            `json:"author"`
	Views          string            `json:"views"`
	Duration       string            `json:"duration"`
	Summary        string            `json:"summary"`
	EstimatedSizes map[string]string `json:"estimatedSizes"`
}

// Complete reports whether every field is populated and all quality
// keys carry a non-empty size string.
func (m VideoMetadata) Complete() bool {
	if m.Title == "" || m.Author == "" || m.Views == "" || m.Duration == "" || m.Summary == "" {
		return false
	}
	for _, key := range QualityKeys {
		if m.EstimatedSizes[key] == "" {
			return false
		}
	}
	return true
}
