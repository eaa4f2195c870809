package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Atharva-Kanherkar/attentive/internal/model"
)

// rawAnalysis is the loosely typed shape the model is asked to emit.
type rawAnalysis struct {
	ProductivityScore *float64 `json:"productivity_score"`
	ActivityType      string   `json:"activity_type"`
	Applications      []string `json:"applications"`
	FocusQuality      string   `json:"focus_quality"`
	ConfidenceScore   *float64 `json:"confidence_score"`
	RawAnalysis       string   `json:"raw_analysis"`
	Categories        []string `json:"categories"`
	Tags              []string `json:"tags"`
}

// extractJSON trims content to the outermost open..close pair, dropping
// code fences and chatter around the payload.
func extractJSON(content string, open, close byte) string {
	content = strings.TrimSpace(content)
	start := strings.IndexByte(content, open)
	end := strings.LastIndexByte(content, close)
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}

// ParseAnalysis turns a model reply into a typed result. Scores outside
// their declared range are dropped rather than clamped.
func ParseAnalysis(content string) (*model.AnalysisResult, error) {
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(extractJSON(content, '{', '}')), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}

	result := &model.AnalysisResult{
		ProductivityScore: inRange(raw.ProductivityScore, model.MinProductivityScore, model.MaxProductivityScore),
		ActivityType:      strings.TrimSpace(raw.ActivityType),
		Applications:      compact(raw.Applications),
		FocusQuality:      model.ParseFocusQuality(strings.ToLower(strings.TrimSpace(raw.FocusQuality))),
		ConfidenceScore:   inRange(raw.ConfidenceScore, model.MinConfidenceScore, model.MaxConfidenceScore),
		RawAnalysis:       strings.TrimSpace(raw.RawAnalysis),
		Categories:        compact(raw.Categories),
		Tags:              compact(raw.Tags),
	}
	if result.ActivityType == "" {
		result.ActivityType = "unknown"
	}
	if result.RawAnalysis == "" {
		result.RawAnalysis = strings.TrimSpace(content)
	}
	return result, nil
}

// ParseReport turns a model reply into a Report.
func ParseReport(content string) (*Report, error) {
	var r Report
	if err := json.Unmarshal([]byte(extractJSON(content, '{', '}')), &r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	r.Recommendations = compact(r.Recommendations)
	if r.Patterns == nil {
		r.Patterns = []Pattern{}
	}
	return &r, nil
}

func inRange(v *float64, min, max float64) *float64 {
	if v == nil || *v < min || *v > max {
		return nil
	}
	return model.Float(*v)
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
