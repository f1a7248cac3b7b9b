package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gitinsight/gitinsight/config"
	"github.com/gitinsight/gitinsight/internal/model"
)

// Summarization error taxonomy, surfaced (bounded) in FAILED results.
var (
	ErrNotInitialized = errors.New("ai model not initialized")
	ErrEmptyInput     = errors.New("no text content received by analyzer")
	ErrBlocked        = errors.New("content generation blocked by safety filters")
	ErrNoContent      = errors.New("no summary content received from model")
)

// textGenerator is the black-box model interface: text in, text out, or a
// classified failure.
type textGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Tier lookup tables. Unrecognized tier values fall back to the default
// fragment; they must never fail the job.
var sizeGuidance = map[string]string{
	"small":  "concise (around 2-3 paragraphs)",
	"medium": "detailed (several paragraphs, covering key aspects)",
	"large":  "very detailed and comprehensive (multiple sections, extensive coverage)",
}

const defaultSizeGuidance = "detailed (several paragraphs)"

var technicalityGuidance = map[string]string{
	"non-technical": "for a non-technical team member or client (simple language, focus on purpose and value)",
	"technical":     "for a software developer (mention key technologies, structure, and how to get started)",
	"expert":        "for an expert in the domain (deep dive into architecture, advanced concepts, and potential challenges)",
}

const defaultTechnicalityGuidance = "for a software developer"

// Summarizer turns extracted repository text into a structured summary.
// The generator is process-wide state: initialized once at worker startup
// and read-only afterwards. Startup fails fast when the API key is absent
// instead of deferring the failure to the first job.
type Summarizer struct {
	gen       textGenerator
	modelName string
}

func NewSummarizer(ctx context.Context, cfg *config.AIConfig) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: ai.api_key is not set", ErrNotInitialized)
	}

	gen, err := newGeminiModel(ctx, cfg.APIKey, cfg.ModelName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	log.Printf("AI: initialized model %q", cfg.ModelName)
	return &Summarizer{gen: gen, modelName: cfg.ModelName}, nil
}

// Summarize invokes the model and post-processes the output. Parameters
// are mapped through the tier tables with per-table fallbacks.
func (s *Summarizer) Summarize(ctx context.Context, text string, params model.AnalysisParams) (string, error) {
	if s == nil || s.gen == nil {
		return "", ErrNotInitialized
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}

	raw, err := s.gen.Generate(ctx, buildPrompt(text, params))
	if err != nil {
		return "", err
	}

	summary := stripCodeFences(raw)
	if summary == "" {
		return "", ErrNoContent
	}

	log.Printf("AI: summary generated, %d chars", len(summary))
	return summary, nil
}

// Close releases the underlying model client, if any.
func (s *Summarizer) Close() error {
	if c, ok := s.gen.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func buildPrompt(text string, params model.AnalysisParams) string {
	lengthGuidance, ok := sizeGuidance[strings.ToLower(params.Size)]
	if !ok {
		lengthGuidance = defaultSizeGuidance
	}
	audienceGuidance, ok := technicalityGuidance[strings.ToLower(params.Technicality)]
	if !ok {
		audienceGuidance = defaultTechnicalityGuidance
	}
	lang := params.Lang
	if lang == "" {
		lang = model.DefaultLang
	}

	return fmt.Sprintf(`Analyze the following repository content and generate a structured HTML summary.
The repository content is provided as a series of file excerpts.
Your summary should be in %s.
The desired length of the summary is: %s.
The target audience is: %s.

The HTML output should be well-formed and include these sections if applicable, adapting to the content:
- Overview: a brief introduction to the project's purpose.
- Key Features/Functionality: main capabilities.
- Tech Stack/Architecture: core technologies and structure.
- Setup & Usage: how to get it running and use it.
- File Structure Highlights: notable files or directories.
- Potential Next Steps/Improvements: optional, if evident.

Do NOT wrap your HTML output in markdown code fences.
Provide only the HTML content for the summary itself.

Repository Content:
---
%s
---
End of Repository Content. Generate the HTML summary now.
`, lang, lengthGuidance, audienceGuidance, text)
}

// stripCodeFences removes a fenced-code-block wrapper if the model echoed
// one despite instructions not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```html")
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
