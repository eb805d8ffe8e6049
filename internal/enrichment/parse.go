package enrichment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/cuongbtq/job-hoarder/internal/domain"
)

const responseSchemaText = `{
	"type": "object",
	"required": ["summary", "technical_skills", "seniority_level"],
	"properties": {
		"summary": {"type": "string"},
		"technical_skills": {"type": "array", "items": {"type": "string"}},
		"seniority_level": {"type": "string"},
		"estimated_salary_min": {"type": ["integer", "null"], "minimum": 0},
		"estimated_salary_max": {"type": ["integer", "null"], "minimum": 0}
	}
}`

var responseSchema = jsonschema.MustCompileString("enrichment_response.json", responseSchemaText)

const fence = "```"

type responseFields struct {
	Summary            string       `json:"summary"`
	TechnicalSkills    []string     `json:"technical_skills"`
	SeniorityLevel     string       `json:"seniority_level"`
	EstimatedSalaryMin *json.Number `json:"estimated_salary_min"`
	EstimatedSalaryMax *json.Number `json:"estimated_salary_max"`
}

// ExtractJSON returns the candidate JSON text of a model response: the
// interior of the first fenced block when there is one, otherwise the
// whole trimmed response.
func ExtractJSON(raw string) string {
	start := strings.Index(raw, fence)
	if start < 0 {
		return strings.TrimSpace(raw)
	}

	rest := raw[start+len(fence):]
	// Drop an info string such as "json" on the opening fence line. JSON
	// may start on that same line after it.
	line := rest
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		line = rest[:nl]
	}
	if brace := strings.IndexByte(line, '{'); brace >= 0 {
		rest = rest[brace:]
	} else if len(line) < len(rest) {
		rest = rest[len(line)+1:]
	} else {
		rest = strings.TrimPrefix(rest, "json")
	}

	if end := strings.Index(rest, fence); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// ParseResponse turns untrusted model output into enrichment fields. Any
// failure is a *domain.ParseError carrying raw; nothing partial is returned.
func ParseResponse(raw string) (*domain.EnrichmentFields, error) {
	candidate := ExtractJSON(raw)
	if candidate == "" {
		return nil, domain.NewParseError(raw, errors.New("empty response"))
	}

	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, domain.NewParseError(raw, fmt.Errorf("decode json: %w", err))
	}
	if dec.More() {
		return nil, domain.NewParseError(raw, errors.New("trailing data after json object"))
	}

	if err := responseSchema.Validate(doc); err != nil {
		return nil, domain.NewParseError(raw, fmt.Errorf("unexpected shape: %w", err))
	}

	var fields responseFields
	if err := json.NewDecoder(bytes.NewReader([]byte(candidate))).Decode(&fields); err != nil {
		return nil, domain.NewParseError(raw, fmt.Errorf("decode fields: %w", err))
	}

	salaryMin, err := salary(fields.EstimatedSalaryMin)
	if err != nil {
		return nil, domain.NewParseError(raw, fmt.Errorf("estimated_salary_min: %w", err))
	}
	salaryMax, err := salary(fields.EstimatedSalaryMax)
	if err != nil {
		return nil, domain.NewParseError(raw, fmt.Errorf("estimated_salary_max: %w", err))
	}
	if salaryMin != nil && salaryMax != nil && *salaryMin > *salaryMax {
		return nil, domain.NewParseError(raw, fmt.Errorf("salary floor %d above ceiling %d", *salaryMin, *salaryMax))
	}

	skills := make([]string, 0, len(fields.TechnicalSkills))
	for _, s := range fields.TechnicalSkills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}

	return &domain.EnrichmentFields{
		Summary:            strings.TrimSpace(fields.Summary),
		TechnicalSkills:    skills,
		SeniorityLevel:     strings.TrimSpace(fields.SeniorityLevel),
		EstimatedSalaryMin: salaryMin,
		EstimatedSalaryMax: salaryMax,
	}, nil
}

// salary accepts non-negative integral numbers, including ones written as
// 150000.0.
func salary(n *json.Number) (*int64, error) {
	if n == nil {
		return nil, nil
	}
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
		if ferr != nil || f != math.Trunc(f) || f >= 1<<63 || f < -(1<<63) {
			return nil, fmt.Errorf("not an int64: %s", n.String())
		}
		v = int64(f)
	}
	if v < 0 {
		return nil, fmt.Errorf("negative salary: %d", v)
	}
	return &v, nil
}
