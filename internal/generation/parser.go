package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/phrazzld/codeforge-api/internal/domain"
)

// ParsedArtifact holds the fields extracted from one model response. It is
// structurally complete but not yet validated against domain rules.
type ParsedArtifact struct {
	Title       string
	Difficulty  string
	Topics      []string
	Description string
	Example     domain.Example
	Solution    string
	Steps       []string
	Pseudocode  []string
}

// Input converts p into a domain.ArtifactInput carrying title in place of
// whatever title the model echoed back.
func (p *ParsedArtifact) Input(title string) domain.ArtifactInput {
	return domain.ArtifactInput{
		Title:       title,
		Difficulty:  p.Difficulty,
		Topics:      p.Topics,
		Description: p.Description,
		Example:     p.Example,
		Solution:    p.Solution,
		Steps:       p.Steps,
		Pseudocode:  p.Pseudocode,
	}
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ParseArtifact extracts an artifact from free text. The text is expected to
// hold one JSON object, possibly wrapped in a code fence or surrounded by
// prose. Optional fields with the wrong shape are defaulted rather than
// rejected; only a missing payload, an undecodable payload or a missing
// title, difficulty or description fail. Failures are *ParseError.
func ParseArtifact(raw string) (*ParsedArtifact, error) {
	candidate, ok := locatePayload(raw)
	if !ok {
		return nil, newParseError(ReasonNoPayload, nil)
	}

	fields, err := decodePayload(candidate)
	if err != nil {
		return nil, newParseError(ReasonUndecodable, err)
	}

	title, okTitle := requiredString(fields, "title")
	difficulty, okDifficulty := requiredString(fields, "difficulty")
	description, okDescription := requiredString(fields, "description")
	if !okTitle || !okDifficulty || !okDescription {
		return nil, newParseError(ReasonIncomplete, nil)
	}

	parsed := &ParsedArtifact{
		Title:       title,
		Difficulty:  difficulty,
		Topics:      stringList(fields["topics"]),
		Description: description,
		Example:     example(fields["example"]),
		Solution:    optionalString(fields["solution"]),
		Steps:       stringList(fields["step_by_step_explanation"]),
	}
	if _, isList := fields["pseudocode"].([]any); isList {
		parsed.Pseudocode = stringList(fields["pseudocode"])
	}

	return parsed, nil
}

// locatePayload returns the outermost brace-delimited span of the trimmed
// text, falling back to the contents of a fenced block.
func locatePayload(raw string) (string, bool) {
	text := strings.TrimSpace(raw)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1], true
	}

	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		if body := strings.TrimSpace(m[1]); body != "" {
			return body, true
		}
	}

	return "", false
}

// decodePayload decodes candidate into a generic object, repairing it once
// if the first decode fails.
func decodePayload(candidate string) (map[string]any, error) {
	var fields map[string]any
	err := json.Unmarshal([]byte(candidate), &fields)
	if err == nil && fields != nil {
		return fields, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		if err == nil {
			err = repairErr
		}
		return nil, err
	}

	fields = nil
	if err := json.Unmarshal([]byte(repaired), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, ErrInvalidResponse
	}
	return fields, nil
}

func requiredString(fields map[string]any, key string) (string, bool) {
	s, ok := fields[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func optionalString(v any) string {
	s, _ := v.(string)
	return s
}

// stringList returns the string items of v, skipping anything else. It
// never returns nil.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func example(v any) domain.Example {
	obj, ok := v.(map[string]any)
	if !ok {
		return domain.Example{}
	}
	return domain.Example{
		Input:       exampleText(obj["input"]),
		Output:      exampleText(obj["output"]),
		Explanation: exampleText(obj["explanation"]),
	}
}

// exampleText renders an example value as text. Models often emit example
// inputs and outputs as JSON values ([1,2,3], 6, true) rather than strings;
// lists and objects keep their JSON form, other scalars print as Go would.
func exampleText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any, map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
