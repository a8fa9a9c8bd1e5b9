package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field limits for an Artifact.
const (
	MaxTitleLength       = 200
	MinDescriptionLength = 10
	MaxDescriptionLength = 2000
	MinTopics            = 1
	MaxTopics            = 10
	MaxTopicLength       = 50
)

// Artifact-specific validation errors
var (
	ErrArtifactIDEmpty       = errors.New("artifact ID cannot be empty")
	ErrTitleEmpty            = errors.New("title cannot be empty")
	ErrTitleTooLong          = fmt.Errorf("title cannot exceed %d characters", MaxTitleLength)
	ErrTopicsInvalid         = fmt.Errorf("topics must contain between %d and %d non-empty entries", MinTopics, MaxTopics)
	ErrDescriptionLength     = fmt.Errorf("description must be between %d and %d characters", MinDescriptionLength, MaxDescriptionLength)
	ErrExampleIncomplete     = errors.New("example requires input, output and explanation")
	ErrSolutionEmpty         = errors.New("solution cannot be empty")
	ErrStepsEmpty            = errors.New("step-by-step explanation requires at least one step")
	ErrArtifactCreatedAtZero = errors.New("artifact creation time cannot be zero")
)

// Difficulty is the rated difficulty of a generated problem.
type Difficulty string

// Supported difficulty values
const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Difficulties lists every valid difficulty in ascending order.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// ParseDifficulty converts a case-insensitive string into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy, nil
	case "medium":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
	}
}

// Valid reports whether d is one of the supported difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// Example is a worked sample of the problem: an input, the expected output
// and why that output is correct.
type Example struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation"`
}

// Artifact is a generated coding problem. An Artifact value that exists in
// a store has always passed Validate.
type Artifact struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Difficulty  Difficulty `json:"difficulty"`
	Topics      []string   `json:"topics"`
	Description string     `json:"description"`
	Example     Example    `json:"example"`
	Solution    string     `json:"solution"`
	Steps       []string   `json:"step_by_step_explanation"`
	Pseudocode  []string   `json:"pseudocode,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ArtifactInput carries the generated fields used to build a new Artifact.
type ArtifactInput struct {
	Title       string
	Difficulty  string
	Topics      []string
	Description string
	Example     Example
	Solution    string
	Steps       []string
	Pseudocode  []string
}

// NewArtifact builds an Artifact with a fresh identifier and creation time
// and validates it. Nothing partially valid is ever returned.
func NewArtifact(in ArtifactInput) (*Artifact, error) {
	difficulty, err := ParseDifficulty(in.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	artifact := &Artifact{
		ID:          uuid.New(),
		Title:       in.Title,
		Difficulty:  difficulty,
		Topics:      cloneStrings(in.Topics),
		Description: in.Description,
		Example:     in.Example,
		Solution:    in.Solution,
		Steps:       cloneStrings(in.Steps),
		Pseudocode:  cloneStrings(in.Pseudocode),
		CreatedAt:   time.Now().UTC(),
	}

	if err := artifact.Validate(); err != nil {
		return nil, err
	}

	return artifact, nil
}

// Validate checks every field constraint of the Artifact.
// Returned errors wrap ErrValidation.
func (a *Artifact) Validate() error {
	if err := a.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func (a *Artifact) validate() error {
	if a.ID == uuid.Nil {
		return ErrArtifactIDEmpty
	}

	if strings.TrimSpace(a.Title) == "" {
		return ErrTitleEmpty
	}
	if utf8.RuneCountInString(a.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}

	if !a.Difficulty.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDifficulty, a.Difficulty)
	}

	if len(a.Topics) < MinTopics || len(a.Topics) > MaxTopics {
		return ErrTopicsInvalid
	}
	for _, topic := range a.Topics {
		if strings.TrimSpace(topic) == "" || utf8.RuneCountInString(topic) > MaxTopicLength {
			return ErrTopicsInvalid
		}
	}

	descLen := utf8.RuneCountInString(a.Description)
	if descLen < MinDescriptionLength || descLen > MaxDescriptionLength {
		return ErrDescriptionLength
	}

	if strings.TrimSpace(a.Example.Input) == "" ||
		strings.TrimSpace(a.Example.Output) == "" ||
		strings.TrimSpace(a.Example.Explanation) == "" {
		return ErrExampleIncomplete
	}

	if strings.TrimSpace(a.Solution) == "" {
		return ErrSolutionEmpty
	}

	if len(a.Steps) == 0 {
		return ErrStepsEmpty
	}

	if a.CreatedAt.IsZero() {
		return ErrArtifactCreatedAtZero
	}

	return nil
}

// Clone returns a deep copy so callers cannot mutate stored list fields.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	c := *a
	c.Topics = cloneStrings(a.Topics)
	c.Steps = cloneStrings(a.Steps)
	c.Pseudocode = cloneStrings(a.Pseudocode)
	if a.UpdatedAt != nil {
		t := *a.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
