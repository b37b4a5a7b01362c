package resume

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/smartintern/internal/errs"
)

// Record is a semi-structured resume extraction. Any field may be empty.
type Record struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Country        string   `json:"country"`
	Summary        []string `json:"summary"`
	Education      []string `json:"education"`
	Experience     []string `json:"experience"`
	Skills         []string `json:"skills"`
	Projects       []string `json:"projects"`
	Internships    []string `json:"internships"`
	Certifications []string `json:"certifications"`
	Achievements   []string `json:"achievements"`
}

// IsEmpty reports whether the record carries no resume content.
func (r Record) IsEmpty() bool {
	return r.Name == "" && r.Email == "" && r.Phone == "" &&
		len(r.Summary) == 0 && len(r.Education) == 0 && len(r.Experience) == 0 &&
		len(r.Skills) == 0 && len(r.Projects) == 0 && len(r.Internships) == 0 &&
		len(r.Certifications) == 0 && len(r.Achievements) == 0
}

// ExtractionError describes why an extractor could not produce a record.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction failed: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extraction is either a Record or an ExtractionError.
type Extraction struct {
	Record Record
	Err    *ExtractionError
}

// Failed reports whether the extraction produced an error instead of a record.
func (e Extraction) Failed() bool { return e.Err != nil }

// RecordOrEmpty returns the record, or an empty one for a failed extraction.
func (e Extraction) RecordOrEmpty() Record {
	if e.Failed() {
		return Record{}
	}
	return e.Record
}

// Error returns the extraction error as a plain error, nil on success.
func (e Extraction) Error() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

// CandidateProfile is the reconciled profile consumed by chat, search and ranking.
type CandidateProfile struct {
	Name     string   `json:"name"`
	Summary  string   `json:"summary"`
	Projects []string `json:"projects"`
	Country  string   `json:"country"`
}

// Validate checks a profile received from a client.
func (p CandidateProfile) Validate() error {
	var problems []error
	if strings.TrimSpace(p.Summary) == "" {
		problems = append(problems, errors.New("profile summary is required"))
	}
	if strings.TrimSpace(p.Country) == "" {
		problems = append(problems, errors.New("profile country is required"))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", errs.ErrInput, errors.Join(problems...))
	}
	return nil
}

// SearchText is the profile rendered as one document for embedding.
func (p CandidateProfile) SearchText() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.Summary))
	if len(p.Projects) > 0 {
		b.WriteString("\nProjects: ")
		b.WriteString(strings.Join(p.Projects, "; "))
	}
	return b.String()
}
