package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Posting is one job advertisement.
type Posting struct {
	ID             string `json:"id,omitempty"`
	Title          string `json:"title"`
	Publisher      string `json:"publisher"`
	EmploymentType string `json:"employment_type"`
	Location       string `json:"location"`
	Description    string `json:"description"`
	ApplyLink      string `json:"apply_link"`
}

// Text renders the posting as one document for embedding.
func (p *Posting) Text() string {
	parts := []string{
		"Title: " + p.Title,
		"Publisher: " + p.Publisher,
		"Employment type: " + p.EmploymentType,
		"Location: " + p.Location,
		"Description: " + p.Description,
	}
	return strings.Join(parts, "\n")
}

// Postings is an ordered list of postings.
type Postings struct {
	Items []*Posting
}

// Len returns the number of postings.
func (p *Postings) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

// Keep retains the postings for which keep returns true, preserving order,
// and returns the dropped ones.
func (p *Postings) Keep(keep func(*Posting) bool) []*Posting {
	var dropped []*Posting
	kept := p.Items[:0]
	for _, posting := range p.Items {
		if keep(posting) {
			kept = append(kept, posting)
			continue
		}
		dropped = append(dropped, posting)
	}
	p.Items = kept
	return dropped
}

// Values returns the postings as values, in order.
func (p *Postings) Values() []Posting {
	out := make([]Posting, 0, p.Len())
	for _, posting := range p.Items {
		out = append(out, *posting)
	}
	return out
}

// FromValues builds Postings from a slice of values.
func FromValues(items []Posting) *Postings {
	out := &Postings{Items: make([]*Posting, 0, len(items))}
	for i := range items {
		posting := items[i]
		out.Items = append(out.Items, &posting)
	}
	return out
}

// ReportByPublisher groups postings by publisher for display.
func (p *Postings) ReportByPublisher() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, posting := range p.Items {
		key := posting.Publisher
		if key == "" {
			key = "unknown publisher"
		}
		report[key] = append(report[key], map[string]string{
			"title":           posting.Title,
			"location":        posting.Location,
			"employment type": posting.EmploymentType,
			"apply link":      posting.ApplyLink,
		})
	}
	return report
}

// DumpToTmpFile writes the postings as indented JSON to a temporary file and returns its path.
func (p *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p.Items); err != nil {
		return "", fmt.Errorf("encode postings: %w", err)
	}
	return file.Name(), nil
}
