package resume

import (
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

const (
	maxNameWords   = 4
	entityLookback = 5
	minPhoneDigits = 8
	bulletCutset   = "•●- \t"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)
	phonePattern = regexp.MustCompile(`\+?\d[\d \t\-]{7,}`)

	summaryBoundary = regexp.MustCompile(`(?i)\n(?:education|experience|skills|projects|internships|certifications|achievements)\b`)
)

// section describes how one resume section is located: the first header
// keyword opens it and the nearest following boundary keyword closes it.
type section struct {
	header   *regexp.Regexp
	boundary *regexp.Regexp
	assign   func(*Record, []string)
}

func newSection(headers, boundaries []string, assign func(*Record, []string)) section {
	return section{
		header:   regexp.MustCompile(`(?i)(?:` + strings.Join(headers, "|") + `)\s*[:\-\n]*\s*`),
		boundary: regexp.MustCompile(`(?i)(?:` + strings.Join(boundaries, "|") + `)`),
		assign:   assign,
	}
}

var sections = []section{
	newSection([]string{"education", "academic background"}, []string{"experience", "skills", "projects", "certifications"},
		func(r *Record, lines []string) { r.Education = lines }),
	newSection([]string{"experience", "work experience"}, []string{"skills", "projects", "education", "certifications"},
		func(r *Record, lines []string) { r.Experience = lines }),
	newSection([]string{"skills", "technical skills"}, []string{"experience", "projects", "education", "certifications"},
		func(r *Record, lines []string) { r.Skills = lines }),
	newSection([]string{"projects"}, []string{"experience", "education", "certifications"},
		func(r *Record, lines []string) { r.Projects = lines }),
	newSection([]string{"internships"}, []string{"experience", "education", "projects"},
		func(r *Record, lines []string) { r.Internships = lines }),
	newSection([]string{"certifications"}, []string{"experience", "education", "projects"},
		func(r *Record, lines []string) { r.Certifications = lines }),
	newSection([]string{"achievements", "accomplishments"}, []string{"experience", "education", "projects"},
		func(r *Record, lines []string) { r.Achievements = lines }),
}

// RuleExtractor pulls contact details and sections out of resume text with
// regular expressions, falling back to named entities for the candidate name.
type RuleExtractor struct {
	entities EntityRecognizer
	logger   *zap.Logger
}

// NewRuleExtractor creates a RuleExtractor. A nil recognizer disables the name fallback.
func NewRuleExtractor(entities EntityRecognizer, logger *zap.Logger) *RuleExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleExtractor{entities: entities, logger: logger}
}

// Extract never fails: anything it cannot find is left empty.
func (x *RuleExtractor) Extract(text, country string) Record {
	record := Record{
		Name:    x.name(text),
		Email:   emailPattern.FindString(text),
		Phone:   findPhone(text),
		Country: strings.TrimSpace(country),
		Summary: summaryLines(text),
	}

	for _, s := range sections {
		s.assign(&record, s.extract(text))
	}

	x.logger.Debug("rule based extraction finished",
		zap.Bool("name_found", record.Name != ""),
		zap.Int("education", len(record.Education)),
		zap.Int("experience", len(record.Experience)),
		zap.Int("skills", len(record.Skills)),
		zap.Int("projects", len(record.Projects)),
	)

	return record
}

func (x *RuleExtractor) name(text string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	first = strings.TrimSpace(first)
	if first != "" && len(strings.Fields(first)) <= maxNameWords {
		return first
	}

	if x.entities == nil {
		return ""
	}

	entities, err := x.entities.Entities(text)
	if err != nil {
		x.logger.Warn("entity recognition failed, name left empty", zap.Error(err))
		return ""
	}

	for i, ent := range entities {
		if i == entityLookback {
			break
		}
		if ent.Label == LabelPerson {
			return strings.TrimSpace(ent.Text)
		}
	}

	return ""
}

// extract returns the lines between the first header and the nearest following boundary.
func (s section) extract(text string) []string {
	loc := s.header.FindStringIndex(text)
	if loc == nil {
		return nil
	}

	rest := text[loc[1]:]
	if end := s.boundary.FindStringIndex(rest); end != nil {
		rest = rest[:end[0]]
	}

	return bulletLines(rest)
}

func bulletLines(span string) []string {
	var lines []string
	for _, line := range strings.Split(span, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line = strings.Trim(line, bulletCutset); line != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return lines
}

func summaryLines(text string) []string {
	loc := summaryBoundary.FindStringIndex(text)
	if loc == nil {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(text[:loc[0]], "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func findPhone(text string) string {
	for _, match := range phonePattern.FindAllString(text, -1) {
		digits := 0
		for _, r := range match {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		if digits >= minPhoneDigits {
			return strings.TrimSpace(match)
		}
	}
	return ""
}
