package filtering

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/jobs"
)

// toggle carries the enable state shared by every filter.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func titles(postings []*jobs.Posting) []string {
	out := make([]string, 0, len(postings))
	for _, p := range postings {
		out = append(out, p.Title)
	}
	return out
}

type missingDescriptionFilter struct {
	toggle
}

// NewMissingDescription creates a filter that removes postings without description text.
// Such postings cannot be compared with the candidate profile.
func NewMissingDescription() Filter {
	return &missingDescriptionFilter{}
}

func (f *missingDescriptionFilter) Name() string { return "missing_description" }

func (f *missingDescriptionFilter) Validate(*Config) error { return nil }

func (f *missingDescriptionFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	dropped := p.Keep(func(posting *jobs.Posting) bool {
		return strings.TrimSpace(posting.Description) != ""
	})
	if len(dropped) > 0 {
		deps.Logger.Debug("excluding postings without description",
			zap.Strings("excluded_postings", titles(dropped)),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(dropped), Left: p.Len()}, nil
}

func (f *missingDescriptionFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

type duplicatesFilter struct {
	toggle
}

// NewDuplicates creates a filter that keeps the first of postings sharing an
// apply link, or sharing title and publisher.
func NewDuplicates() Filter {
	return &duplicatesFilter{}
}

func (f *duplicatesFilter) Name() string { return "duplicates" }

func (f *duplicatesFilter) Validate(*Config) error { return nil }

func (f *duplicatesFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	seen := make(map[string]struct{}, initial*2)

	dropped := p.Keep(func(posting *jobs.Posting) bool {
		keys := []string{
			"title:" + strings.ToLower(strings.TrimSpace(posting.Title)) + "\x00" + strings.ToLower(strings.TrimSpace(posting.Publisher)),
		}
		if link := strings.TrimSpace(posting.ApplyLink); link != "" {
			keys = append(keys, "link:"+link)
		}

		for _, key := range keys {
			if _, ok := seen[key]; ok {
				return false
			}
		}
		for _, key := range keys {
			seen[key] = struct{}{}
		}
		return true
	})
	if len(dropped) > 0 {
		deps.Logger.Debug("excluding duplicated postings",
			zap.Strings("excluded_postings", titles(dropped)),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(dropped), Left: p.Len()}, nil
}

func (f *duplicatesFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

type excludedPublishersFilter struct {
	toggle
	publishers []string
}

// NewExcludedPublishers creates a filter that removes postings by publishers configured in the config.
func NewExcludedPublishers() Filter {
	return &excludedPublishersFilter{}
}

func (f *excludedPublishersFilter) Name() string { return "excluded_publishers" }

func (f *excludedPublishersFilter) Validate(cfg *Config) error {
	f.publishers = nil
	if cfg == nil {
		return nil
	}
	for _, publisher := range cfg.ExcludedPublishers {
		if publisher = strings.TrimSpace(publisher); publisher != "" {
			f.publishers = append(f.publishers, publisher)
		}
	}
	return nil
}

func (f *excludedPublishersFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if len(f.publishers) == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	dropped := p.Keep(func(posting *jobs.Posting) bool {
		for _, publisher := range f.publishers {
			if strings.EqualFold(strings.TrimSpace(posting.Publisher), publisher) {
				return false
			}
		}
		return true
	})
	if len(dropped) > 0 {
		deps.Logger.Info("excluding postings by publishers",
			zap.Strings("excluded_publishers", f.publishers),
			zap.Strings("excluded_postings", titles(dropped)),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(dropped), Left: p.Len()}, nil
}

func (f *excludedPublishersFilter) Status() Status {
	details := map[string]string{}
	if len(f.publishers) > 0 {
		details["publishers"] = strings.Join(f.publishers, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type excludeFileFilter struct {
	toggle
	path string
}

// NewExcludeFile creates a filter that removes postings whose apply link is listed in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if f.path == "" {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	links, err := ReadExcludeFile(f.path)
	if err != nil {
		return p, Step{}, fmt.Errorf("getting excluded postings from file: %w", err)
	}

	dropped := p.Keep(func(posting *jobs.Posting) bool {
		_, excluded := links[strings.TrimSpace(posting.ApplyLink)]
		return !excluded
	})
	if len(dropped) > 0 {
		deps.Logger.Info("excluding postings based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_postings", titles(dropped)),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(dropped), Left: p.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{"configured": strconv.FormatBool(f.path != "")}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

// ReadExcludeFile returns the set of apply links listed in path. A missing file is an empty set.
func ReadExcludeFile(path string) (map[string]struct{}, error) {
	links := make(map[string]struct{})

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return links, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		links[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return links, nil
}

// AppendExcludeFile adds link to the exclude file, creating it when needed.
func AppendExcludeFile(path, link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return errors.New("apply link is empty")
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := fmt.Fprintln(file, link); err != nil {
		return err
	}
	return nil
}
