package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/errs"
)

const SearchPath = "/search"

// Query describes one search request. jsparam names the API query parameter.
type Query struct {
	Text string `jsparam:"query"`
	// Country is an ISO 3166-1 alpha-2 code; empty searches globally.
	Country    string `jsparam:"country"`
	Page       int    `jsparam:"page"`
	NumPages   int    `jsparam:"num_pages"`
	DatePosted string `jsparam:"date_posted"`
}

// rawPosting mirrors the JSearch fields this service uses.
type rawPosting struct {
	ID             string `mapstructure:"job_id"`
	Title          string `mapstructure:"job_title"`
	Publisher      string `mapstructure:"job_publisher"`
	Employer       string `mapstructure:"employer_name"`
	EmploymentType string `mapstructure:"job_employment_type"`
	Location       string `mapstructure:"job_location"`
	City           string `mapstructure:"job_city"`
	Country        string `mapstructure:"job_country"`
	Description    string `mapstructure:"job_description"`
	ApplyLink      string `mapstructure:"job_apply_link"`
}

// Search runs q against the API. Unset paging fields use the client defaults.
func (c *Client) Search(ctx context.Context, q Query) (*Postings, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, fmt.Errorf("%w: search query is empty", errs.ErrInput)
	}
	if c.token == "" {
		return nil, errors.New("job source api key is not configured")
	}

	if q.Page <= 0 {
		q.Page = 1
	}
	if q.NumPages <= 0 {
		q.NumPages = c.numPages
	}
	if q.DatePosted == "" {
		q.DatePosted = c.datePosted
	}

	items, err := c.GetItems(ctx, c.APIURL+SearchPath, buildParams(&q))
	if err != nil {
		return nil, err
	}

	postings, err := decodePostings(items)
	if err != nil {
		return nil, err
	}

	c.logger.Info("job search finished",
		zap.String("query", q.Text),
		zap.String("country", q.Country),
		zap.Int("found", postings.Len()),
	)

	return postings, nil
}

func decodePostings(items []Item) (*Postings, error) {
	var raws []rawPosting

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raws,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("%w: decode postings: %w", errs.ErrShape, err)
	}

	postings := &Postings{Items: make([]*Posting, 0, len(raws))}
	for _, raw := range raws {
		postings.Items = append(postings.Items, raw.toPosting())
	}

	return postings, nil
}

func (r rawPosting) toPosting() *Posting {
	publisher := r.Publisher
	if publisher == "" {
		publisher = r.Employer
	}

	location := r.Location
	if location == "" {
		switch {
		case r.City != "" && r.Country != "":
			location = r.City + ", " + r.Country
		case r.City != "":
			location = r.City
		default:
			location = r.Country
		}
	}

	return &Posting{
		ID:             strings.TrimSpace(r.ID),
		Title:          strings.TrimSpace(r.Title),
		Publisher:      strings.TrimSpace(publisher),
		EmploymentType: strings.TrimSpace(r.EmploymentType),
		Location:       strings.TrimSpace(location),
		Description:    strings.TrimSpace(r.Description),
		ApplyLink:      strings.TrimSpace(r.ApplyLink),
	}
}

func buildParams(q *Query) url.Values {
	values := url.Values{}
	v := reflect.ValueOf(q).Elem()
	for _, field := range reflect.VisibleFields(v.Type()) {
		key := field.Tag.Get("jsparam")
		if key == "" {
			continue
		}

		var value string
		switch f := v.FieldByIndex(field.Index); f.Kind() {
		case reflect.Int:
			if f.Int() != 0 {
				value = strconv.FormatInt(f.Int(), 10)
			}
		default:
			value = strings.TrimSpace(f.String())
		}

		if value != "" {
			values.Set(key, value)
		}
	}

	return values
}
