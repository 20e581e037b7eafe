package service

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"scholarhub.app/scholarhub/internal/model"
)

// ErrRecordUnusable marks a feed record that has no recognizable title.
var ErrRecordUnusable = errors.New("feed record has no usable title")

// Field key priority for heterogeneous provider feeds. Earlier keys win;
// later keys are consulted only when every earlier key is absent or empty.
var (
	titleKeys       = []string{"title", "name", "scholarship_name"}
	providerKeys    = []string{"provider", "organization", "sponsor", "funder"}
	descriptionKeys = []string{"description", "summary", "details"}
	amountKeys      = []string{"amount", "award", "award_amount", "value"}
	deadlineKeys    = []string{"deadline", "due_date", "closing_date", "expires_at"}
	linkKeys        = []string{"link", "url", "apply_url", "application_url"}
	tagKeys         = []string{"tags", "categories", "fields_of_study"}
)

// NormalizeScholarshipRecord converts one raw feed record into a typed
// Scholarship. Provider feeds disagree on key names, number formats and
// date formats; all of that shape handling lives here and nowhere else.
func NormalizeScholarshipRecord(raw map[string]any) (*model.Scholarship, error) {
	title := firstString(raw, titleKeys)
	if title == "" {
		return nil, ErrRecordUnusable
	}

	sch := &model.Scholarship{
		Title:       title,
		Provider:    firstString(raw, providerKeys),
		Description: firstString(raw, descriptionKeys),
		Link:        firstString(raw, linkKeys),
	}

	if amount, ok := firstAmount(raw, amountKeys); ok {
		sch.Amount = &amount
	}
	if deadline, ok := firstDate(raw, deadlineKeys); ok {
		sch.Deadline = &deadline
	}
	sch.Tags = strings.Join(firstTags(raw, tagKeys), ",")

	return sch, nil
}

func firstString(raw map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// firstAmount accepts JSON numbers and strings like "$2,500" or "2500 USD".
func firstAmount(raw map[string]any, keys []string) (int64, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int64(n), true
		case string:
			cleaned := strings.Map(func(r rune) rune {
				if r >= '0' && r <= '9' {
					return r
				}
				return -1
			}, n)
			if cleaned == "" {
				continue
			}
			if parsed, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

var dateFormats = []string{
	time.RFC3339,
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"02-01-2006",
}

func firstDate(raw map[string]any, keys []string) (time.Time, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		for _, layout := range dateFormats {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// firstTags accepts string arrays and comma-separated strings.
func firstTags(raw map[string]any, keys []string) []string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case []any:
			var tags []string
			for _, item := range t {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					tags = append(tags, strings.TrimSpace(s))
				}
			}
			if len(tags) > 0 {
				return tags
			}
		case string:
			var tags []string
			for _, part := range strings.Split(t, ",") {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					tags = append(tags, trimmed)
				}
			}
			if len(tags) > 0 {
				return tags
			}
		}
	}
	return nil
}
