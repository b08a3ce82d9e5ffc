// Package search encodes entry filter criteria to and from the flat
// query-string token used for sharing a search and for list requests.
package search

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

type ArchivedFilter int

const (
	Excluded ArchivedFilter = iota
	Included
	All
)

func (f ArchivedFilter) String() string {
	switch f {
	case Included:
		return "true"
	case All:
		return "all"
	default:
		return "false"
	}
}

// Label is the human-facing name of the filter.
func (f ArchivedFilter) Label() string {
	switch f {
	case Included:
		return "archived"
	case All:
		return "all"
	default:
		return "unarchived"
	}
}

// Next cycles Excluded -> All -> Included -> Excluded.
func (f ArchivedFilter) Next() ArchivedFilter {
	switch f {
	case Excluded:
		return All
	case All:
		return Included
	default:
		return Excluded
	}
}

func parseArchived(v string, present bool) ArchivedFilter {
	if !present || v == "" {
		return All
	}
	switch strings.ToLower(v) {
	case "true":
		return Included
	case "all":
		return All
	default:
		return Excluded
	}
}

const (
	keyArchived = "archived"
	keyTag      = "tag"
	keyQuery    = "q"
)

// Criteria is a structured entry filter. Tags is a set kept sorted and
// deduplicated; an empty Query means no free text.
type Criteria struct {
	Archived ArchivedFilter
	Tags     []string
	Query    string
}

func NewCriteria(archived ArchivedFilter, query string, tags ...string) Criteria {
	return Criteria{Archived: archived, Tags: normalizeTags(tags), Query: query}
}

func (c Criteria) HasTag(tag string) bool {
	i := sort.SearchStrings(c.Tags, tag)
	return i < len(c.Tags) && c.Tags[i] == tag
}

// WithTag returns a copy with tag toggled in the tag set.
func (c Criteria) WithTag(tag string) Criteria {
	out := c
	if c.HasTag(tag) {
		out.Tags = make([]string, 0, len(c.Tags))
		for _, t := range c.Tags {
			if t != tag {
				out.Tags = append(out.Tags, t)
			}
		}
		return out
	}
	out.Tags = normalizeTags(append(append([]string(nil), c.Tags...), tag))
	return out
}

// Equal compares field by field, with set semantics for tags.
func (c Criteria) Equal(o Criteria) bool {
	if c.Archived != o.Archived || c.Query != o.Query {
		return false
	}
	a, b := normalizeTags(c.Tags), normalizeTags(o.Tags)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c Criteria) String() string { return Encode(c) }

// Values renders the criteria as request parameters.
func (c Criteria) Values() url.Values {
	v := url.Values{}
	v.Set(keyArchived, c.Archived.String())
	for _, tag := range normalizeTags(c.Tags) {
		v.Add(keyTag, tag)
	}
	if c.Query != "" {
		v.Set(keyQuery, c.Query)
	}
	return v
}

// Encode renders c as "archived=..&tag=..&q=..". Tags are emitted sorted.
func Encode(c Criteria) string {
	pairs := make([]string, 0, len(c.Tags)+2)
	pairs = append(pairs, keyArchived+"="+url.QueryEscape(c.Archived.String()))
	for _, tag := range normalizeTags(c.Tags) {
		pairs = append(pairs, keyTag+"="+url.QueryEscape(tag))
	}
	if c.Query != "" {
		pairs = append(pairs, keyQuery+"="+url.QueryEscape(c.Query))
	}
	return strings.Join(pairs, "&")
}

// Decode parses a token produced by Encode or by a serialized search form.
// A leading '#' is ignored. Missing "archived" means Excluded.
func Decode(token string) (Criteria, error) {
	token = strings.TrimPrefix(token, "#")
	c := Criteria{Archived: Excluded}
	var tags []string
	for _, pair := range strings.Split(token, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, hasValue := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return Criteria{}, fmt.Errorf("%w: bad criteria key %q: %v", sitebag.ErrValidation, rawKey, err)
		}
		value := ""
		if hasValue {
			value, err = url.QueryUnescape(rawValue)
			if err != nil {
				return Criteria{}, fmt.Errorf("%w: bad criteria value for %q: %v", sitebag.ErrValidation, key, err)
			}
		}
		switch key {
		case keyArchived:
			c.Archived = parseArchived(value, hasValue)
		case keyTag:
			if hasValue && value != "" {
				tags = append(tags, value)
			}
		case keyQuery:
			c.Query = value
		}
	}
	c.Tags = normalizeTags(tags)
	return c, nil
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
