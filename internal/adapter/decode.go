package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/amishk599/bountybot/internal/model"
)

// wrapperKeys are probed in order when the body is an object.
var wrapperKeys = []string{"bounties", "data", "results", "items"}

// rawListing mirrors the listing fields we consume. Every scalar goes through
// flexString because sources disagree on whether ids and rewards are numbers.
// Location is a pointer so an absent key can be told apart from an empty one.
type rawListing struct {
	ID          flexString  `json:"id"`
	Title       flexString  `json:"title"`
	Description flexString  `json:"description"`
	Location    *flexString `json:"location"`
	Reward      flexString  `json:"reward"`
	Deadline    flexString  `json:"deadline"`
	URL         flexString  `json:"url"`
	Skills      flexStrings `json:"skills"`
}

// flexString accepts a JSON string, number or boolean. Null, objects and
// arrays decode to the empty string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case 'n', '{', '[':
		*f = ""
	default:
		*f = flexString(b)
	}
	return nil
}

// flexStrings accepts an array of scalars; anything else decodes to nil.
type flexStrings []flexString

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		*f = nil
		return nil
	}
	var items []flexString
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*f = items
	return nil
}

// unwrapBody returns the listing elements of a decoded body: the body itself
// when it is an array, otherwise the first wrapper key present.
func unwrapBody(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &model.SourceError{Kind: model.SourceMalformed, Err: fmt.Errorf("empty body")}
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, &model.SourceError{Kind: model.SourceMalformed, Err: fmt.Errorf("decode array: %w", err)}
		}
		return items, nil

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, &model.SourceError{Kind: model.SourceMalformed, Err: fmt.Errorf("decode object: %w", err)}
		}
		for _, key := range wrapperKeys {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			var items []json.RawMessage
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, &model.SourceError{Kind: model.SourceMalformed, Err: fmt.Errorf("key %q is not an array: %w", key, err)}
			}
			return items, nil
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, &model.SourceError{Kind: model.SourceMalformed, Err: fmt.Errorf("unexpected response structure, keys %v", keys)}

	default:
		if !json.Valid(trimmed) {
			return nil, &model.SourceError{Kind: model.SourceMalformed, Err: fmt.Errorf("invalid JSON")}
		}
		return nil, &model.SourceError{Kind: model.SourceMalformed, Err: fmt.Errorf("unexpected response structure, scalar body")}
	}
}

// decodeListings normalizes a response body into listings. Elements that are
// not JSON objects are dropped and counted in skipped.
func decodeListings(body []byte) (listings []model.Listing, skipped int, err error) {
	items, err := unwrapBody(body)
	if err != nil {
		return nil, 0, err
	}

	listings = make([]model.Listing, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			skipped++
			continue
		}
		var rl rawListing
		if err := json.Unmarshal(item, &rl); err != nil {
			skipped++
			continue
		}
		listings = append(listings, rl.toListing())
	}
	return listings, skipped, nil
}

func (rl rawListing) toListing() model.Listing {
	var skills []string
	for _, s := range rl.Skills {
		if s != "" {
			skills = append(skills, string(s))
		}
	}
	location := model.DefaultLocation
	if rl.Location != nil {
		location = string(*rl.Location)
	}
	return model.Listing{
		ID:          string(rl.ID),
		Title:       orDefault(string(rl.Title), model.DefaultTitle),
		Description: orDefault(string(rl.Description), model.DefaultDescription),
		Location:    location,
		Reward:      orDefault(string(rl.Reward), model.NotSpecified),
		Deadline:    orDefault(string(rl.Deadline), model.NotSpecified),
		URL:         string(rl.URL),
		Skills:      skills,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
