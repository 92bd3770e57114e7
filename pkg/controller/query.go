package controller

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/nimburion/crudkit/pkg/model"
)

// QueryParam is the query-string parameter holding the JSON-encoded query.
const QueryParam = "query"

var errMissingFilter = errors.New(`query must contain a "filter" object`)

// findQuery is the JSON form of a find request, e.g.
// {"filter":{"name":"foobar"},"limit":10,"skip":0,"sort":{"name":1}}.
type findQuery struct {
	Filter *model.Filter `json:"filter"`
	Limit  int64         `json:"limit"`
	Skip   int64         `json:"skip"`
	Sort   model.Sort    `json:"sort"`
}

// ParseQuery decodes a JSON query string into a filter and find options.
// The "filter" key is required; malformed input is INVALID_ARGUMENTS.
func ParseQuery(raw string) (model.Filter, *model.FindModelOptions, error) {
	var q findQuery
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &q); err != nil {
		return nil, nil, invalidArguments("invalid query: "+err.Error(), err)
	}
	if q.Filter == nil {
		return nil, nil, invalidArguments(errMissingFilter.Error(), errMissingFilter)
	}
	return *q.Filter, &model.FindModelOptions{Limit: q.Limit, Skip: q.Skip, Sort: q.Sort}, nil
}
