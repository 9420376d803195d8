package stac

import "encoding/json"

type searchRequest struct {
	Collections []string                     `json:"collections"`
	BBox        []float64                    `json:"bbox"`
	Datetime    string                       `json:"datetime"`
	Query       map[string]map[string]string `json:"query,omitempty"`
	Limit       int                          `json:"limit,omitempty"`
}

type itemCollection struct {
	Type     string `json:"type"`
	Features []item `json:"features"`
	Links    []link `json:"links"`
}

type item struct {
	ID         string           `json:"id"`
	Collection string           `json:"collection"`
	Geometry   json.RawMessage  `json:"geometry"`
	Properties itemProperties   `json:"properties"`
	Assets     map[string]asset `json:"assets"`
}

type itemProperties struct {
	Datetime string `json:"datetime"`
}

type asset struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

type link struct {
	Rel    string          `json:"rel"`
	Href   string          `json:"href"`
	Method string          `json:"method"`
	Body   json.RawMessage `json:"body"`
	Merge  bool            `json:"merge"`
}
