package models

// Channel is a live TV entry. Cmd is the portal's raw playable command.
type Channel struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Cmd    string `json:"cmd"`
	Logo   string `json:"logo,omitempty"`
	Number string `json:"number,omitempty"`
	Group  string `json:"group"`
}

// VodItem is a movie or series episode whose Cmd has already been resolved
// through create_link.
type VodItem struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Cmd       string `json:"cmd"`
	Poster    string `json:"poster,omitempty"`
	Group     string `json:"group"`
	MediaType int16  `json:"media_type"`
}

// Category identifies a VOD grouping on the portal.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
