package portal

import (
	"encoding/json"
	"strings"
)

// Envelope is the {"js": ...} wrapper around every portal response.
type Envelope struct {
	JS json.RawMessage `json:"js"`
}

// Decode unmarshals the js payload into v.
func (e *Envelope) Decode(v any) error {
	return json.Unmarshal(e.JS, v)
}

// FlexString accepts JSON strings, numbers and null. Portals mix them freely
// for ids and channel numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	*f = ""
	return nil
}

// String returns the trimmed value.
func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

type handshakeData struct {
	Token string `json:"token"`
}

type createLinkData struct {
	Cmd string `json:"cmd"`
}

// RawChannel is a channel record from get_all_channels.
type RawChannel struct {
	ID      FlexString `json:"id"`
	Name    FlexString `json:"name"`
	Title   FlexString `json:"title"`
	Cmd     FlexString `json:"cmd"`
	Logo    FlexString `json:"logo"`
	LogoURL FlexString `json:"logo_url"`
	Number  FlexString `json:"number"`
}

// RawCategory is a record from get_categories.
type RawCategory struct {
	ID    FlexString `json:"id"`
	Title FlexString `json:"title"`
	Name  FlexString `json:"name"`
}

// RawVodItem is a record from get_ordered_list (movies and series share it).
type RawVodItem struct {
	ID            FlexString `json:"id"`
	Name          FlexString `json:"name"`
	Title         FlexString `json:"title"`
	Cmd           FlexString `json:"cmd"`
	ScreenshotURI FlexString `json:"screenshot_uri"`
	Cover         FlexString `json:"cover"`
}
