package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryEncodeKeepsOrder(t *testing.T) {
	q := NewQuery("stb", "handshake").Add("token", "")
	assert.Equal(t, "type=stb&action=handshake&token=&JsHttpRequest=1-xml", q.Encode())
	assert.Equal(t, "handshake", q.Action())
}

func TestQueryEncodeEscapesValues(t *testing.T) {
	q := NewQuery("vod", "create_link").Add("cmd", "ffmpeg http://x/a b?c=1&d=+")
	assert.Equal(t,
		"type=vod&action=create_link&cmd=ffmpeg%20http%3A%2F%2Fx%2Fa%20b%3Fc%3D1%26d%3D%2B&JsHttpRequest=1-xml",
		q.Encode())
}
