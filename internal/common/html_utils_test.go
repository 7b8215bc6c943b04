package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestHTMLHelpers(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<div><b> first </b><p>x<b>second</b></p></div>`))
	require.NoError(t, err)

	bold := FindNodesByTag(doc, "b")
	require.Len(t, bold, 2)
	assert.Equal(t, " first ", RawText(bold[0]))
	assert.Equal(t, "first", ExtractText(bold[0]))
	assert.Equal(t, bold[0], FindFirstByTag(doc, "b"))
	assert.Nil(t, FindFirstByTag(doc, "table"))
}

func TestStripWhitespace(t *testing.T) {
	assert.Equal(t, "PermitNumber", StripWhitespace(" Permit\n\t Number "))
	assert.Equal(t, "", StripWhitespace("  "))
}
