package scriptstore

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var slugShape = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"My Cool Script!":          "my-cool-script",
		"deploy.sh":                "deploy-sh",
		"  leading and trailing  ": "leading-and-trailing",
		"a--b__c":                  "a-b-c",
		`back\slash/and:colon?`:    "back-slash-and-colon",
		"Ünïcode nåme":             "n-code-n-me",
		"already-a-slug":           "already-a-slug",
		"!!!":                      "",
		"":                         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}

func TestSlugifyShapeAndIdempotence(t *testing.T) {
	names := []string{"My Cool Script!", "x", "Build & Deploy (v2)", "<>:\"/\\|?*name", "tabs\tand\nnewlines", "9 lives"}
	for _, name := range names {
		slug := Slugify(name)
		assert.Regexp(t, slugShape, slug, name)
		assert.Equal(t, slug, Slugify(slug), "not idempotent for %q", name)
		assert.Equal(t, slug, Slugify(name), "not deterministic for %q", name)
	}
}
