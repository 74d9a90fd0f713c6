package ollama

import (
	"strings"
	"testing"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

func TestParseTagResponseValid(t *testing.T) {
	tags, err := parseTagResponse(`{"tags":[{"name":"removal","confidence":0.9},{"name":"burn","confidence":0.75}]}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tags) != 2 || tags[0].Name != "removal" || tags[0].Confidence != 0.9 {
		t.Fatalf("unexpected tags: %+v", tags)
	}
}

func TestParseTagResponseSurroundingProse(t *testing.T) {
	raw := "Sure! Here are the tags:\n{\"tags\":[{\"name\":\"ramp\",\"confidence\":0.8}]}\nHope that helps."
	tags, err := parseTagResponse(raw)
	if err != nil {
		t.Fatalf("parse with prose: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "ramp" {
		t.Fatalf("unexpected tags: %+v", tags)
	}
}

func TestParseTagResponseMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":             "tags: removal 0.9",
		"missing tags field":   `{"labels":[]}`,
		"empty tag name":       `{"tags":[{"name":"","confidence":0.5}]}`,
		"confidence above one": `{"tags":[{"name":"removal","confidence":1.4}]}`,
		"negative confidence":  `{"tags":[{"name":"removal","confidence":-0.1}]}`,
	}
	for name, raw := range cases {
		if _, err := parseTagResponse(raw); !domain.IsKind(err, domain.ErrParse) {
			t.Fatalf("%s: expected parse error, got %v", name, err)
		}
	}
}

func TestBuildTagPromptListsTaxonomy(t *testing.T) {
	card := &domain.Card{Name: "Doom Blade", TypeLine: "Instant", OracleText: "Destroy target creature."}
	taxonomy := []domain.Tag{{Name: "removal"}, {Name: "targeted"}}

	prompt := buildTagPrompt(card, taxonomy)
	for _, want := range []string{"removal", "targeted", "Doom Blade", "Destroy target creature."} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}
