package resume

import (
	"fmt"

	"github.com/jdkato/prose/v2"
)

// LabelPerson is the entity label for people.
const LabelPerson = "PERSON"

// Entity is a named entity found in text, in reading order.
type Entity struct {
	Text  string
	Label string
}

// EntityRecognizer finds named entities.
type EntityRecognizer interface {
	Entities(text string) ([]Entity, error)
}

// ProseRecognizer recognizes entities with the prose NLP model.
type ProseRecognizer struct{}

// Entities runs tokenization, tagging and entity extraction over text.
func (ProseRecognizer) Entities(text string) ([]Entity, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("prose document: %w", err)
	}

	found := doc.Entities()
	out := make([]Entity, 0, len(found))
	for _, ent := range found {
		out = append(out, Entity{Text: ent.Text, Label: ent.Label})
	}
	return out, nil
}
