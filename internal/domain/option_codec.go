package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Authoring payloads give options either as a bare string or as {text, image}.
// The shape is resolved here once; everything downstream uses Option.Kind.

type optionObject struct {
	Text  string `json:"text" yaml:"text"`
	Image string `json:"image,omitempty" yaml:"image,omitempty"`
}

func (o *Option) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*o = PlainOption(text)
		return nil
	}
	var obj optionObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("option must be a string or an object with text and image: %w", err)
	}
	*o = newOption(obj.Text, obj.Image)
	return nil
}

func (o Option) MarshalJSON() ([]byte, error) {
	if o.Kind == OptionWithImage {
		return json.Marshal(optionObject{Text: o.Text, Image: o.Image})
	}
	return json.Marshal(o.Text)
}

func (o *Option) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var text string
		if err := node.Decode(&text); err != nil {
			return err
		}
		*o = PlainOption(text)
		return nil
	}
	var obj optionObject
	if err := node.Decode(&obj); err != nil {
		return fmt.Errorf("line %d: option must be a string or a mapping with text and image: %w", node.Line, err)
	}
	*o = newOption(obj.Text, obj.Image)
	return nil
}
