package dashboard

import (
	"encoding/json"
	"io"
)

// Renderer describes the template renderer contract needed by the controller.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}

// JSONRenderer renders the payload as indented JSON, ignoring the template
// name. It is the controller default when no template engine is wired.
type JSONRenderer struct{}

// Render encodes data and writes it to the first writer, if any.
func (JSONRenderer) Render(_ string, data any, out ...io.Writer) (string, error) {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	if len(out) > 0 && out[0] != nil {
		if _, err := out[0].Write(raw); err != nil {
			return "", err
		}
	}
	return string(raw), nil
}
