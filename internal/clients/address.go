package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
)

// wireLink decodes the two address shapes the backends use: a bare code
// string, or a {value,text} object. Both normalize to models.Link here so
// no deeper layer ever branches on shape.
type wireLink struct {
	Code string
	Name string
}

func (w *wireLink) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		w.Code = plain
		w.Name = plain
		return nil
	}

	var structured struct {
		Value string `json:"value"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal(data, &structured); err != nil {
		return fmt.Errorf("unrecognized address link shape: %w", err)
	}
	w.Code = structured.Value
	w.Name = structured.Text
	return nil
}

func (w wireLink) toLink() models.Link {
	return models.Link{Code: w.Code, Name: w.Name}
}

// AddressChildren fetches the selectable links one level below the given
// parent. The city level takes an empty parent code.
func (p *Platform) AddressChildren(ctx context.Context, level models.AddressLevel, parentCode string) ([]models.Link, error) {
	path := "/addresses/" + level.String()
	if parentCode != "" {
		path += "?parent=" + url.QueryEscape(parentCode)
	}

	var wire []wireLink
	if err := p.do(ctx, http.MethodGet, path, nil, nil, &wire); err != nil {
		return nil, err
	}

	links := make([]models.Link, 0, len(wire))
	for _, w := range wire {
		links = append(links, w.toLink())
	}
	return links, nil
}
