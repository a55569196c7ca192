package clients

import (
	"context"
	"net/http"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
)

type wireInsurer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Logo    string `json:"logo"`
	Enabled bool   `json:"enabled"`
}

// Companies fetches the insurer directory used to decorate quotes with
// insurer names and logos.
func (p *Platform) Companies(ctx context.Context) ([]models.Insurer, error) {
	var wire []wireInsurer
	if err := p.do(ctx, http.MethodGet, "/companies", nil, nil, &wire); err != nil {
		return nil, err
	}

	insurers := make([]models.Insurer, 0, len(wire))
	for _, w := range wire {
		insurers = append(insurers, models.Insurer{
			ID:      w.ID,
			Name:    w.Name,
			Logo:    w.Logo,
			Enabled: w.Enabled,
		})
	}
	return insurers, nil
}
