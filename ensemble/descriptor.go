package ensemble

import (
	"encoding/json"

	"github.com/ezoic/sciforest/core/model"
	"github.com/ezoic/sciforest/fields"
	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
)

// ModelDistribution holds the per model statistics an ensemble resource
// keeps for its components.
type ModelDistribution struct {
	Importance []fields.Count `json:"importance"`
	Training   *struct {
		Categories []fields.Count `json:"categories"`
	} `json:"training,omitempty"`
}

// Descriptor lists the components of an ensemble.
type Descriptor struct {
	ID             string
	Models         []string
	ObjectiveField string
	// Fields is the field table shared by every component. It may be nil
	// when the components carry their own.
	Fields        fields.Table
	Distributions []ModelDistribution
	// Boosted ensembles add InitialOffset (regression) or InitialOffsets
	// (classification, per class) to the summed tree scores.
	Boosted        bool
	InitialOffset  float64
	InitialOffsets map[string]float64
}

type descriptorJSON struct {
	Resource        string              `json:"resource"`
	Models          []string            `json:"models"`
	ObjectiveField  string              `json:"objective_field"`
	ObjectiveFields []string            `json:"objective_fields"`
	Distributions   []ModelDistribution `json:"distributions"`
	Boosting        json.RawMessage     `json:"boosting"`
	InitialOffset   *float64            `json:"initial_offset"`
	InitialOffsets  []fields.Count      `json:"initial_offsets"`
	Fields          fields.Table        `json:"fields"`
	Ensemble        struct {
		Fields fields.Table `json:"fields"`
	} `json:"ensemble"`
}

// ParseDescriptor decodes an ensemble resource document or bare object.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	const op = "ensemble.ParseDescriptor"
	res, err := model.Decode(data)
	if err != nil {
		return nil, err
	}
	if err := res.CheckFinished(); err != nil {
		return nil, err
	}
	var dj descriptorJSON
	if err := json.Unmarshal(res.Object, &dj); err != nil {
		return nil, scigoErrors.NewModelError(op, "invalid ensemble object",
			scigoErrors.Wrap(scigoErrors.ErrMalformedModel, err.Error()))
	}
	if len(dj.Models) == 0 {
		return nil, scigoErrors.NewModelError(op, "ensemble lists no models", scigoErrors.ErrMalformedModel)
	}
	d := &Descriptor{
		ID:             res.ID,
		Models:         dj.Models,
		ObjectiveField: dj.ObjectiveField,
		Fields:         dj.Fields,
		Distributions:  dj.Distributions,
		Boosted:        len(dj.Boosting) > 0 && string(dj.Boosting) != "null" && string(dj.Boosting) != "{}",
	}
	if d.ID == "" {
		d.ID = dj.Resource
	}
	if d.ObjectiveField == "" && len(dj.ObjectiveFields) > 0 {
		d.ObjectiveField = dj.ObjectiveFields[0]
	}
	if d.Fields == nil {
		d.Fields = dj.Ensemble.Fields
	}
	if d.Fields != nil {
		d.Fields = d.Fields.WithIDs()
	}
	if dj.InitialOffset != nil {
		d.InitialOffset = *dj.InitialOffset
	}
	if len(dj.InitialOffsets) > 0 {
		d.InitialOffsets = map[string]float64{}
		for _, o := range dj.InitialOffsets {
			d.InitialOffsets[o.Value] = o.Count
		}
	}
	return d, nil
}
