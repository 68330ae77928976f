package nn

// LayerTelemetry contains structural metadata about a capsule layer
type LayerTelemetry struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Configured  bool   `json:"configured"`
	Parameters  int    `json:"parameters"`
	RoutingIter int    `json:"routing_iter"`

	// Per-sample shapes, batch axis omitted
	InputShape      []int `json:"input_shape,omitempty"`      // (P, D_p)
	PredictionShape []int `json:"prediction_shape,omitempty"` // (P, C, D_c)
	OutputShape     []int `json:"output_shape"`               // (C, D_c)
}

// ExtractLayerTelemetry describes layer. Input and prediction shapes are
// only known once the layer is configured.
func ExtractLayerTelemetry(layer *CapsuleLayer, id string) LayerTelemetry {
	cfg := layer.Config()
	tel := LayerTelemetry{
		ID:          id,
		Type:        "capsule",
		Configured:  layer.Configured(),
		Parameters:  layer.ParamCount(),
		RoutingIter: cfg.RoutingIter,
		OutputShape: []int{cfg.NumCaps, cfg.DimCaps},
	}
	if tel.Configured {
		lowerCaps, lowerDim := layer.InputShape()
		tel.InputShape = []int{lowerCaps, lowerDim}
		tel.PredictionShape = []int{lowerCaps, cfg.NumCaps, cfg.DimCaps}
	}
	return tel
}
