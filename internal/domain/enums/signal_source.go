package enums

type SignalSource string

const (
	SignalSourceModel     SignalSource = "MODEL"
	SignalSourceHeuristic SignalSource = "HEURISTIC"
)

type FusionMode string

const (
	FusionModeOr       FusionMode = "or"
	FusionModeWeighted FusionMode = "weighted"
)
