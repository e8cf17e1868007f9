package fusion

import (
	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/enums"
	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/model"
)

// Policy combines the collected signals into one decision. Fuse is a pure
// function of the signal set and the policy values; failed signals (OK=false)
// are ignored entirely.
type Policy struct {
	Mode enums.FusionMode

	// Per-source thresholds for OR mode. ModelThreshold doubles as the
	// combined threshold in weighted mode.
	ModelThreshold float64
	SkinThreshold  float64

	// SkinWeight is the heuristic's share in weighted mode.
	SkinWeight float64
}

func (p Policy) Fuse(signals []model.SignalScore) model.FusionResult {
	var (
		modelScore, skinScore float64
		modelOK, skinOK       bool
		contributing          []enums.SignalSource
	)

	for _, signal := range signals {
		if !signal.OK {
			continue
		}
		switch signal.Source {
		case enums.SignalSourceModel:
			modelScore, modelOK = signal.Value, true
		case enums.SignalSourceHeuristic:
			skinScore, skinOK = signal.Value, true
		}
		contributing = append(contributing, signal.Source)
	}

	if !modelOK && !skinOK {
		return model.FusionResult{}
	}

	if p.Mode == enums.FusionModeWeighted {
		return p.fuseWeighted(modelScore, skinScore, modelOK, skinOK, contributing)
	}
	return p.fuseOr(modelScore, skinScore, modelOK, skinOK, contributing)
}

func (p Policy) fuseOr(modelScore, skinScore float64, modelOK, skinOK bool, contributing []enums.SignalSource) model.FusionResult {
	flagged := (modelOK && modelScore >= p.ModelThreshold) ||
		(skinOK && skinScore >= p.SkinThreshold)

	final := 0.0
	if modelOK && modelScore > final {
		final = modelScore
	}
	if skinOK && skinScore > final {
		final = skinScore
	}

	return model.FusionResult{
		Flagged:             flagged,
		FinalScore:          final,
		ContributingSources: contributing,
	}
}

// fuseWeighted blends the two signals. With the model signal down, the result
// degrades to the heuristic scaled by its weight: a lossy but deliberate
// approximation, never a silent zero-fill of the model term pretending both
// signals were present.
func (p Policy) fuseWeighted(modelScore, skinScore float64, modelOK, skinOK bool, contributing []enums.SignalSource) model.FusionResult {
	var final float64
	switch {
	case modelOK && skinOK:
		final = modelScore*(1-p.SkinWeight) + skinScore*p.SkinWeight
	case skinOK:
		final = skinScore * p.SkinWeight
	default:
		final = modelScore * (1 - p.SkinWeight)
	}

	return model.FusionResult{
		Flagged:             final >= p.ModelThreshold,
		FinalScore:          final,
		ContributingSources: contributing,
	}
}
