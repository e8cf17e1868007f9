package fusion

import (
	"errors"
	"testing"

	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/enums"
	"github.com/mg-anjaan/BotTelegramSCan/internal/domain/model"
)

func signal(source enums.SignalSource, value float64) model.SignalScore {
	return model.SignalScore{Source: source, Value: value, OK: true}
}

func failedSignal(source enums.SignalSource) model.SignalScore {
	return model.SignalScore{Source: source, OK: false, Err: errors.New("source down")}
}

func TestFuseOrModeThresholds(t *testing.T) {
	policy := Policy{Mode: enums.FusionModeOr, ModelThreshold: 0.65, SkinThreshold: 0.28}

	testCases := []struct {
		name        string
		modelScore  float64
		skinScore   float64
		wantFlagged bool
		wantFinal   float64
	}{
		{name: "both below", modelScore: 0.5, skinScore: 0.1, wantFlagged: false, wantFinal: 0.5},
		{name: "model at threshold", modelScore: 0.65, skinScore: 0.1, wantFlagged: true, wantFinal: 0.65},
		{name: "model above", modelScore: 0.9, skinScore: 0.1, wantFlagged: true, wantFinal: 0.9},
		{name: "skin at threshold", modelScore: 0.1, skinScore: 0.28, wantFlagged: true, wantFinal: 0.28},
		{name: "skin above model below", modelScore: 0.3, skinScore: 0.5, wantFlagged: true, wantFinal: 0.5},
		{name: "both zero", modelScore: 0, skinScore: 0, wantFlagged: false, wantFinal: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := policy.Fuse([]model.SignalScore{
				signal(enums.SignalSourceModel, tc.modelScore),
				signal(enums.SignalSourceHeuristic, tc.skinScore),
			})
			if result.Flagged != tc.wantFlagged {
				t.Fatalf("flagged=%v, want %v", result.Flagged, tc.wantFlagged)
			}
			if result.FinalScore != tc.wantFinal {
				t.Fatalf("final=%v, want %v", result.FinalScore, tc.wantFinal)
			}
			if len(result.ContributingSources) != 2 {
				t.Fatalf("expected both sources contributing, got %v", result.ContributingSources)
			}
		})
	}
}

func TestFuseOrModeIgnoresFailedModel(t *testing.T) {
	policy := Policy{Mode: enums.FusionModeOr, ModelThreshold: 0.65, SkinThreshold: 0.28}

	result := policy.Fuse([]model.SignalScore{
		failedSignal(enums.SignalSourceModel),
		signal(enums.SignalSourceHeuristic, 0.5),
	})
	if !result.Flagged {
		t.Fatal("expected heuristic alone to flag")
	}
	if result.FinalScore != 0.5 {
		t.Fatalf("final=%v, want 0.5", result.FinalScore)
	}
	if len(result.ContributingSources) != 1 || result.ContributingSources[0] != enums.SignalSourceHeuristic {
		t.Fatalf("unexpected contributing sources %v", result.ContributingSources)
	}
}

func TestFuseWeightedMode(t *testing.T) {
	policy := Policy{Mode: enums.FusionModeWeighted, ModelThreshold: 0.5, SkinWeight: 0.6}

	result := policy.Fuse([]model.SignalScore{
		signal(enums.SignalSourceModel, 0.8),
		signal(enums.SignalSourceHeuristic, 0.4),
	})

	want := 0.8*0.4 + 0.4*0.6
	if diff := result.FinalScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("final=%v, want %v", result.FinalScore, want)
	}
	if !result.Flagged {
		t.Fatalf("expected flagged at final=%v with threshold 0.5", result.FinalScore)
	}

	low := policy.Fuse([]model.SignalScore{
		signal(enums.SignalSourceModel, 0.3),
		signal(enums.SignalSourceHeuristic, 0.3),
	})
	if low.Flagged {
		t.Fatalf("expected unflagged at final=%v", low.FinalScore)
	}
}

func TestFuseWeightedDegradesWithoutModel(t *testing.T) {
	policy := Policy{Mode: enums.FusionModeWeighted, ModelThreshold: 0.5, SkinWeight: 0.6}

	result := policy.Fuse([]model.SignalScore{
		failedSignal(enums.SignalSourceModel),
		signal(enums.SignalSourceHeuristic, 0.9),
	})

	want := 0.9 * 0.6
	if diff := result.FinalScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("final=%v, want heuristic*weight=%v", result.FinalScore, want)
	}
	if !result.Flagged {
		t.Fatal("expected degraded weighted score to flag")
	}
}

func TestFuseAllSignalsFailed(t *testing.T) {
	policy := Policy{Mode: enums.FusionModeOr, ModelThreshold: 0.65, SkinThreshold: 0.28}

	result := policy.Fuse([]model.SignalScore{
		failedSignal(enums.SignalSourceModel),
		failedSignal(enums.SignalSourceHeuristic),
	})
	if result.Flagged {
		t.Fatal("no evidence must never flag")
	}
	if result.FinalScore != 0 || len(result.ContributingSources) != 0 {
		t.Fatalf("expected zero result, got %+v", result)
	}
}

func TestFuseIsDeterministic(t *testing.T) {
	policy := Policy{Mode: enums.FusionModeOr, ModelThreshold: 0.65, SkinThreshold: 0.28}
	signals := []model.SignalScore{
		signal(enums.SignalSourceModel, 0.9),
		signal(enums.SignalSourceHeuristic, 0.1),
	}

	first := policy.Fuse(signals)
	for i := 0; i < 10; i++ {
		if next := policy.Fuse(signals); next.Flagged != first.Flagged || next.FinalScore != first.FinalScore {
			t.Fatalf("fusion not deterministic: %+v vs %+v", first, next)
		}
	}
	if first.FinalScore != 0.9 || !first.Flagged {
		t.Fatalf("unexpected result %+v", first)
	}
}
