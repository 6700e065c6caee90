package models

import (
	"fmt"
	"strings"
)

// Strategy selects how documents sharing a reference code are paired.
type Strategy string

const (
	StrategyVersionMatch    Strategy = "version_match"
	StrategyAllCombinations Strategy = "all_combinations"
	StrategyLatestOnly      Strategy = "latest_only"
	StrategyFirstOnly       Strategy = "first_only"
)

// ParseStrategy validates a strategy name from configuration or flags.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyVersionMatch:
		return StrategyVersionMatch, nil
	case StrategyAllCombinations:
		return StrategyAllCombinations, nil
	case StrategyLatestOnly:
		return StrategyLatestOnly, nil
	case StrategyFirstOnly:
		return StrategyFirstOnly, nil
	default:
		return "", fmt.Errorf("unknown pairing strategy %q", s)
	}
}

// Split is the dataset partition a record is assigned to.
type Split string

const (
	SplitTrain      Split = "train"
	SplitValidation Split = "validation"
)

// MatchKind records how a pair's two sides were matched, for provenance.
type MatchKind string

const (
	MatchVersionEqual MatchKind = "version_equal"
	MatchUnversioned  MatchKind = "both_unversioned"
	MatchCartesian    MatchKind = "cartesian"
	MatchLatest       MatchKind = "latest"
	MatchFirst        MatchKind = "first"
)

// ReferenceGroup holds, for one canonical reference code, the documents on
// each side of the pairing join. A code with members on only one side is an
// orphan and produces zero pairs.
type ReferenceGroup struct {
	Code   string            `json:"code"`
	Source []*DocumentRecord `json:"source"`
	Target []*DocumentRecord `json:"target"`
}

// Orphaned reports whether the group has members on only one side.
func (g *ReferenceGroup) Orphaned() bool {
	return len(g.Source) == 0 || len(g.Target) == 0
}

// DatasetRecord is one source/target document pair with its provenance.
// Records are immutable once created except for the split assignment.
type DatasetRecord struct {
	RefCode       string    `json:"refCode"`
	SourcePath    string    `json:"sourcePath"`
	TargetPath    string    `json:"targetPath"`
	SourceText    string    `json:"sourceText"`
	TargetText    string    `json:"targetText"`
	SourceVersion string    `json:"sourceVersion,omitempty"`
	TargetVersion string    `json:"targetVersion,omitempty"`
	MatchKind     MatchKind `json:"matchKind"`
	Strategy      Strategy  `json:"strategy"`
	Split         Split     `json:"split,omitempty"`
}
