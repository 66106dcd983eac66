package state

import (
	"errors"
	"fmt"
	"strings"
)

// Stage is one step of the fixed sales sequence.
type Stage string

const (
	StageContactInfo      Stage = "contact_info"
	StageSelection        Stage = "selection"
	StageFinancingOffer   Stage = "financing_offer"
	StageFinancingDetails Stage = "financing_details"
	StagePaymentDetails   Stage = "payment_details"
	StageConfirmation     Stage = "confirmation"
)

var ErrUnknownStage = errors.New("unknown stage")

var stageOrder = []Stage{
	StageContactInfo,
	StageSelection,
	StageFinancingOffer,
	StageFinancingDetails,
	StagePaymentDetails,
	StageConfirmation,
}

// Stages returns the fixed order. The slice is a copy.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

func InitialStage() Stage {
	return stageOrder[0]
}

func ParseStage(raw string) (Stage, error) {
	st := Stage(strings.TrimSpace(raw))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, raw)
	}
	return st, nil
}

func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Index is the position in the fixed order, or -1.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the default forward successor.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(stageOrder) {
		return "", false
	}
	return stageOrder[i+1], true
}

func (s Stage) Terminal() bool {
	return s == stageOrder[len(stageOrder)-1]
}

// Before reports whether s comes strictly earlier than other.
func (s Stage) Before(other Stage) bool {
	return s.Valid() && other.Valid() && s.Index() < other.Index()
}

func (s Stage) String() string {
	return string(s)
}
