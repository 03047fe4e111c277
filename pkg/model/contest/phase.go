package contest

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Phase is the stage of a contest cycle.
type Phase byte

const (
	// PhaseUploading accepts content into the slots.
	PhaseUploading Phase = iota
	// PhaseVoting accepts votes on filled slots.
	PhaseVoting
	// PhaseBidding runs the auction of the winning slot.
	PhaseBidding
)

var phaseNames = map[Phase]string{
	PhaseUploading: "uploading",
	PhaseVoting:    "voting",
	PhaseBidding:   "bidding",
}

func (p Phase) String() string {
	if name, exists := phaseNames[p]; exists {
		return name
	}
	return fmt.Sprintf("phase(%d)", byte(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if strings.EqualFold(name, string(text)) {
			*p = phase
			return nil
		}
	}
	return errors.Errorf("unknown phase %q", string(text))
}

// next returns the phase following p. Bidding wraps around to uploading.
func (p Phase) next() Phase {
	switch p {
	case PhaseUploading:
		return PhaseVoting
	case PhaseVoting:
		return PhaseBidding
	default:
		return PhaseUploading
	}
}
