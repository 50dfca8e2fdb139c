package world

import (
	"time"

	"farmhand.ai/internal/protocol"
)

// Phase is one growth stage. The set is closed and strictly ordered;
// Mature is the only harvestable stage and Dead is terminal.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseSeed
	PhaseGermination
	PhaseSmallLeaves
	PhaseLargeLeaves
	PhaseBlooming
	PhaseMature
	PhaseDead
)

func (p Phase) String() string {
	switch p {
	case PhaseSeed:
		return "Seed"
	case PhaseGermination:
		return "Germination"
	case PhaseSmallLeaves:
		return "SmallLeaves"
	case PhaseLargeLeaves:
		return "LargeLeaves"
	case PhaseBlooming:
		return "Blooming"
	case PhaseMature:
		return "Mature"
	case PhaseDead:
		return "Dead"
	default:
		return "Unknown"
	}
}

type PhaseRecord struct {
	Phase     Phase
	BeginTime int64
}

// Plant mirrors the server's description of one growing plant. The phase
// timeline is fixed at plant time; the client only reads the clock against
// it, it never appends records of its own.
type Plant struct {
	CropID       int
	CropName     string
	Phases       []PhaseRecord
	DryTime      int64
	WeedsTime    int64
	InsectTime   int64
	WeedOwners   []string
	InsectOwners []string
}

func plantFromInfo(pi *protocol.PlantInfo) *Plant {
	if pi == nil {
		return nil
	}
	p := &Plant{
		CropID:       pi.CropID,
		CropName:     pi.CropName,
		DryTime:      pi.DryTime,
		WeedsTime:    pi.WeedsTime,
		InsectTime:   pi.InsectTime,
		WeedOwners:   append([]string(nil), pi.WeedOwners...),
		InsectOwners: append([]string(nil), pi.InsectOwners...),
	}
	for _, rec := range pi.Phases {
		p.Phases = append(p.Phases, PhaseRecord{Phase: Phase(rec.Phase), BeginTime: rec.BeginTime})
	}
	return p
}

// CurrentPhase returns the phase of the last timeline record whose begin
// time is at or before now. With no qualifying record the phase is Unknown.
func (p *Plant) CurrentPhase(now time.Time) Phase {
	ts := now.Unix()
	phase := PhaseUnknown
	for _, rec := range p.Phases {
		if rec.BeginTime > ts {
			break
		}
		phase = rec.Phase
	}
	return phase
}

// NeedsWater reports whether the dryness hazard is active at now.
func (p *Plant) NeedsWater(now time.Time) bool {
	return p.DryTime > 0 && p.DryTime <= now.Unix()
}

// HasWeeds reports whether the weed hazard is active at now. A non-empty
// owner list is itself an active signal regardless of the timer.
func (p *Plant) HasWeeds(now time.Time) bool {
	return len(p.WeedOwners) > 0 || (p.WeedsTime > 0 && p.WeedsTime <= now.Unix())
}

// HasInsects reports whether the insect hazard is active at now.
func (p *Plant) HasInsects(now time.Time) bool {
	return len(p.InsectOwners) > 0 || (p.InsectTime > 0 && p.InsectTime <= now.Unix())
}
