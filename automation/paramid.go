// Package automation implements the automation lane, interpolator,
// per-block scheduling engine, and live recorder (§4.D, §4.E, §4.F).
package automation

import "cmp"

// Kind identifies what an automation parameter controls (§3).
type Kind int

const (
	KindTrackVolume Kind = iota
	KindTrackPan
	KindTrackMute
	KindTrackSolo
	KindSendLevel
	KindSendPan
	KindPluginParameter
	KindMidiCC
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindTrackVolume:
		return "TrackVolume"
	case KindTrackPan:
		return "TrackPan"
	case KindTrackMute:
		return "TrackMute"
	case KindTrackSolo:
		return "TrackSolo"
	case KindSendLevel:
		return "SendLevel"
	case KindSendPan:
		return "SendPan"
	case KindPluginParameter:
		return "PluginParameter"
	case KindMidiCC:
		return "MidiCc"
	case KindCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// ParameterID is the composite key identifying one automatable
// parameter (§3). It is totally ordered (bitwise on kind, track_id,
// parameter_index, plugin_instance_id, custom_tag, in that order -
// §6) so it can be used as a map key and sorted deterministically.
type ParameterID struct {
	Kind             Kind
	TrackID          uint32
	ParameterIndex   uint32
	PluginInstanceID uint32
	CustomTag        string
}

// Compare implements the total order named in §6. It returns a
// negative, zero, or positive value as a < b, a == b, a > b.
func Compare(a, b ParameterID) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.TrackID, b.TrackID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ParameterIndex, b.ParameterIndex); c != 0 {
		return c
	}
	if c := cmp.Compare(a.PluginInstanceID, b.PluginInstanceID); c != 0 {
		return c
	}
	return cmp.Compare(a.CustomTag, b.CustomTag)
}

// DisplayName derives a human-readable label from the parameter's
// identity (§3: "Display name is derived from kind + ids").
func (p ParameterID) DisplayName() string {
	switch p.Kind {
	case KindPluginParameter:
		return p.Kind.String() + "#" + uitoa(p.PluginInstanceID) + "." + uitoa(p.ParameterIndex)
	case KindCustom:
		if p.CustomTag != "" {
			return p.Kind.String() + ":" + p.CustomTag
		}
		return p.Kind.String()
	case KindSendLevel, KindSendPan:
		return p.Kind.String() + "#" + uitoa(p.TrackID) + "->" + uitoa(p.ParameterIndex)
	default:
		return p.Kind.String() + "#" + uitoa(p.TrackID)
	}
}

func uitoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
