package mixer

// DestinationKind names what a RouteDestination points at (§4.G/H).
type DestinationKind int

const (
	DestTrack DestinationKind = iota
	DestBus
	DestMasterOut
	DestExternalOut
)

// RouteDestination is one outbound connection from a bus (§3).
type RouteDestination struct {
	Kind          DestinationKind
	DestinationID BusID
	SendLevel     float64 // linear gain, 1.0 = 0dB
	SendPan       float64 // -1..1
	PreFader      bool
	Enabled       bool
}

// NewMasterRoute returns the default output every non-master bus is
// created with: a unity-gain, post-fader send to the master bus.
func NewMasterRoute(masterID BusID) RouteDestination {
	return RouteDestination{Kind: DestMasterOut, DestinationID: masterID, SendLevel: 1.0, Enabled: true}
}
