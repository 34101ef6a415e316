package mixer

import (
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/waveforge/dawcore"
	"github.com/waveforge/dawcore/dawerr"
	"github.com/waveforge/dawcore/meter"
)

// Manager owns every bus in the signal-flow graph, assigns ids
// monotonically, and maintains a cycle-free topological processing
// order (§4.H).
type Manager struct {
	mu sync.RWMutex

	sampleRate float64
	nextID     BusID
	masterID   BusID
	buses      map[BusID]*Bus
	order      []BusID

	scratch map[BusID]*dawcore.Buffer

	Logger *log.Logger
}

// NewManager constructs a Manager with a master bus already created.
func NewManager(sampleRate float64, masterChannels int) *Manager {
	m := &Manager{
		sampleRate: sampleRate,
		buses:      make(map[BusID]*Bus),
		scratch:    make(map[BusID]*dawcore.Buffer),
		Logger:     log.New(os.Stderr),
	}
	m.Logger.SetPrefix("mixer")
	master := NewBus(0, "Master", BusMaster, masterChannels, 0)
	master.Meter = meter.NewProcessor(masterChannels, sampleRate, nil)
	m.buses[0] = master
	m.masterID = 0
	m.nextID = 1
	m.scratch[0] = dawcore.NewBuffer(masterChannels, 8192)
	m.recomputeOrderLocked()
	return m
}

// MasterBus returns the unique, unremovable master bus.
func (m *Manager) MasterBus() *Bus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buses[m.masterID]
}

// CreateBus allocates a new bus, routed to master by default.
func (m *Manager) CreateBus(name string, busType BusType, channels int) (*Bus, error) {
	if channels < 1 || channels > dawcore.MaxChannels {
		return nil, dawerr.New(dawerr.InvalidParameter, "channel count out of range").With("channels", channels)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	b := NewBus(id, name, busType, channels, m.masterID)
	b.Meter = meter.NewProcessor(channels, m.sampleRate, nil)
	m.buses[id] = b
	m.scratch[id] = dawcore.NewBuffer(channels, 8192)
	m.recomputeOrderLocked()

	m.Logger.Info("bus created", "id", id, "name", name, "channels", channels)
	return b, nil
}

// RemoveBus deletes a non-master bus and strips any route pointing at
// it from every remaining bus.
func (m *Manager) RemoveBus(id BusID) error {
	if id == m.masterID {
		return dawerr.New(dawerr.InvalidParameter, "cannot remove the master bus")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buses[id]; !ok {
		return dawerr.New(dawerr.NotFound, "no such bus").With("id", id)
	}
	delete(m.buses, id)
	delete(m.scratch, id)
	for _, b := range m.buses {
		b.RemoveOutput(id)
	}
	m.recomputeOrderLocked()
	m.Logger.Info("bus removed", "id", id)
	return nil
}

// Bus looks up a bus by id.
func (m *Manager) Bus(id BusID) (*Bus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buses[id]
	return b, ok
}

// Buses returns every bus in the graph, in no particular order.
func (m *Manager) Buses() []*Bus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Bus, 0, len(m.buses))
	for _, b := range m.buses {
		out = append(out, b)
	}
	return out
}

// AddRoute connects sourceID's output to dest, rejecting the change if
// it would introduce a cycle in the bus-to-bus subgraph.
func (m *Manager) AddRoute(sourceID BusID, dest RouteDestination) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, ok := m.buses[sourceID]
	if !ok {
		return dawerr.New(dawerr.NotFound, "no such source bus").With("id", sourceID)
	}

	destBusID, isBusEdge := m.busEdgeTarget(dest)
	if isBusEdge {
		if _, ok := m.buses[destBusID]; !ok {
			return dawerr.New(dawerr.NotFound, "no such destination bus").With("id", destBusID)
		}
		if m.reachableLocked(destBusID, sourceID) {
			return dawerr.New(dawerr.Cycle, "route would create a cycle").With("source", sourceID).With("destination", destBusID)
		}
	}

	source.AddOutput(dest)
	m.recomputeOrderLocked()
	return nil
}

// busEdgeTarget returns the bus id a route participates in the
// bus-to-bus subgraph with, and whether it does at all (TRACK/EXTERNAL_OUT
// destinations don't feed back into the bus graph).
func (m *Manager) busEdgeTarget(dest RouteDestination) (BusID, bool) {
	switch dest.Kind {
	case DestBus:
		return dest.DestinationID, true
	case DestMasterOut:
		return m.masterID, true
	default:
		return 0, false
	}
}

// reachableLocked reports whether target is reachable from start by
// walking bus-to-bus output edges. Caller must hold m.mu.
func (m *Manager) reachableLocked(start, target BusID) bool {
	visited := map[BusID]bool{start: true}
	stack := []BusID{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target {
			return true
		}
		bus, ok := m.buses[cur]
		if !ok {
			continue
		}
		for _, o := range bus.Outputs() {
			next, isBusEdge := m.busEdgeTarget(o)
			if !isBusEdge || visited[next] {
				continue
			}
			visited[next] = true
			stack = append(stack, next)
		}
	}
	return false
}

// recomputeOrderLocked rebuilds the topological processing order via
// Kahn's algorithm over the bus-to-bus subgraph. Caller must hold m.mu.
func (m *Manager) recomputeOrderLocked() {
	indegree := make(map[BusID]int, len(m.buses))
	for id := range m.buses {
		indegree[id] = 0
	}
	edges := make(map[BusID][]BusID, len(m.buses))
	for id, b := range m.buses {
		for _, o := range b.Outputs() {
			target, isBusEdge := m.busEdgeTarget(o)
			if !isBusEdge {
				continue
			}
			edges[id] = append(edges[id], target)
			indegree[target]++
		}
	}

	var queue []BusID
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	var order []BusID
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range edges[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	m.order = order
}

// SoloArbitration implements §4.H: when any bus is soloed, every
// non-soloed, non-master bus gets its mixer-mute-override set; when no
// bus is soloed, every override clears.
func (m *Manager) SoloArbitration() {
	m.mu.RLock()
	buses := make([]*Bus, 0, len(m.buses))
	for _, b := range m.buses {
		buses = append(buses, b)
	}
	m.mu.RUnlock()

	soloActive := false
	for _, b := range buses {
		if b.Solo.Load() {
			soloActive = true
			break
		}
	}
	for _, b := range buses {
		if b.ID == m.masterID {
			continue
		}
		b.soloOverrideMute.Store(soloActive && !b.Solo.Load())
	}
}

// ProcessPass drives one block through every bus in topological order,
// summing declared inputs and routing each bus's output into its
// destinations' accumulators (§4.H). Returns the master bus's output
// buffer for this block.
func (m *Manager) ProcessPass(inputs map[BusID]*dawcore.Buffer, blockStartSamples int64, nFrames int) *dawcore.Buffer {
	m.mu.RLock()
	order := append([]BusID(nil), m.order...)
	busesByID := make(map[BusID]*Bus, len(m.buses))
	for id, b := range m.buses {
		busesByID[id] = b
	}
	scratch := m.scratch
	m.mu.RUnlock()

	accum := make(map[BusID]*dawcore.Buffer, len(busesByID))
	for id, b := range busesByID {
		buf := scratch[id]
		buf.EnsureFrames(nFrames)
		buf.Clear()
		if in, ok := inputs[id]; ok {
			buf.AddFrom(in, 1.0)
		}
		accum[id] = buf
	}

	var out *dawcore.Buffer
	outputs := make(map[BusID]*dawcore.Buffer, len(busesByID))

	for _, id := range order {
		b, ok := busesByID[id]
		if !ok {
			continue
		}
		in := accum[id]
		busOut := outputs[id]
		if busOut == nil {
			busOut = dawcore.NewBuffer(b.Channels, nFrames)
			outputs[id] = busOut
		} else {
			busOut.EnsureFrames(nFrames)
		}
		b.Process(in, busOut, blockStartSamples, nFrames)

		for _, dest := range b.Outputs() {
			if !dest.Enabled {
				continue
			}
			target, isBusEdge := m.busEdgeTarget(dest)
			if !isBusEdge {
				continue
			}
			destAccum, ok := accum[target]
			if !ok {
				continue
			}
			destAccum.EnsureFrames(nFrames)
			left, right := dawcore.EqualPowerPan(dest.SendPan)
			if destAccum.Channels() == 2 && busOut.Channels() == 2 {
				for f := 0; f < nFrames; f++ {
					destAccum.Set(0, f, destAccum.At(0, f)+busOut.At(0, f)*float32(dest.SendLevel*left))
					destAccum.Set(1, f, destAccum.At(1, f)+busOut.At(1, f)*float32(dest.SendLevel*right))
				}
			} else {
				destAccum.AddFrom(busOut, float32(dest.SendLevel))
			}
		}

		if id == m.masterID {
			out = busOut
		}
	}

	return out
}
