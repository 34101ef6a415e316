package mixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/waveforge/dawcore"
	"github.com/waveforge/dawcore/dawerr"
)

func TestNewManagerCreatesMasterBus(t *testing.T) {
	m := NewManager(48000, 2)
	master := m.MasterBus()
	require.NotNil(t, master)
	assert.Equal(t, BusMaster, master.Type)
	assert.NotNil(t, master.Meter)
}

func TestManagerCreateBusRoutesToMasterByDefault(t *testing.T) {
	m := NewManager(48000, 2)
	b, err := m.CreateBus("drums", BusGroup, 2)
	require.NoError(t, err)
	require.NotNil(t, b.Meter)

	outs := b.Outputs()
	require.Len(t, outs, 1)
	assert.Equal(t, m.MasterBus().ID, outs[0].DestinationID)
}

func TestManagerCreateBusRejectsInvalidChannelCount(t *testing.T) {
	m := NewManager(48000, 2)
	_, err := m.CreateBus("bad", BusGroup, 0)
	assert.Error(t, err)
	_, err = m.CreateBus("bad", BusGroup, 99)
	assert.Error(t, err)
}

func TestManagerRemoveBusRejectsMaster(t *testing.T) {
	m := NewManager(48000, 2)
	err := m.RemoveBus(m.MasterBus().ID)
	assert.Error(t, err)
}

func TestManagerRemoveBusStripsDanglingRoutes(t *testing.T) {
	m := NewManager(48000, 2)
	a, _ := m.CreateBus("a", BusGroup, 2)
	b, _ := m.CreateBus("b", BusGroup, 2)
	require.NoError(t, m.AddRoute(a.ID, RouteDestination{Kind: DestBus, DestinationID: b.ID, SendLevel: 1, Enabled: true}))

	require.NoError(t, m.RemoveBus(b.ID))

	for _, o := range a.Outputs() {
		assert.NotEqual(t, b.ID, o.DestinationID)
	}
}

func TestManagerAddRouteRejectsDirectCycle(t *testing.T) {
	m := NewManager(48000, 2)
	a, _ := m.CreateBus("a", BusGroup, 2)
	b, _ := m.CreateBus("b", BusGroup, 2)
	require.NoError(t, m.AddRoute(a.ID, RouteDestination{Kind: DestBus, DestinationID: b.ID, SendLevel: 1, Enabled: true}))

	err := m.AddRoute(b.ID, RouteDestination{Kind: DestBus, DestinationID: a.ID, SendLevel: 1, Enabled: true})
	assert.Error(t, err)
	assert.True(t, dawerr.Is(err, dawerr.Cycle))
}

func TestManagerAddRouteRejectsSelfCycle(t *testing.T) {
	m := NewManager(48000, 2)
	a, _ := m.CreateBus("a", BusGroup, 2)
	err := m.AddRoute(a.ID, RouteDestination{Kind: DestBus, DestinationID: a.ID, SendLevel: 1, Enabled: true})
	assert.Error(t, err)
}

func TestManagerTopologicalOrderRespectsEdges(t *testing.T) {
	m := NewManager(48000, 2)
	a, _ := m.CreateBus("a", BusGroup, 2)
	b, _ := m.CreateBus("b", BusGroup, 2)
	require.NoError(t, m.AddRoute(a.ID, RouteDestination{Kind: DestBus, DestinationID: b.ID, SendLevel: 1, Enabled: true}))

	position := make(map[BusID]int, len(m.order))
	for i, id := range m.order {
		position[id] = i
	}
	assert.Less(t, position[a.ID], position[b.ID])
	assert.Less(t, position[b.ID], position[m.masterID])
}

func TestManagerSoloArbitrationMutesNonSoloedBuses(t *testing.T) {
	m := NewManager(48000, 2)
	a, _ := m.CreateBus("a", BusGroup, 2)
	b, _ := m.CreateBus("b", BusGroup, 2)
	a.Solo.Store(true)

	m.SoloArbitration()

	assert.False(t, a.soloOverrideMute.Load())
	assert.True(t, b.soloOverrideMute.Load())
	assert.False(t, m.MasterBus().soloOverrideMute.Load())

	a.Solo.Store(false)
	m.SoloArbitration()
	assert.False(t, b.soloOverrideMute.Load())
}

func TestManagerProcessPassSumsIntoMaster(t *testing.T) {
	m := NewManager(48000, 2)
	a, _ := m.CreateBus("a", BusGroup, 2)

	in := dawcore.NewBuffer(2, 32)
	fillConstant(in, 32, 0.25)

	out := m.ProcessPass(map[BusID]*dawcore.Buffer{a.ID: in}, 0, 32)

	require.NotNil(t, out)
	assert.Greater(t, float64(out.At(0, 0)), 0.0)
}

func TestManagerTopologicalOrderIsAcyclicForRandomDAGs(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := NewManager(48000, 2)
		n := rapid.IntRange(1, 6).Draw(rt, "n")
		ids := make([]BusID, n)
		for i := 0; i < n; i++ {
			b, err := m.CreateBus("b", BusGroup, 2)
			require.NoError(rt, err)
			ids[i] = b.ID
		}
		// Only allow edges from a lower-indexed bus to a higher-indexed
		// one, guaranteeing the candidate graph is already acyclic.
		for i := 0; i < n; i++ {
			if n < 2 {
				break
			}
			j := rapid.IntRange(i, n-1).Draw(rt, "j")
			if j == i {
				continue
			}
			_ = m.AddRoute(ids[i], RouteDestination{Kind: DestBus, DestinationID: ids[j], SendLevel: 1, Enabled: true})
		}

		position := make(map[BusID]int, len(m.order))
		for idx, id := range m.order {
			position[id] = idx
		}
		for _, id := range ids {
			b, ok := m.Bus(id)
			require.True(rt, ok)
			for _, o := range b.Outputs() {
				target, isBusEdge := m.busEdgeTarget(o)
				if !isBusEdge {
					continue
				}
				assert.Less(rt, position[id], position[target])
			}
		}
	})
}
