package work

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentProfile_MeetsMinimums(t *testing.T) {
	p := &AgentProfile{ID: "dev", Skills: map[string]int{"go": 5, "sql": 3}}

	assert.True(t, p.MeetsMinimums(nil))
	assert.True(t, p.MeetsMinimums(map[string]int{"go": 5}))
	assert.False(t, p.MeetsMinimums(map[string]int{"go": 6}))
	assert.False(t, p.MeetsMinimums(map[string]int{"rust": 1}), "missing skill counts as zero")
}

func TestAgentProfile_GrowSkillsCapped(t *testing.T) {
	p := &AgentProfile{ID: "dev", Skills: map[string]int{"go": 9, "sql": 4}}
	p.GrowSkills(map[string]int{"go": 1, "sql": 1, "ts": 1}, 2)

	assert.Equal(t, MaxSkillLevel, p.Skills["go"])
	assert.Equal(t, 6, p.Skills["sql"])
	assert.Equal(t, 2, p.Skills["ts"], "new skills start from zero")
}

func TestWindow_Contains(t *testing.T) {
	w := Window{Start: "09:00", End: "17:00"}
	assert.True(t, w.Contains("09:00"))
	assert.True(t, w.Contains("12:30"))
	assert.False(t, w.Contains("17:30"))
	assert.True(t, Window{}.Contains("03:00"), "an unset window means always available")
}

func TestRegistry_RegisterAndOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&AgentProfile{ID: "a"}))
	require.NoError(t, r.Register(&AgentProfile{ID: "b"}))
	require.Error(t, r.Register(&AgentProfile{ID: "a"}), "duplicate identity is rejected")

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, 0, list[0].Seq)
	assert.Equal(t, 1, list[1].Seq)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_RehydrateKeepsSlot(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&AgentProfile{ID: "a"}))
	require.NoError(t, r.Register(&AgentProfile{ID: "b"}))

	conflict := r.Rehydrate(&AgentProfile{ID: "a", Role: "restored"})
	require.NotNil(t, conflict)
	assert.Equal(t, "a", conflict.AgentID)

	live, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "restored", live.Role)
	assert.Equal(t, 0, live.Seq, "the original registration slot survives the overwrite")

	assert.Nil(t, r.Rehydrate(&AgentProfile{ID: "c"}))
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_SuspendActivate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&AgentProfile{ID: "a"}))

	require.NoError(t, r.Suspend("a"))
	p, _ := r.Get("a")
	assert.True(t, p.Suspended)

	require.NoError(t, r.Activate("a"))
	assert.False(t, p.Suspended)

	assert.Error(t, r.Suspend("ghost"))
}
