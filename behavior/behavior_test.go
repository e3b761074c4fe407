package behavior

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/crewsim/core"
)

// Interface compliance (compile-time assertion)
var _ Generator = (*MockGenerator)(nil)

func TestMockGenerator_ScriptConsumedInOrder(t *testing.T) {
	gen := NewMockGenerator()
	gen.Script("ana",
		Action{Content: "first"},
		Action{Content: "second", Conclude: true},
	)

	resp, err := gen.Generate(context.Background(), Request{Agent: "ana"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Action.Content)
	assert.False(t, resp.Action.Conclude)

	resp, err = gen.Generate(context.Background(), Request{Agent: "ana"})
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Action.Content)
	assert.True(t, resp.Action.Conclude)
}

func TestMockGenerator_EchoWithoutScript(t *testing.T) {
	gen := NewMockGenerator()
	resp, err := gen.Generate(context.Background(), Request{
		Agent:   "ben",
		Stimuli: []core.Event{core.NewStimulus("ana", "ben", "please review")},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Action.Content, "ben acknowledges")
	assert.Contains(t, resp.Action.Content, "please review")
}

func TestMockGenerator_FailFor(t *testing.T) {
	gen := NewMockGenerator()
	boom := errors.New("boom")
	gen.FailFor("flaky", boom)

	_, err := gen.Generate(context.Background(), Request{Agent: "flaky"})
	assert.ErrorIs(t, err, boom)

	_, err = gen.Generate(context.Background(), Request{Agent: "healthy"})
	assert.NoError(t, err)
}

func TestMockGenerator_DelayHonorsContext(t *testing.T) {
	gen := NewMockGenerator()
	gen.SetDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := gen.Generate(ctx, Request{Agent: "ana"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Action
	}{
		{
			name: "plain broadcast",
			text: "let's review the numbers",
			want: Action{Content: "let's review the numbers"},
		},
		{
			name: "targeted",
			text: "TO ben: can you take the UI part?",
			want: Action{Target: "ben", Content: "can you take the UI part?"},
		},
		{
			name: "conclude marker stripped",
			text: "great work everyone\nCONCLUDE",
			want: Action{Content: "great work everyone", Conclude: true},
		},
		{
			name: "targeted with conclude",
			text: "TO ana: wrap it up\nCONCLUDE",
			want: Action{Target: "ana", Content: "wrap it up", Conclude: true},
		},
		{
			name: "conclude midline is content",
			text: "we should CONCLUDE the deal",
			want: Action{Content: "we should CONCLUDE the deal"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAction(tt.text))
		})
	}
}

func TestRenderPrompt(t *testing.T) {
	system, user := RenderPrompt(Request{
		Agent: "ana",
		Role:  "backend engineer",
		Goal:  "plan the sprint",
		History: []core.Event{
			core.NewAction("ben", "", "I finished the draft"),
		},
		Stimuli: []core.Event{
			core.NewStimulus("facilitator", "", "kickoff"),
		},
	})

	assert.Contains(t, system, "ana")
	assert.Contains(t, system, "backend engineer")
	assert.Contains(t, system, "plan the sprint")
	assert.Contains(t, system, "CONCLUDE")

	assert.Contains(t, user, "ben: I finished the draft")
	assert.Contains(t, user, "facilitator: kickoff")

	_, idle := RenderPrompt(Request{Agent: "ana"})
	assert.Contains(t, idle, "It is your turn.")
}
