package evaluator

import (
	"context"
	"testing"

	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, template string) ports.RenderResult {
	t.Helper()
	res, err := New().Render(context.Background(), template, testScope())
	require.NoError(t, err)
	return res
}

func TestRender_Interpolation(t *testing.T) {
	res := render(t, "A table in {{ slots.city }} for {{ slots.guests }} guests on {{ entities.date }}.")
	assert.Equal(t, "A table in gdansk for 4 guests on 2026-08-31.", res.Text)
	assert.Empty(t, res.Mutations)
	assert.Empty(t, res.Directives)
}

func TestRender_MissingPathsRenderEmpty(t *testing.T) {
	res := render(t, "Value: {{ slots.missing }}.")
	assert.Equal(t, "Value: .", res.Text)
}

func TestRender_SetAndDelete(t *testing.T) {
	res := render(t, `Noted.<set slot="city" value="sopot"/><set slot="guests" value="3"/><delete slot="date"/>`)
	assert.Equal(t, "Noted.", res.Text)
	require.Len(t, res.Mutations, 3)
	assert.Equal(t, domain.Mutation{Op: domain.MutationSet, Slot: "city", Value: "sopot"}, res.Mutations[0])
	// Numeric-looking set values coerce so comparisons stay arithmetic.
	assert.Equal(t, domain.Mutation{Op: domain.MutationSet, Slot: "guests", Value: float64(3)}, res.Mutations[1])
	assert.Equal(t, domain.Mutation{Op: domain.MutationDelete, Slot: "date"}, res.Mutations[2])
}

func TestRender_SetInterpolatesValue(t *testing.T) {
	res := render(t, `<set slot="booked_city" value="{{ slots.city }}"/>`)
	require.Len(t, res.Mutations, 1)
	assert.Equal(t, "gdansk", res.Mutations[0].Value)
}

func TestRender_ControlFlowAbortsTemplate(t *testing.T) {
	res := render(t, `Before.<listen_again/>After {{ bogus syntax here }}`)
	assert.Equal(t, "Before.", res.Text)
	require.Len(t, res.Directives, 1)
	assert.Equal(t, domain.DirectiveListenAgain, res.Directives[0].Type)
}

func TestRender_JumpTo(t *testing.T) {
	res := render(t, `Moving on.<jump_to node="checkout" transition="condition"/>`)
	require.Len(t, res.Directives, 1)
	assert.Equal(t, domain.Directive{
		Type:       domain.DirectiveJump,
		Target:     "checkout",
		Transition: domain.JumpCondition,
	}, res.Directives[0])

	res = render(t, `<jump_to node="checkout"/>`)
	require.Len(t, res.Directives, 1)
	assert.Equal(t, domain.JumpBody, res.Directives[0].Transition)
}

func TestRender_JumpToRequiresNode(t *testing.T) {
	_, err := New().Render(context.Background(), `<jump_to/>`, testScope())
	assert.Error(t, err)
}

func TestRender_EndAndRespond(t *testing.T) {
	res := render(t, `Done.<end/>`)
	require.Len(t, res.Directives, 1)
	assert.Equal(t, domain.DirectiveEnd, res.Directives[0].Type)

	res = render(t, `<response/>`)
	require.Len(t, res.Directives, 1)
	assert.Equal(t, domain.DirectiveRespond, res.Directives[0].Type)
}

func TestRender_UnknownTagsPassThrough(t *testing.T) {
	res := render(t, `Here you go. <image url="https://example.com/map.png"/>`)
	assert.Equal(t, `Here you go. <image url="https://example.com/map.png"/>`, res.Text)
	assert.Empty(t, res.Directives)
}

func TestRender_IfBlocks(t *testing.T) {
	res := render(t, `<if cond="retries.date > 1">Let me suggest tomorrow.</if><if cond="intents.exit">Never shown.</if>Pick a date.`)
	assert.Equal(t, "Let me suggest tomorrow.Pick a date.", res.Text)
}

func TestRender_IfBlockGuardsDirectives(t *testing.T) {
	res := render(t, `<if cond="retries.date > 2">Giving up.<jump_to node="help"/></if>On which date?`)
	assert.Equal(t, "On which date?", res.Text)
	assert.Empty(t, res.Directives)

	res = render(t, `<if cond="retries.date > 1">Giving up.<jump_to node="help"/></if>On which date?`)
	assert.Equal(t, "Giving up.", res.Text)
	require.Len(t, res.Directives, 1)
	assert.Equal(t, "help", res.Directives[0].Target)
}

func TestRender_InterpolationFailureAborts(t *testing.T) {
	_, err := New().Render(context.Background(), "Value {{ @@bad }}", testScope())
	assert.Error(t, err)
}
