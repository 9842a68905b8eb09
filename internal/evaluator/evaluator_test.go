package evaluator

import (
	"context"
	"testing"

	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScope() ports.Scope {
	return ports.Scope{
		"text": "book a table in gdansk tomorrow",
		"intents": domain.Intents{
			"reservation": true,
		},
		"entities": domain.Entities{
			"date": {{Literal: "tomorrow", Kind: domain.KindDate, Value: "2026-08-31"}},
			"number": {
				{Literal: "4", Kind: domain.KindNumber, Value: float64(4)},
				{Literal: "2", Kind: domain.KindNumber, Value: float64(2)},
			},
		},
		"slots": map[string]any{
			"city":   "gdansk",
			"guests": float64(4),
		},
		"retries": map[string]int{
			"date": 2,
		},
		"rpc": map[string]any{
			"method": "confirm_reservation",
			"params": map[string]any{"reservation_id": "R-1234"},
		},
	}
}

func eval(t *testing.T, expr string) any {
	t.Helper()
	v, err := New().Evaluate(context.Background(), expr, testScope())
	require.NoError(t, err)
	return v
}

func TestEvaluate_Literals(t *testing.T) {
	assert.Equal(t, true, eval(t, "true"))
	assert.Equal(t, true, eval(t, "anything_else"))
	assert.Equal(t, false, eval(t, "false"))
	assert.Equal(t, float64(7), eval(t, "7"))
	assert.Equal(t, "hello", eval(t, "'hello'"))
	assert.Nil(t, eval(t, ""))
}

func TestEvaluate_Paths(t *testing.T) {
	assert.Equal(t, true, eval(t, "intents.reservation"))
	assert.Equal(t, false, eval(t, "intents.exit"))
	assert.Equal(t, "gdansk", eval(t, "slots.city"))
	assert.Nil(t, eval(t, "slots.missing"))
	assert.Equal(t, 2, eval(t, "retries.date"))
	assert.Equal(t, "confirm_reservation", eval(t, "rpc.method"))
	assert.Equal(t, "R-1234", eval(t, "rpc.params.reservation_id"))
}

func TestEvaluate_Entities(t *testing.T) {
	// A bare entity path yields the first typed value.
	assert.Equal(t, "2026-08-31", eval(t, "entities.date"))
	assert.Equal(t, float64(4), eval(t, "entities.number"))
	assert.Nil(t, eval(t, "entities.city"))

	// Subfields of the first match stay addressable.
	assert.Equal(t, "tomorrow", eval(t, "entities.date.literal"))
	assert.Equal(t, "date", eval(t, "entities.date.kind"))
	assert.Equal(t, "2026-08-31", eval(t, "entities.date.value"))
}

func TestEvaluate_Comparisons(t *testing.T) {
	assert.Equal(t, true, eval(t, "slots.guests > 2"))
	assert.Equal(t, false, eval(t, "slots.guests < 2"))
	assert.Equal(t, true, eval(t, "slots.guests >= 4"))
	assert.Equal(t, true, eval(t, "slots.city == 'gdansk'"))
	assert.Equal(t, true, eval(t, "slots.city != 'sopot'"))
	assert.Equal(t, true, eval(t, "retries.date > 1"))
	assert.Equal(t, false, eval(t, "retries.date > 2"))
	assert.Equal(t, true, eval(t, "entities.number == 4"))
	assert.Equal(t, true, eval(t, "rpc.method == 'confirm_reservation'"))
}

func TestEvaluate_Connectives(t *testing.T) {
	assert.Equal(t, true, eval(t, "intents.reservation && entities.date"))
	assert.Equal(t, false, eval(t, "intents.reservation && intents.exit"))
	assert.Equal(t, true, eval(t, "intents.exit || entities.date"))
	assert.Equal(t, false, eval(t, "intents.exit || slots.missing"))
	assert.Equal(t, true, eval(t, "!intents.exit"))
	assert.Equal(t, false, eval(t, "!intents.reservation"))
	assert.Equal(t, true, eval(t, "intents.exit || slots.guests > 3 && slots.city == 'gdansk'"))
}

func TestEvaluate_QuotedConnectivesIgnored(t *testing.T) {
	assert.Equal(t, false, eval(t, "slots.city == 'a && b'"))
	assert.Equal(t, true, eval(t, "slots.city != 'x || y'"))
}

func TestEvaluate_Malformed(t *testing.T) {
	_, err := New().Evaluate(context.Background(), "slots.guests > 'four' >", testScope())
	assert.Error(t, err)

	_, err = New().Evaluate(context.Background(), "@@bogus", testScope())
	assert.Error(t, err)
}

func TestTruthy(t *testing.T) {
	assert.False(t, ports.Truthy(nil))
	assert.False(t, ports.Truthy(false))
	assert.False(t, ports.Truthy(""))
	assert.False(t, ports.Truthy(float64(0)))
	assert.True(t, ports.Truthy(true))
	assert.True(t, ports.Truthy("x"))
	assert.True(t, ports.Truthy(float64(1)))
	assert.True(t, ports.Truthy([]domain.EntityMatch{{Value: "v"}}))
	assert.False(t, ports.Truthy([]domain.EntityMatch{}))
}
