package runtime_test

import (
	"context"
	"testing"

	"github.com/maxbot-ai/dialogtree/internal/runtime"
	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlots_HappyPath(t *testing.T) {
	e := newEngine(t, reservationDef())
	ctx := context.Background()
	sess := domain.NewSession("s1")

	out, err := e.ProcessTurn(ctx, sess, turn("a table please", []string{"reservation"}, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"On which date?"}, out.Texts)
	assert.Equal(t, "date", out.Session.ActivePath.Slot)

	out, err = e.ProcessTurn(ctx, out.Session,
		turn("tomorrow", nil, domain.Entities{"date": date("2026-08-31")}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Great, 2026-08-31.", "At what time?"}, out.Texts)
	assert.Equal(t, "time", out.Session.ActivePath.Slot)

	out, err = e.ProcessTurn(ctx, out.Session,
		turn("at 18:30", nil, domain.Entities{"time": clock("18:30")}))
	require.NoError(t, err)
	assert.Equal(t, []string{"How many guests?"}, out.Texts)

	out, err = e.ProcessTurn(ctx, out.Session,
		turn("four of us", nil, domain.Entities{"number": number(4)}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Booked a table for 4 on 2026-08-31 at 18:30."}, out.Texts)
	assert.Nil(t, out.Session.ActivePath, "flow completed")
}

func TestSlots_OutOfOrderFill(t *testing.T) {
	e := newEngine(t, reservationDef())
	sess := domain.NewSession("s1")

	// Date and guest count arrive in one utterance. The pending prompt
	// must target the first slot still missing, not the declared order.
	out, err := e.ProcessTurn(context.Background(), sess,
		turn("tomorrow for four", []string{"reservation"}, domain.Entities{
			"date":   date("2026-08-31"),
			"number": number(4),
		}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Great, 2026-08-31.", "At what time?"}, out.Texts)
	assert.Equal(t, "time", out.Session.ActivePath.Slot)
	assert.Equal(t, float64(4), out.Session.Slots["guests"])

	out, err = e.ProcessTurn(context.Background(), out.Session,
		turn("19:00", nil, domain.Entities{"time": clock("19:00")}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Booked a table for 4 on 2026-08-31 at 19:00."}, out.Texts)
}

func TestSlots_RetriesAndDefault(t *testing.T) {
	e := newEngine(t, reservationDef())
	ctx := context.Background()

	out, err := e.ProcessTurn(ctx, domain.NewSession("s1"),
		turn("book a table", []string{"reservation"}, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"On which date?"}, out.Texts)

	// Two failed answers: not_found hint plus the prompt again.
	for i := 1; i <= 2; i++ {
		out, err = e.ProcessTurn(ctx, out.Session, turn("no idea", nil, nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"Please give a date like 2026-09-01.", "On which date?"}, out.Texts)
		assert.Equal(t, i, out.Session.Retries["date"])
	}

	// Third failure trips the retry guard: the slot is defaulted and the
	// pipeline moves on.
	out, err = e.ProcessTurn(ctx, out.Session, turn("still no idea", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"Defaulting to today.", "At what time?"}, out.Texts)
	assert.Equal(t, "2026-08-30", out.Session.Slots["date"])
	assert.Equal(t, "time", out.Session.ActivePath.Slot)
}

func TestSlots_ListenAgainRejectsValue(t *testing.T) {
	e := newEngine(t, reservationDef())
	ctx := context.Background()
	reservation, _ := e.Graph().Resolve("reservation")
	sess := domain.NewSession("s1")
	sess.Slots["date"] = "2026-08-31"
	sess.ActivePath = &domain.NodePath{Node: reservation, Slot: "time"}

	out, err := e.ProcessTurn(ctx, sess,
		turn("3 in the morning", nil, domain.Entities{"time": clock("03:00")}))
	require.NoError(t, err)

	// The found branch rejected the value: slot stays empty, one retry is
	// counted, and the same prompt is asked again.
	assert.Equal(t, []string{"We are closed at night.", "At what time?"}, out.Texts)
	_, filled := out.Session.Slots["time"]
	assert.False(t, filled)
	assert.Equal(t, 1, out.Session.Retries["time"])
	assert.Equal(t, "time", out.Session.ActivePath.Slot)
}

func TestSlots_RevisionReplace(t *testing.T) {
	// The guests slot has no found branch, so a changed value follows the
	// engine revision policy. Replace is the default.
	e := newEngine(t, reservationDef())
	ctx := context.Background()
	reservation, _ := e.Graph().Resolve("reservation")
	sess := domain.NewSession("s1")
	sess.Slots["date"] = "2026-08-31"
	sess.Slots["time"] = "18:30"
	sess.Slots["guests"] = float64(4)
	sess.ActivePath = &domain.NodePath{Node: reservation, Slot: "guests"}

	out, err := e.ProcessTurn(ctx, sess,
		turn("make it six", nil, domain.Entities{"number": number(6)}))
	require.NoError(t, err)
	assert.Equal(t, float64(6), out.Session.Slots["guests"])
	assert.Equal(t, []string{"Booked a table for 6 on 2026-08-31 at 18:30."}, out.Texts)
}

func TestSlots_RevisionReset(t *testing.T) {
	e := newEngine(t, reservationDef(), runtime.WithRevisionPolicy(runtime.RevisionReset))
	ctx := context.Background()
	reservation, _ := e.Graph().Resolve("reservation")
	sess := domain.NewSession("s1")
	sess.Slots["date"] = "2026-08-31"
	sess.Slots["time"] = "18:30"
	sess.Slots["guests"] = float64(4)
	sess.ActivePath = &domain.NodePath{Node: reservation, Slot: "guests"}

	out, err := e.ProcessTurn(ctx, sess,
		turn("make it six", nil, domain.Entities{"number": number(6)}))
	require.NoError(t, err)

	// Reset empties the slot and asks for it afresh.
	_, filled := out.Session.Slots["guests"]
	assert.False(t, filled)
	assert.Equal(t, []string{"How many guests?"}, out.Texts)
	assert.Equal(t, "guests", out.Session.ActivePath.Slot)
}

func TestSlots_RevisionThroughFound(t *testing.T) {
	// The date slot has a found branch: a changed value is reported
	// through it with previous_value and current_value in scope.
	def := reservationDef()
	def.Dialog[0].SlotFilling[0].Found = "Changed from {{ previous_value }} to {{ current_value }}."
	e := newEngine(t, def)
	reservation, _ := e.Graph().Resolve("reservation")
	sess := domain.NewSession("s1")
	sess.Slots["date"] = "2026-08-31"
	sess.ActivePath = &domain.NodePath{Node: reservation, Slot: "time"}

	out, err := e.ProcessTurn(context.Background(), sess,
		turn("actually september first", nil, domain.Entities{"date": date("2026-09-01")}))
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01", out.Session.Slots["date"])
	assert.Equal(t, []string{"Changed from 2026-08-31 to 2026-09-01.", "At what time?"}, out.Texts)
}

func TestSlots_RespondAsParent(t *testing.T) {
	def := &schema.Definition{
		Name: "status",
		Dialog: []schema.NodeDef{
			{
				Condition: "intents.track",
				SlotFilling: []schema.SlotDef{
					{
						Name:     "order_id",
						CheckFor: "entities.order",
						Prompt:   "Which order?",
						Found:    `<if cond="slots.order_id == 'R-0000'"><response/></if>`,
					},
					{
						Name:     "carrier",
						CheckFor: "entities.carrier",
						Prompt:   "Which carrier?",
					},
				},
				Response: "Order {{ slots.order_id }} is on its way.",
			},
		},
	}
	e := newEngine(t, def)

	out, err := e.ProcessTurn(context.Background(), domain.NewSession("s1"),
		turn("track R-0000", []string{"track"}, domain.Entities{
			"order": {{Literal: "R-0000", Kind: domain.KindRegex, Value: "R-0000"}},
		}))
	require.NoError(t, err)

	// The response directive short-circuits past the remaining slots.
	assert.Equal(t, []string{"Order R-0000 is on its way."}, out.Texts)
	assert.Nil(t, out.Session.ActivePath)
}

func TestSlots_HandlerRespondAsParent(t *testing.T) {
	def := &schema.Definition{
		Name: "status",
		Dialog: []schema.NodeDef{
			{
				Condition: "intents.order",
				Label:     "order",
				SlotFilling: []schema.SlotDef{
					{
						Name:     "item",
						CheckFor: "entities.item",
						Prompt:   "What would you like?",
					},
				},
				SlotHandlers: []schema.HandlerDef{
					{Condition: "intents.recap", Response: "Checking status.<response/>"},
				},
				Response: "Your order is on its way.",
			},
		},
	}
	e := newEngine(t, def)
	order, _ := e.Graph().Resolve("order")
	sess := domain.NewSession("s1")
	sess.ActivePath = &domain.NodePath{Node: order, Slot: "item"}

	out, err := e.ProcessTurn(context.Background(), sess,
		turn("where is my order", []string{"recap"}, nil))
	require.NoError(t, err)

	// The handler's response directive renders the owning node's
	// top-level response; the pending slot keeps waiting for its answer.
	assert.Equal(t, []string{"Checking status.", "Your order is on its way."}, out.Texts)
	require.NotNil(t, out.Session.ActivePath)
	assert.Equal(t, "item", out.Session.ActivePath.Slot)
	assert.Zero(t, out.Session.Retries["item"], "a handled turn is not a failed answer")
}
