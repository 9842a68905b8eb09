package dsl_test

import (
	"context"
	"testing"

	"github.com/maxbot-ai/dialogtree"
	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/dsl"
	"github.com/maxbot-ai/dialogtree/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_FullDefinition(t *testing.T) {
	b := dsl.New("restaurant")
	b.Intent("reservation", "book a table", "i want to reserve")
	b.Intent("exit", "never mind")
	b.Entity("city").
		Value("gdansk", "gdansk", "danzig").
		Pattern("order_id", "R-[0-9]{4}")

	node := b.Node("intents.reservation").Label("reservation")
	node.Slot("date", "entities.date").
		Prompt("On which date?").
		Found("Great, {{ slots.date }}.").
		NotFound("Please give a date.")
	node.Slot("guests", "entities.number").Prompt("How many guests?")
	node.Handler("intents.exit").JumpTo("goodbye")
	node.Response("Booked for {{ slots.guests }} on {{ slots.date }}.")

	help := b.Node("intents.complaint").NeverReturn()
	help.Response("Sorry to hear that.")

	b.Target("goodbye").Response("Goodbye!")
	b.RPC("confirm").Param("reservation_id", true).Param("note", false)

	def, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "restaurant", def.Name)
	require.Len(t, def.Dialog, 3)
	assert.Equal(t, "reservation", def.Dialog[0].Label)
	require.Len(t, def.Dialog[0].SlotFilling, 2)
	assert.Equal(t, "Great, {{ slots.date }}.", def.Dialog[0].SlotFilling[0].Found)
	assert.Equal(t, "How many guests?", def.Dialog[0].SlotFilling[1].Prompt)
	require.Len(t, def.Dialog[0].SlotHandlers, 1)
	assert.Equal(t, "goodbye", def.Dialog[0].SlotHandlers[0].JumpTo)
	assert.Equal(t, string(domain.ResumeNever), def.Dialog[1].Settings["after_digression"])
	assert.Equal(t, "goodbye", def.Dialog[2].Label)
	require.Len(t, def.Entities, 1)
	assert.Equal(t, []string{"gdansk", "danzig"}, def.Entities[0].Values[0].Phrases)
	require.Len(t, def.RPC, 1)
	assert.True(t, def.RPC[0].Params[0].Required)
	assert.False(t, def.RPC[0].Params[1].Required)
}

func TestBuilder_SlotChainSurvivesLaterSlots(t *testing.T) {
	b := dsl.New("order")
	node := b.Node("intents.order")
	first := node.Slot("item", "entities.item")
	node.Slot("qty", "entities.number").Prompt("How many?")
	// Configuring the first slot after the list grew must still land on
	// the right entry.
	first.Prompt("Which item?")
	node.Response("Done.")

	def, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "Which item?", def.Dialog[0].SlotFilling[0].Prompt)
	assert.Equal(t, "How many?", def.Dialog[0].SlotFilling[1].Prompt)
}

func TestBuilder_Followups(t *testing.T) {
	b := dsl.New("coffee")
	node := b.Node("intents.order_coffee").Response("Espresso or filter?")
	node.Followup("entities.drink == 'espresso'").Response("One espresso.")
	deeper := node.Followup("entities.drink == 'filter'").Response("One filter.")
	deeper.Followup("intents.confirm").Response("Coming up.")

	def, err := b.Build()
	require.NoError(t, err)
	require.Len(t, def.Dialog[0].Followup, 2)
	assert.Equal(t, "One espresso.", def.Dialog[0].Followup[0].Response)
	require.Len(t, def.Dialog[0].Followup[1].Followup, 1)
	assert.Equal(t, "Coming up.", def.Dialog[0].Followup[1].Followup[0].Response)
}

func TestBuilder_ValidationFailures(t *testing.T) {
	b := dsl.New("broken")
	b.Node("intents.order").Slot("item", "")

	_, err := b.Build()
	require.Error(t, err)
	issues := schema.ValidationErrors(err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Error(), "check_for")
}

func TestBuilder_DrivesABot(t *testing.T) {
	b := dsl.New("echo")
	b.Node("intents.greet").Response("Hello there!")
	b.Node("anything_else").Response("Hm?")

	def, err := b.Build()
	require.NoError(t, err)
	bot, err := dialogtree.New(def)
	require.NoError(t, err)

	out, err := bot.ProcessTurn(context.Background(), domain.TurnInput{
		SessionKey: "s1",
		Intents:    domain.Intents{"greet": true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello there!"}, out.Texts)
}
