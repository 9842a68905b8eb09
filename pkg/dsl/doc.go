/*
Package dsl provides a fluent builder for constructing bot definitions in
Go instead of YAML. Declaration order is preserved, which matters: dialog
nodes are matched first-to-last and slots are prompted in the order they
were added.

Example usage:

	b := dsl.New("restaurant")
	b.Intent("reservation", "book a table", "i want to reserve")

	node := b.Node("intents.reservation").Label("reservation")
	node.Slot("date", "entities.date").Prompt("On which date?")
	node.Slot("guests", "entities.number").Prompt("How many guests?")
	node.Response("Booked for {{ slots.guests }} on {{ slots.date }}.")

	b.Node("anything_else").Response("I can book tables.")

	def, err := b.Build()
	if err != nil {
		// ...
	}
	bot, err := dialogtree.New(def)
*/
package dsl
