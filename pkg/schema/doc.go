/*
Package schema defines the declarative bot-definition format consumed by
the graph compiler: intents, entities, dialog nodes with slot-filling
pipelines, and RPC trigger declarations.

Definitions are plain data. Loading decodes YAML and runs semantic
validation (unique labels and slot names, known resume policies, sane RPC
declarations); structural graph checks such as jump-target resolution
happen later, in the graph package.
*/
package schema
