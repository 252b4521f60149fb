// Package core defines the shared domain types of docuchat: conversation
// messages, turn results, the durable ConversationStore contract and the
// error taxonomy used across the agent loop, the tool layer and the service
// registry. Higher-level packages depend on core; core depends on nothing
// but the standard library.
package core
