// Package agent answers natural-language container questions.
//
// A [Reasoner] turns the question into a [Plan] (which capability to run
// for which container) and later composes the answer text from the
// capability's result. [Rules] is a deterministic reasoner that needs no
// external service; [Gemini] uses function calling against the capability
// catalogue.
//
// [Service] runs the full flow: validate the query, consult the answer
// cache, plan, dispatch, compose, sanitize into a container.Record, cache
// the answer and append a query log.
package agent
