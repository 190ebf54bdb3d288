// Package questionnaire runs the goal-extraction interview: a multi-turn chat
// that ends when the model replies with CompletionMarker followed by the
// goals JSON. Turns are strictly sequential.
package questionnaire
