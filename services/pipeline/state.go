// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

// State labels a node of the pipeline state machine.
type State string

// Pipeline states. StateEnd is the only terminal state; it is reached from
// verify directly or through action.
const (
	StateUnderstand State = "understand"
	StateRewrite    State = "rewrite"
	StateRetrieve   State = "retrieve"
	StateMultiHop   State = "multihop"
	StateRerank     State = "rerank"
	StateCompress   State = "compress"
	StateAnswer     State = "answer"
	StateVerify     State = "verify"
	StateRetry      State = "retry"
	StateAction     State = "action"
	StateEnd        State = "end"
)

// RetrievalStrategy selects single- or two-hop retrieval.
type RetrievalStrategy string

const (
	SingleHop RetrievalStrategy = "single_hop"
	MultiHop  RetrievalStrategy = "multi_hop"
)

// Understanding is the derived classification of a query. It is created
// once per request by the understand stage and never mutated afterwards.
type Understanding struct {
	Intent      string            `json:"intent"`
	Strategy    RetrievalStrategy `json:"retrieval_strategy"`
	NeedsAction bool              `json:"needs_action"`
}

// Turn is one prior conversation exchange supplied to answer generation.
type Turn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// RequestState is the mutable record threaded through one pipeline run.
//
// The running Pipeline owns it exclusively for the duration of the request;
// no stage retains a reference after returning. It is discarded at request
// completion; only the answer/query pair outlives it, appended to
// conversation history by the caller.
type RequestState struct {
	// Query is the user's question, immutable once received.
	Query string

	// History is the prior conversation supplied at entry.
	History []Turn

	Understanding  Understanding
	RewrittenQuery string

	// RetrievedDocs holds the current retrieval result. Each stage that
	// touches it replaces the slice rather than editing in place.
	RetrievedDocs []Document

	// RerankedDocs is the reranked, handbook-filtered candidate list.
	RerankedDocs []Document

	// PrimaryHandbook is the resolved dominant source collection.
	PrimaryHandbook string

	CompressedContext string
	Answer            string
	Verification      Verification

	RetryCount int
	MaxRetries int

	// ActionOutput is the deliverable text, set only when the query
	// requested one and routing reached the action state.
	ActionOutput string

	// StreamLog records one entry per executed stage, in order.
	StreamLog []string
}

// NextState is the routing function evaluated after each state.
//
// It is pure: given the completed state and the verification outcome it
// returns the next state label, so routing is testable in isolation from
// the stage bodies. The only conditional node is verify:
//
//   - confidence below the grounded threshold AND retryCount strictly below
//     maxRetries routes to retry (the strict inequality is the sole
//     termination guard of the retry cycle);
//   - otherwise a query that requested a deliverable routes to action;
//   - otherwise end.
func NextState(current State, v Verification, groundedThreshold int, needsAction bool, retryCount, maxRetries int) State {
	switch current {
	case StateUnderstand:
		return StateRewrite
	case StateRewrite:
		return StateRetrieve
	case StateRetrieve:
		return StateMultiHop
	case StateMultiHop:
		return StateRerank
	case StateRerank:
		return StateCompress
	case StateCompress:
		return StateAnswer
	case StateAnswer:
		return StateVerify
	case StateVerify:
		if v.Confidence < groundedThreshold && retryCount < maxRetries {
			return StateRetry
		}
		if needsAction {
			return StateAction
		}
		return StateEnd
	case StateRetry:
		return StateVerify
	case StateAction:
		return StateEnd
	default:
		return StateEnd
	}
}
