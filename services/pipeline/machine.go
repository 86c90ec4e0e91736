// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("handbookrag.pipeline")

// Pipeline sequences the stages of one request and applies the conditional
// routing after verification.
//
// # Description
//
// A Pipeline is built once from the four capability interfaces and reused
// across requests. Each Run creates a fresh RequestState, owns it
// exclusively for the duration of the request, and discards it on return;
// nothing inside the pipeline retains a reference afterwards. Stages
// execute strictly sequentially, each stage's output being the next stage's
// only input, and the run is abortable between any two stages via the
// context.
//
// # Error Semantics
//
// Recoverable conditions (empty retrieval, empty context, degenerate
// rewrite, malformed verifier verdict) are absorbed with documented
// fallbacks and still produce a valid low-confidence response.
// Infrastructure failures (embedding/generation/corpus unreachable, stage
// timeout) abort the request with a *StageError so callers can distinguish
// "answered without confidence" from "could not answer".
//
// # Thread Safety
//
// Safe for concurrent use; concurrent runs share only the read-only
// corpus snapshot and configuration.
type Pipeline struct {
	understander *QueryUnderstander
	rewriter     *QueryRewriter
	retriever    *HybridRetriever
	expander     *MultiHopExpander
	reranker     *Reranker
	compressor   *Compressor
	answerer     *AnswerGenerator
	verifier     Verifier
	action       *ActionGenerator
	cfg          Config
}

// New assembles a Pipeline from the capability interfaces.
//
// The default verifier is the embedding-similarity verifier; use
// WithVerifier to substitute the LLM-judged variant.
func New(embedder Embedder, scorer RelevanceScorer, generator Generator, corpus CorpusIndex, cfg Config) *Pipeline {
	cfg = validateConfig(cfg)
	retriever := NewHybridRetriever(embedder, corpus, cfg)
	return &Pipeline{
		understander: NewQueryUnderstander(embedder, cfg),
		rewriter:     NewQueryRewriter(generator),
		retriever:    retriever,
		expander:     NewMultiHopExpander(retriever, cfg),
		reranker:     NewReranker(scorer),
		compressor:   NewCompressor(embedder, cfg),
		answerer:     NewAnswerGenerator(generator),
		verifier:     NewSimilarityVerifier(embedder, cfg),
		action:       NewActionGenerator(generator),
		cfg:          cfg,
	}
}

// WithVerifier substitutes the verifier implementation and returns the
// pipeline for chaining.
func (p *Pipeline) WithVerifier(v Verifier) *Pipeline {
	p.verifier = v
	return p
}

// Run processes one query through the full state machine.
//
// The returned RequestState carries the answer, verification, optional
// action output, and the per-stage stream log. A non-nil error is always a
// *StageError or a context error; low-confidence outcomes are not errors.
func (p *Pipeline) Run(ctx context.Context, query string, history []Turn) (*RequestState, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.Run")
	defer span.End()
	span.SetAttributes(attribute.Int("query_length", len(query)))

	st := &RequestState{
		Query:      query,
		History:    history,
		MaxRetries: p.cfg.MaxRetries,
	}

	current := StateUnderstand
	for current != StateEnd {
		// Abort between stages on client disconnect or deadline. No
		// stage mutates shared state, so stopping here is always safe.
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "canceled between stages")
			return nil, err
		}

		if err := p.runStage(ctx, current, st); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, fmt.Sprintf("stage %s failed", current))
			return nil, stageFailure(current, err)
		}

		current = NextState(current, st.Verification, p.cfg.GroundedThreshold,
			st.Understanding.NeedsAction, st.RetryCount, st.MaxRetries)
	}

	span.SetAttributes(
		attribute.Int("confidence", st.Verification.Confidence),
		attribute.Bool("is_grounded", st.Verification.IsGrounded),
		attribute.Int("retry_count", st.RetryCount),
	)
	return st, nil
}

// runStage executes one stage body against the request state, bounded by
// the per-stage timeout. A stage timeout is a hard failure of the request,
// not something the semantic retry loop re-attempts.
func (p *Pipeline) runStage(ctx context.Context, stage State, st *RequestState) error {
	if p.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.StageTimeout)
		defer cancel()
	}
	ctx, span := tracer.Start(ctx, "Pipeline."+string(stage))
	defer span.End()

	switch stage {
	case StateUnderstand:
		st.Understanding = p.understander.Understand(ctx, st.Query)
		st.log("understand: intent=%s strategy=%s needs_action=%t",
			st.Understanding.Intent, st.Understanding.Strategy, st.Understanding.NeedsAction)

	case StateRewrite:
		st.RewrittenQuery = p.rewriter.Rewrite(ctx, st.Query, st.Understanding.Intent)
		st.log("rewrite: %q", st.RewrittenQuery)

	case StateRetrieve:
		docs, err := p.retriever.Retrieve(ctx, st.RewrittenQuery, p.cfg.KDense, p.cfg.KLexical)
		if err != nil {
			return err
		}
		st.RetrievedDocs = docs
		st.log("retrieve: %d candidates", len(docs))

	case StateMultiHop:
		if st.Understanding.Strategy != MultiHop {
			st.log("multihop: skipped")
			return nil
		}
		docs, err := p.expander.Expand(ctx, st.RewrittenQuery, st.RetrievedDocs)
		if err != nil {
			return err
		}
		st.RetrievedDocs = docs
		st.log("multihop: %d candidates after expansion", len(docs))

	case StateRerank:
		if err := p.rerankAndFilter(ctx, st, st.RewrittenQuery, st.RetrievedDocs); err != nil {
			return err
		}
		st.log("rerank: %d candidates, primary handbook %q", len(st.RerankedDocs), st.PrimaryHandbook)

	case StateCompress:
		compressed, err := p.compressor.Compress(ctx, st.Query, st.RerankedDocs)
		if err != nil {
			return err
		}
		st.CompressedContext = compressed
		st.log("compress: %d context bytes", len(compressed))

	case StateAnswer:
		answer, err := p.answerer.Answer(ctx, st.Query, st.CompressedContext, st.RerankedDocs, st.History)
		if err != nil {
			return err
		}
		st.Answer = answer
		st.log("answer: %d bytes", len(answer))

	case StateVerify:
		verification, err := p.verifier.Verify(ctx, st.Query, st.Answer, st.CompressedContext)
		if err != nil {
			return err
		}
		st.Verification = verification
		st.log("verify: confidence=%d grounded=%t issues=%v",
			verification.Confidence, verification.IsGrounded, verification.Issues)

	case StateRetry:
		if err := p.retry(ctx, st); err != nil {
			return err
		}
		st.log("retry: attempt %d of %d", st.RetryCount, st.MaxRetries)

	case StateAction:
		output, err := p.action.Generate(ctx, st.Query, st.CompressedContext)
		if err != nil {
			return err
		}
		st.ActionOutput = output
		st.log("action: %d bytes", len(output))

	default:
		return fmt.Errorf("unknown pipeline state %q", stage)
	}
	return nil
}

// rerankAndFilter reranks docs for the query, resolves the primary
// handbook among the ranked candidates, and drops cross-handbook
// contamination before compression sees the result.
func (p *Pipeline) rerankAndFilter(ctx context.Context, st *RequestState, query string, docs []Document) error {
	ranked, err := p.reranker.Rerank(ctx, query, docs, p.cfg.RerankTopN)
	if err != nil {
		return err
	}
	primary, distribution := ResolvePrimaryHandbook(ranked)
	st.PrimaryHandbook = primary
	st.RerankedDocs = FilterByHandbook(ranked, primary)
	if len(distribution) > 1 {
		slog.Debug("Filtered cross-handbook candidates",
			"primary", primary, "distribution", distribution)
	}
	return nil
}

// retry re-runs retrieval with a boosted query and wider k, then reranks,
// compresses, and regenerates the answer, replacing the corresponding
// request state fields. The routing rule re-enters verify afterwards; the
// strict retry_count < max_retries guard there is what terminates the
// cycle.
func (p *Pipeline) retry(ctx context.Context, st *RequestState) error {
	st.RetryCount++
	boosted := st.Query + " " + p.cfg.RetryBoostSuffix
	slog.Info("Retrying with boosted query",
		"retryCount", st.RetryCount, "maxRetries", st.MaxRetries)

	docs, err := p.retriever.Retrieve(ctx, boosted, p.cfg.RetryK, p.cfg.RetryK)
	if err != nil {
		return err
	}
	if err := p.rerankAndFilter(ctx, st, boosted, docs); err != nil {
		return err
	}
	compressed, err := p.compressor.Compress(ctx, st.Query, st.RerankedDocs)
	if err != nil {
		return err
	}
	st.CompressedContext = compressed

	answer, err := p.answerer.Answer(ctx, st.Query, st.CompressedContext, st.RerankedDocs, st.History)
	if err != nil {
		return err
	}
	st.Answer = answer
	return nil
}

// log appends a formatted entry to the request's stream log.
func (st *RequestState) log(format string, args ...any) {
	st.StreamLog = append(st.StreamLog, fmt.Sprintf(format, args...))
}
