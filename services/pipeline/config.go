// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// IntentLabel pairs an intent name with the description text it is matched
// against. Classification embeds the query and every description and picks
// the closest one, so the descriptions should read like example questions.
type IntentLabel struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// GeneralPolicyIntent is the fallback intent used when classification is
// unavailable or inconclusive.
const GeneralPolicyIntent = "general_policy"

// Config holds the pipeline tunables.
//
// The similarity thresholds and the intent label set are empirically chosen
// and deliberately configurable rather than hardcoded; override them via a
// YAML file (see LoadConfigFile) when tuning against a new corpus.
type Config struct {
	// KDense and KLexical are the first-pass retrieval depths.
	KDense   int `yaml:"k_dense"`
	KLexical int `yaml:"k_lexical"`

	// MultiHopK is the retrieval depth for the second hop.
	MultiHopK int `yaml:"multi_hop_k"`

	// RetryK is the retrieval depth used by the bounded retry.
	RetryK int `yaml:"retry_k"`

	// RerankTopN caps the reranked candidate list.
	RerankTopN int `yaml:"rerank_top_n"`

	// CompressTopSentences caps the compressed context size.
	CompressTopSentences int `yaml:"compress_top_sentences"`

	// MinSentenceLen discards sentence fragments shorter than this many
	// characters during compression.
	MinSentenceLen int `yaml:"min_sentence_len"`

	// FallbackDocCount and FallbackExcerptLen bound the raw excerpt used
	// when sentence splitting yields nothing usable.
	FallbackDocCount   int `yaml:"fallback_doc_count"`
	FallbackExcerptLen int `yaml:"fallback_excerpt_len"`

	// WeakThreshold flags weak_grounding_similarity below this confidence.
	WeakThreshold int `yaml:"weak_threshold"`

	// GroundedThreshold gates is_grounded and the retry route.
	GroundedThreshold int `yaml:"grounded_threshold"`

	// MaxRetries bounds the verify -> retry cycle. The routing rule
	// requires retry_count strictly below this value.
	MaxRetries int `yaml:"max_retries"`

	// RetryBoostSuffix is appended to the original query on retry.
	RetryBoostSuffix string `yaml:"retry_boost_suffix"`

	// StageTimeout bounds each stage call. Zero disables the per-stage
	// timeout. A stage timeout is a hard failure of the request.
	StageTimeout time.Duration `yaml:"stage_timeout"`

	// CacheLexicalIndex keeps the lexical index across Retrieve calls
	// within the process instead of rebuilding it from a fresh corpus
	// snapshot every call. Trades staleness for latency.
	CacheLexicalIndex bool `yaml:"cache_lexical_index"`

	// Intents is the classification label set, matched in order.
	Intents []IntentLabel `yaml:"intents"`

	// MultiHopTriggers mark a query as needing two-hop retrieval.
	MultiHopTriggers []string `yaml:"multi_hop_triggers"`

	// ExpansionTriggers map first-pass document substrings to the
	// expansion term each contributes to the second-hop query.
	ExpansionTriggers []ExpansionTrigger `yaml:"expansion_triggers"`

	// ActionHints mark a query as requesting a deliverable.
	ActionHints []string `yaml:"action_hints"`
}

// ExpansionTrigger contributes Term to the second-hop query when Match
// appears in a first-pass document.
type ExpansionTrigger struct {
	Match string `yaml:"match"`
	Term  string `yaml:"term"`
}

// DefaultConfig returns the tuned defaults for the handbook corpus.
func DefaultConfig() Config {
	return Config{
		KDense:               10,
		KLexical:             10,
		MultiHopK:            8,
		RetryK:               12,
		RerankTopN:           6,
		CompressTopSentences: 18,
		MinSentenceLen:       25,
		FallbackDocCount:     3,
		FallbackExcerptLen:   600,
		WeakThreshold:        55,
		GroundedThreshold:    60,
		MaxRetries:           1,
		RetryBoostSuffix:     "handbook policy rules",
		StageTimeout:         60 * time.Second,
		Intents: []IntentLabel{
			{"leave_policy", "questions about leave, holidays, sick leave, casual leave, earned leave"},
			{"benefits", "questions about employee benefits, insurance, allowances, perks"},
			{"payroll", "questions about salary, payroll, payslip, deductions, PF, taxes"},
			{"resignation", "questions about resignation process, exit, handover, final settlement"},
			{"notice_period", "questions about notice period, serving notice, buyout"},
			{"probation", "questions about probation period, confirmation, performance review"},
			{"wfh_policy", "questions about work from home, remote work, hybrid policy"},
			{"code_of_conduct", "questions about employee behavior, discipline, ethics, harassment"},
			{"termination", "questions about termination, dismissal, misconduct, termination rules"},
			{"grievance", "questions about grievance process, complaints, reporting issues"},
			{"travel_policy", "questions about travel reimbursement, travel policy, expenses, claims"},
			{GeneralPolicyIntent, "general handbook questions"},
		},
		MultiHopTriggers: []string{
			"and", "also", "along with", "plus",
			"documents required", "eligibility", "process",
			"steps", "how to", "approval", "exception",
		},
		ExpansionTriggers: []ExpansionTrigger{
			{Match: "probation", Term: "probation"},
			{Match: "notice period", Term: "notice period"},
			{Match: "termination", Term: "termination"},
			{Match: "leave", Term: "leave policy"},
		},
		ActionHints: []string{
			"write email", "draft email", "generate email",
			"create checklist", "make checklist",
			"summarize", "summary",
			"draft", "prepare", "template",
		},
	}
}

// LoadConfigFile reads a YAML config overlay from path. Fields absent from
// the file keep their defaults.
//
// Example:
//
//	cfg, err := pipeline.LoadConfigFile(os.Getenv("PIPELINE_CONFIG"))
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read pipeline config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse pipeline config: %w", err)
	}
	return validateConfig(cfg), nil
}

// validateConfig corrects out-of-range values, logging a warning for each
// correction and falling back to the default.
func validateConfig(cfg Config) Config {
	defaults := DefaultConfig()

	if cfg.KDense < 1 {
		slog.Warn("Invalid KDense config, using default", "provided", cfg.KDense, "default", defaults.KDense)
		cfg.KDense = defaults.KDense
	}
	if cfg.KLexical < 1 {
		slog.Warn("Invalid KLexical config, using default", "provided", cfg.KLexical, "default", defaults.KLexical)
		cfg.KLexical = defaults.KLexical
	}
	if cfg.RerankTopN < 1 {
		slog.Warn("Invalid RerankTopN config, using default", "provided", cfg.RerankTopN, "default", defaults.RerankTopN)
		cfg.RerankTopN = defaults.RerankTopN
	}
	if cfg.CompressTopSentences < 1 {
		slog.Warn("Invalid CompressTopSentences config, using default",
			"provided", cfg.CompressTopSentences, "default", defaults.CompressTopSentences)
		cfg.CompressTopSentences = defaults.CompressTopSentences
	}
	if cfg.MaxRetries < 0 {
		slog.Warn("Invalid MaxRetries config, using default", "provided", cfg.MaxRetries, "default", defaults.MaxRetries)
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.WeakThreshold < 0 || cfg.WeakThreshold > 100 {
		slog.Warn("Invalid WeakThreshold config, using default", "provided", cfg.WeakThreshold, "default", defaults.WeakThreshold)
		cfg.WeakThreshold = defaults.WeakThreshold
	}
	if cfg.GroundedThreshold < 0 || cfg.GroundedThreshold > 100 {
		slog.Warn("Invalid GroundedThreshold config, using default",
			"provided", cfg.GroundedThreshold, "default", defaults.GroundedThreshold)
		cfg.GroundedThreshold = defaults.GroundedThreshold
	}
	if len(cfg.Intents) == 0 {
		slog.Warn("Empty intent label set, using defaults")
		cfg.Intents = defaults.Intents
	}
	return cfg
}
