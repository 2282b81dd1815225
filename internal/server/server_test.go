package server

import (
	"context"
	"testing"

	"boundedclosure/internal/closure/resolve"
	"boundedclosure/internal/config"
	"boundedclosure/internal/embeddings"
	"boundedclosure/internal/store"
)

func newTestServer() *ClosureServer {
	return NewClosureServer(config.Default())
}

func TestAssertFactAndVerifyLiveStore(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	_, assertResp, err := s.handleAssertFact(ctx, nil, AssertFactRequest{
		Fact: FactInput{
			Namespace: "test",
			Predicate: "bird",
			Arguments: map[string]interface{}{"who": "tweety"},
		},
	})
	if err != nil {
		t.Fatalf("assert-fact returned error: %v", err)
	}
	if assertResp.FactID == "" {
		t.Fatal("expected a non-empty fact id")
	}

	_, ruleResp, err := s.handleAddRule(ctx, nil, AddRuleRequest{
		Rule: RuleInput{
			RuleID: "birds-fly",
			Premises: []PatternInput{
				{Namespace: "test", Predicate: "bird", Arguments: map[string]interface{}{"who": "tweety"}},
			},
			Conclusions: []TemplateInput{
				{Namespace: "test", Predicate: "flies", Arguments: map[string]interface{}{"who": "tweety"}},
			},
		},
	})
	if err != nil {
		t.Fatalf("add-rule returned error: %v", err)
	}
	if ruleResp.PremiseCount != 1 || ruleResp.ConclusionLen != 1 {
		t.Fatalf("unexpected rule shape: %+v", ruleResp)
	}

	_, verifyResp, err := s.handleVerify(ctx, nil, VerifyRequest{Mode: string(resolve.Strict)})
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}
	if verifyResp.Result.Mode != resolve.Strict {
		t.Fatalf("expected strict mode, got %v (reason %q)", verifyResp.Result.Mode, verifyResp.Result.Reason)
	}

	var sawDerived bool
	for _, c := range verifyResp.Result.Claims {
		if c.Predicate.Name == "flies" {
			sawDerived = true
		}
	}
	if !sawDerived {
		t.Fatalf("expected a derived 'flies' claim, got claims: %+v", verifyResp.Result.Claims)
	}
}

func TestVerifyLiteralProgramIsCached(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	req := VerifyRequest{
		Facts: []FactInput{
			{Namespace: "test", Predicate: "bird", Arguments: map[string]interface{}{"who": "tweety"}},
		},
		Rules: []RuleInput{
			{
				RuleID:      "birds-fly",
				Premises:    []PatternInput{{Namespace: "test", Predicate: "bird", Arguments: map[string]interface{}{"who": "tweety"}}},
				Conclusions: []TemplateInput{{Namespace: "test", Predicate: "flies", Arguments: map[string]interface{}{"who": "tweety"}}},
			},
		},
		Mode: string(resolve.Strict),
	}

	_, first, err := s.handleVerify(ctx, nil, req)
	if err != nil {
		t.Fatalf("first verify returned error: %v", err)
	}
	if s.resultCache.Size() != 1 {
		t.Fatalf("expected 1 cache entry after first call, got %d", s.resultCache.Size())
	}

	_, second, err := s.handleVerify(ctx, nil, req)
	if err != nil {
		t.Fatalf("second verify returned error: %v", err)
	}
	if len(first.Result.Claims) != len(second.Result.Claims) {
		t.Fatalf("expected cached result to match: %+v vs %+v", first.Result, second.Result)
	}
	if s.resultCache.Stats()["hits"].(int64) < 1 {
		t.Fatalf("expected at least one cache hit, got %+v", s.resultCache.Stats())
	}
}

func TestVerifyRetrievesAssociativeCandidatesFromKnownPool(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	vc, err := store.NewVectorCandidateSource(store.VectorCandidateConfig{
		Embedder: embeddings.NewMockEmbedder(64),
	})
	if err != nil {
		t.Fatalf("failed to open vector candidate source: %v", err)
	}
	s.EnableVectorCandidates(vc)

	// bird is asserted normally: it lands in the live store AND gets indexed
	// for retrieval.
	if _, _, err := s.handleAssertFact(ctx, nil, AssertFactRequest{
		Fact: FactInput{Namespace: "test", Predicate: "bird", Arguments: map[string]interface{}{"who": "tweety"}},
	}); err != nil {
		t.Fatalf("assert-fact returned error: %v", err)
	}

	// A literal program only submits the rule, not the bird fact itself —
	// associative retrieval is what lets it find "bird" in the broader known
	// pool and fire the rule against it.
	req := VerifyRequest{
		Rules: []RuleInput{
			{
				RuleID:      "birds-fly",
				Premises:    []PatternInput{{Namespace: "test", Predicate: "bird", Arguments: map[string]interface{}{"who": "tweety"}}},
				Conclusions: []TemplateInput{{Namespace: "test", Predicate: "flies", Arguments: map[string]interface{}{"who": "tweety"}}},
			},
		},
		Mode: string(resolve.Strict),
	}

	_, resp, err := s.handleVerify(ctx, nil, req)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}
	var sawFlies bool
	for _, c := range resp.Result.Claims {
		if c.Predicate.Name == "flies" {
			sawFlies = true
		}
	}
	if !sawFlies {
		t.Fatalf("expected associative retrieval to surface 'bird' and derive 'flies', got claims: %+v", resp.Result.Claims)
	}
}

func TestAssertFactRejectsUnsupportedArgument(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	result, _, err := s.handleAssertFact(ctx, nil, AssertFactRequest{
		Fact: FactInput{
			Namespace: "test",
			Predicate: "bad",
			Arguments: map[string]interface{}{"nested": map[string]interface{}{"x": 1}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected a tool-level error result for an unsupported argument shape")
	}
}

func TestStatsReportsAccumulatedMetrics(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	_, _, err := s.handleVerify(ctx, nil, VerifyRequest{Mode: string(resolve.Strict)})
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}

	_, statsResp, err := s.handleStats(ctx, nil, StatsRequest{})
	if err != nil {
		t.Fatalf("stats returned error: %v", err)
	}
	if len(statsResp.Metrics) == 0 {
		t.Fatal("expected at least one recorded metric after a verify call")
	}
	if statsResp.OperationUsage["verify"] == 0 {
		t.Fatal("expected verify operation usage to be tracked")
	}
}
