package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/skywalkers77/astro-rag/internal/rag"
)

// Query modes.
const (
	// ModeDBOnly answers strictly from indexed documents and refuses when
	// the evidence is too weak.
	ModeDBOnly = "db-only"
	// ModeHybrid prioritizes indexed documents but may draw on web search
	// results to fill gaps.
	ModeHybrid = "hybrid"
)

// NotInDB is the sentinel answer returned when db-only retrieval finds
// nothing strong enough to ground an answer. It is a contract with API
// consumers — never rephrase it.
const NotInDB = "NOT_IN_DB"

const (
	// DefaultTopK is how many chunks to retrieve when the request does not say.
	DefaultTopK = 8
	// DefaultScoreThreshold is the minimum top-hit similarity for db-only
	// answering.
	DefaultScoreThreshold float32 = 0.72
)

// Confidence labels derived from similarity scores.
const (
	confidenceHigh   = "high"
	confidenceMedium = "medium"
	confidenceLow    = "low"
)

// systemPromptDBOnly instructs the model to answer strictly from the
// provided documents and to emit the NotInDB sentinel otherwise.
const systemPromptDBOnly = `You are an assistant that MUST ONLY use the provided documents below to answer the user's question.
Do NOT use any external knowledge beyond these documents. If the documents do NOT contain enough
information to answer the question, reply exactly: "NOT_IN_DB". Provide a short justification
(one sentence) referencing which documents you used, and include the doc ids used.`

// systemPromptHybrid instructs the model to prefer database content but
// allows it to draw on the web search results when the database is thin.
const systemPromptHybrid = `You are an assistant that SHOULD PRIORITIZE the provided database results when answering.
You MAY use the web search results below to fill gaps when the database does not fully answer the
question, but prefer the database content. When using database content, explicitly cite the doc ids
and scores. If the database is sufficient, do not add external facts unless they are directly relevant.`

// QueryRequest carries one question through the pipeline.
type QueryRequest struct {
	// Question is the user's query text.
	Question string `json:"question"`
	// Mode selects db-only or hybrid answering. Empty means db-only.
	Mode string `json:"mode,omitempty"`
	// TopK overrides how many chunks to retrieve (0 = DefaultTopK).
	TopK int `json:"top_k,omitempty"`
	// ScoreThreshold overrides the db-only similarity gate
	// (0 = DefaultScoreThreshold).
	ScoreThreshold float32 `json:"score_threshold,omitempty"`
}

// SourceDetail is one provenance entry annotated with a confidence label.
type SourceDetail struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Score      float32 `json:"score"`
	Confidence string  `json:"confidence"`
}

// QueryResult is the pipeline's answer envelope.
type QueryResult struct {
	// Answer is the generated answer, or the NotInDB sentinel.
	Answer string `json:"answer"`
	// Mode is the mode that actually ran.
	Mode string `json:"mode"`
	// Sources lists the provenance of every document block offered to the model.
	Sources []rag.ProvenanceEntry `json:"sources"`
	// SourceDetails repeats Sources with confidence labels.
	SourceDetails []SourceDetail `json:"source_details"`
	// Degraded is true when hybrid mode ran without web search results.
	Degraded bool `json:"degraded,omitempty"`
	// Timestamp is when the answer was produced (UTC).
	Timestamp time.Time `json:"timestamp"`
}

// Pipeline wires retrieval, context assembly, optional web search, and
// generation into the two query modes.
type Pipeline struct {
	retriever rag.Retriever
	generator *Generator
	builder   *ContextBuilder
	searcher  rag.WebSearcher
	log       *slog.Logger
}

// New constructs a Pipeline. The searcher may be nil — hybrid queries then
// run degraded on database context alone.
func New(retriever rag.Retriever, generator *Generator, builder *ContextBuilder, searcher rag.WebSearcher, log *slog.Logger) (*Pipeline, error) {
	if retriever == nil {
		return nil, fmt.Errorf("pipeline: retriever is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("pipeline: generator is required")
	}
	if builder == nil {
		builder = NewContextBuilder(0, 0)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		retriever: retriever,
		generator: generator,
		builder:   builder,
		searcher:  searcher,
		log:       log,
	}, nil
}

// Query answers one question. Invalid requests fail with rag.ErrInvalidInput;
// collaborator failures keep their own classification.
func (p *Pipeline) Query(ctx context.Context, req QueryRequest) (QueryResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return QueryResult{}, fmt.Errorf("pipeline: empty question: %w", rag.ErrInvalidInput)
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeDBOnly
	}
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	threshold := req.ScoreThreshold
	if threshold <= 0 {
		threshold = DefaultScoreThreshold
	}

	switch mode {
	case ModeDBOnly:
		return p.queryDBOnly(ctx, question, topK, threshold)
	case ModeHybrid:
		return p.queryHybrid(ctx, question, topK, threshold)
	default:
		return QueryResult{}, fmt.Errorf("pipeline: unknown mode %q (want %q or %q): %w",
			mode, ModeDBOnly, ModeHybrid, rag.ErrInvalidInput)
	}
}

// queryDBOnly answers strictly from the database. A top hit below the
// threshold, or an empty retrieval, short-circuits to the NotInDB sentinel
// without calling the model.
func (p *Pipeline) queryDBOnly(ctx context.Context, question string, topK int, threshold float32) (QueryResult, error) {
	matches, err := p.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return QueryResult{}, err
	}

	if len(matches) == 0 {
		p.log.InfoContext(ctx, "db-only query found no matches")
		return p.result(NotInDB, ModeDBOnly, []rag.ProvenanceEntry{}, false), nil
	}

	contextBlock, provenance := p.builder.Build(matches)

	if top := matches[0].Score; top < threshold {
		p.log.InfoContext(ctx, "db-only query below score threshold",
			slog.Float64("top_score", float64(top)),
			slog.Float64("threshold", float64(threshold)),
		)
		return p.result(NotInDB, ModeDBOnly, provenance, false), nil
	}

	answer, raw, err := p.generator.Answer(ctx, systemPromptDBOnly, contextBlock, question)
	if err != nil {
		return QueryResult{}, err
	}

	p.logCompletion(ctx, raw)
	p.log.InfoContext(ctx, "db-only query answered",
		slog.Int("matches", len(matches)),
		slog.Float64("top_score", float64(matches[0].Score)),
	)
	return p.result(answer, ModeDBOnly, provenance, false), nil
}

// queryHybrid composes database summaries with web search results. The
// search runs only when the database evidence is weak: zero matches, or a
// top score below the threshold. A failed or unconfigured web search then
// degrades to database context alone rather than failing the query.
func (p *Pipeline) queryHybrid(ctx context.Context, question string, topK int, threshold float32) (QueryResult, error) {
	matches, err := p.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return QueryResult{}, err
	}

	degraded := false
	var webResults []rag.WebResult
	if len(matches) == 0 || matches[0].Score < threshold {
		if p.searcher == nil {
			degraded = true
		} else if webResults, err = p.searcher.Search(ctx, question); err != nil {
			p.log.WarnContext(ctx, "web search failed, continuing with database context only",
				slog.String("error", err.Error()),
			)
			degraded = true
			webResults = nil
		}
	}

	var sections []string
	if len(matches) > 0 {
		sections = append(sections, "Database Results:\n"+SummarizeMatches(matches))
	}
	if len(webResults) > 0 {
		sections = append(sections, "Web Search Results:\n"+SummarizeWebResults(webResults))
	}
	contextBlock := strings.Join(sections, "\n")
	if contextBlock == "" {
		contextBlock = "(no matching documents found in the database and no web results available)"
	}

	answer, raw, err := p.generator.Answer(ctx, systemPromptHybrid, contextBlock, question)
	if err != nil {
		return QueryResult{}, err
	}
	p.logCompletion(ctx, raw)

	_, provenance := p.builder.Build(matches)
	p.log.InfoContext(ctx, "hybrid query answered",
		slog.Int("matches", len(matches)),
		slog.Int("web_results", len(webResults)),
		slog.Bool("degraded", degraded),
	)
	return p.result(answer, ModeHybrid, provenance, degraded), nil
}

// logCompletion records finish reason and token usage from the raw model
// response. Backends that report no metadata produce no log entry.
func (p *Pipeline) logCompletion(ctx context.Context, raw *schema.Message) {
	if raw == nil || raw.ResponseMeta == nil {
		return
	}
	attrs := []any{slog.String("finish_reason", raw.ResponseMeta.FinishReason)}
	if usage := raw.ResponseMeta.Usage; usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", usage.PromptTokens),
			slog.Int("completion_tokens", usage.CompletionTokens),
		)
	}
	p.log.DebugContext(ctx, "completion", attrs...)
}

// result assembles the answer envelope. details mirror provenance, which may
// be shorter than the retrieval when the token budget trimmed the context.
func (p *Pipeline) result(answer, mode string, provenance []rag.ProvenanceEntry, degraded bool) QueryResult {
	details := make([]SourceDetail, 0, len(provenance))
	for _, entry := range provenance {
		details = append(details, SourceDetail{
			ID:         entry.ID,
			Source:     entry.Source,
			Score:      entry.Score,
			Confidence: confidence(entry.Score),
		})
	}
	return QueryResult{
		Answer:        answer,
		Mode:          mode,
		Sources:       provenance,
		SourceDetails: details,
		Degraded:      degraded,
		Timestamp:     time.Now().UTC(),
	}
}

// confidence buckets a similarity score into a coarse label.
func confidence(score float32) string {
	switch {
	case score > 0.8:
		return confidenceHigh
	case score > 0.6:
		return confidenceMedium
	default:
		return confidenceLow
	}
}
