package services

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/matchfit/matchfit/internal/cachekey"
	"github.com/matchfit/matchfit/internal/models"
	pgrepo "github.com/matchfit/matchfit/internal/repositories/postgres"
	"github.com/matchfit/matchfit/internal/utils"
)

// Phase names a stage of a matching run.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseLoadingExperts     Phase = "loading-experts"
	PhaseCalculatingScores  Phase = "calculating-scores"
	PhaseSorting            Phase = "sorting"
	PhaseCalculatingReasons Phase = "calculating-reasons"
	PhaseComplete           Phase = "complete"
	PhaseError              Phase = "error"
)

// EventSink receives partial results as a matching run progresses. The SSE
// handler adapts it onto the wire; the warm-cache worker plugs in NopSink.
type EventSink interface {
	MatchingStart(total int)
	// MatchingProgress fires once per completed batch, not per call.
	MatchingProgress(current, total, expertID int)
	// MatchScore reports one expert's result; false means the consumer is
	// gone and the run may stop emitting (work already in flight still
	// lands in the cache).
	MatchScore(m models.MatchResult) bool
	MatchError(expertID int, msg string)
	MatchingComplete(cached bool)
}

// NopSink discards all events; used for background cache warming.
type NopSink struct{}

func (NopSink) MatchingStart(int)                  {}
func (NopSink) MatchingProgress(int, int, int)     {}
func (NopSink) MatchScore(models.MatchResult) bool { return true }
func (NopSink) MatchError(int, string)             {}
func (NopSink) MatchingComplete(bool)              {}

const (
	fallbackReason1 = "This trainer matches your fitness goals and experience level."
	fallbackReason2 = "They have the qualifications to help you achieve your objectives."
)

type OrchestratorConfig struct {
	ScoreBatchSize   int
	ReasonsBatchSize int
	ReasonsTopK      int
	Retry            utils.RetryConfig
}

func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		ScoreBatchSize:   3,
		ReasonsBatchSize: 2,
		ReasonsTopK:      5,
		Retry:            utils.DefaultRetryConfig(),
	}
}

type RunOptions struct {
	// ForceRefresh bypasses the match-cache short-circuit, e.g. after the
	// client manually edits their overview.
	ForceRefresh bool
}

// MatchOrchestrator drives scoring across the expert roster: batched
// concurrent score calls, stable sort, reasons for the top results, and
// per-expert failure containment. A run never stalls on one expert; every
// failure is converted to a fallback result before its batch settles.
type MatchOrchestrator struct {
	experts pgrepo.ExpertRepository
	scorer  MatchScorer
	cache   MatchCacheService
	cfg     OrchestratorConfig
	log     *logrus.Logger
}

func NewMatchOrchestrator(experts pgrepo.ExpertRepository, scorer MatchScorer, cache MatchCacheService, cfg OrchestratorConfig, log *logrus.Logger) *MatchOrchestrator {
	if cfg.ScoreBatchSize <= 0 {
		cfg.ScoreBatchSize = 3
	}
	if cfg.ReasonsBatchSize <= 0 {
		cfg.ReasonsBatchSize = 2
	}
	if cfg.ReasonsTopK <= 0 {
		cfg.ReasonsTopK = 5
	}
	if log == nil {
		log = logrus.New()
	}
	return &MatchOrchestrator{experts: experts, scorer: scorer, cache: cache, cfg: cfg, log: log}
}

// scoreProgress maps scoring completion onto the 15%-85% slice of overall run
// progress.
func scoreProgress(completed, total int) float64 {
	if total <= 0 {
		return 0.85
	}
	return 0.15 + 0.70*float64(completed)/float64(total)
}

// Run executes a full matching pass for one overview and returns the merged,
// sorted results. The caller decides whether a roster-fetch failure is worth
// retrying; Run does not retry it internally.
func (o *MatchOrchestrator) Run(ctx context.Context, overview string, opts RunOptions, sink EventSink) ([]models.MatchResult, error) {
	const op = "MatchOrchestrator.Run"

	if sink == nil {
		sink = NopSink{}
	}
	overviewHash := cachekey.OverviewHash(overview)
	log := o.log.WithField("overview_hash", overviewHash)

	log.WithField("phase", PhaseLoadingExperts).Debug("matching run started")
	roster, err := o.experts.ListAll(ctx)
	if err != nil {
		log.WithError(err).WithField("phase", PhaseError).Error("failed to load expert roster")
		return nil, utils.E(utils.CodeUnavailable, op, "failed to load experts", err)
	}
	if len(roster) == 0 {
		return nil, utils.E(utils.CodeNotFound, op, "expert roster is empty", nil)
	}

	expertIDs := make([]int, len(roster))
	for i, e := range roster {
		expertIDs[i] = e.ID
	}

	if !opts.ForceRefresh {
		if cached, ok := o.cache.GetMatches(ctx, overviewHash, expertIDs); ok {
			log.WithField("experts", len(roster)).Info("serving fully cached match set")
			results := mergeCached(roster, cached)
			sortByScore(results)
			for _, m := range results {
				if !sink.MatchScore(m) {
					break
				}
			}
			sink.MatchingComplete(true)
			return results, nil
		}
	}

	sink.MatchingStart(len(roster))

	log.WithField("phase", PhaseCalculatingScores).Debug("scoring experts")
	results := o.scoreAll(ctx, overview, roster, sink, log)

	log.WithField("phase", PhaseSorting).Debug("sorting results")
	sortByScore(results)

	log.WithField("phase", PhaseCalculatingReasons).Debug("generating reasons for top results")
	o.reasonsForTop(ctx, overview, roster, results, sink, log)

	o.cache.PutMatches(ctx, overviewHash, results)

	log.WithField("phase", PhaseComplete).Info("matching run complete")
	sink.MatchingComplete(false)
	return results, nil
}

// scoreAll partitions the roster into fixed-size batches; calls within a
// batch run concurrently, batches run strictly in sequence. Each expert's
// failure is contained to its own slot.
func (o *MatchOrchestrator) scoreAll(ctx context.Context, overview string, roster []models.Expert, sink EventSink, log *logrus.Entry) []models.MatchResult {
	results := make([]models.MatchResult, len(roster))
	completed := 0

	for start := 0; start < len(roster); start += o.cfg.ScoreBatchSize {
		end := start + o.cfg.ScoreBatchSize
		if end > len(roster) {
			end = len(roster)
		}
		batch := roster[start:end]

		var wg sync.WaitGroup
		for i := range batch {
			wg.Add(1)
			go func(slot int, expert models.Expert) {
				defer wg.Done()
				m, err := utils.Retry(ctx, o.cfg.Retry, func(c context.Context) (models.MatchResult, error) {
					return o.scorer.ScoreOnly(c, overview, expert)
				})
				if err != nil {
					log.WithError(err).WithField("expert_id", expert.ID).Warn("score call failed, using fallback")
					m = models.MatchResult{ExpertID: expert.ID, MatchScore: 0}
					results[slot] = withExpert(m, expert)
					sink.MatchError(expert.ID, "failed to calculate match")
					return
				}
				results[slot] = withExpert(m, expert)
			}(start+i, batch[i])
		}
		wg.Wait()

		for i := start; i < end; i++ {
			if !sink.MatchScore(results[i]) {
				break
			}
		}

		completed += len(batch)
		sink.MatchingProgress(completed, len(roster), batch[len(batch)-1].ID)
		log.WithFields(logrus.Fields{
			"completed": completed,
			"total":     len(roster),
			"progress":  scoreProgress(completed, len(roster)),
		}).Debug("score batch complete")
	}
	return results
}

// reasonsForTop enriches the top-K sorted results with justification
// sentences. Failures substitute generic fallback text; the field is never
// left empty for a shown result.
func (o *MatchOrchestrator) reasonsForTop(ctx context.Context, overview string, roster []models.Expert, results []models.MatchResult, sink EventSink, log *logrus.Entry) {
	byID := make(map[int]models.Expert, len(roster))
	for _, e := range roster {
		byID[e.ID] = e
	}

	topK := o.cfg.ReasonsTopK
	if topK > len(results) {
		topK = len(results)
	}
	top := results[:topK]

	for start := 0; start < len(top); start += o.cfg.ReasonsBatchSize {
		end := start + o.cfg.ReasonsBatchSize
		if end > len(top) {
			end = len(top)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				current := top[slot]
				expert := byID[current.ExpertID]

				m, err := utils.Retry(ctx, o.cfg.Retry, func(c context.Context) (models.MatchResult, error) {
					return o.scorer.ReasonsOnly(c, overview, expert, current.MatchScore)
				})
				if err != nil {
					log.WithError(err).WithField("expert_id", current.ExpertID).Warn("reasons call failed, using fallback text")
					current.Reason1 = fallbackReason1
					current.Reason2 = fallbackReason2
					top[slot] = current
					return
				}
				current.Reason1 = m.Reason1
				current.Reason2 = m.Reason2
				top[slot] = current
			}(i)
		}
		wg.Wait()

		for i := start; i < end; i++ {
			if !sink.MatchScore(top[i]) {
				break
			}
		}
	}
}

func withExpert(m models.MatchResult, e models.Expert) models.MatchResult {
	expert := e
	m.Expert = &expert
	return m
}

func mergeCached(roster []models.Expert, cached map[int]models.MatchResult) []models.MatchResult {
	out := make([]models.MatchResult, 0, len(roster))
	for _, e := range roster {
		m := cached[e.ID]
		out = append(out, withExpert(m, e))
	}
	return out
}

// sortByScore sorts descending by score; the stable sort preserves roster
// order for ties.
func sortByScore(results []models.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})
}
