// internal/verify/batch.go
package verify

import (
    "context"
    "fmt"
    "time"

    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"

    "mms/internal/geo"
    "mms/internal/idnum"
    "mms/internal/iec"
    "mms/internal/models"
)

const (
    // DefaultWorkers bounds concurrent API calls. The commission publishes
    // no rate limits; 15 keeps the batch moving without hammering it.
    DefaultWorkers = 15

    // DefaultCallTimeout bounds one verification call.
    DefaultCallTimeout = 30 * time.Second
)

// BatchVerifier fans a batch out over a bounded worker pool, one API call per
// record, and reassembles the outcomes in original row order. Every record
// writes only its own outcome slot, so no locking is needed beyond the pool.
type BatchVerifier struct {
    client      iec.Verifier
    resolver    *geo.Resolver
    workers     int
    callTimeout time.Duration
    logger      *zap.Logger
}

// NewBatchVerifier wires a verifier. The resolver must be backed by a loaded
// mapping snapshot; a nil resolver is a systemic failure at run time.
func NewBatchVerifier(client iec.Verifier, resolver *geo.Resolver, workers int, callTimeout time.Duration, logger *zap.Logger) *BatchVerifier {
    if workers <= 0 {
        workers = DefaultWorkers
    }
    if callTimeout <= 0 {
        callTimeout = DefaultCallTimeout
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    return &BatchVerifier{
        client:      client,
        resolver:    resolver,
        workers:     workers,
        callTimeout: callTimeout,
        logger:      logger,
    }
}

// VerifyBatch annotates every record with an Outcome and returns the folded
// report. Per-row failures never abort the batch; only systemic failures
// (no client, no mapping snapshot) return an error, and then no report is
// produced. Cancelling ctx stops new submissions and lets in-flight calls
// drain; rows never submitted are reported as API_ERROR.
func (b *BatchVerifier) VerifyBatch(ctx context.Context, batchID string, records []*models.Record) (*models.BatchReport, error) {
    if b.client == nil {
        return nil, fmt.Errorf("batch %s: no verification client configured", batchID)
    }
    if b.resolver == nil {
        return nil, fmt.Errorf("batch %s: mapping tables unavailable", batchID)
    }

    b.logger.Info("starting batch verification",
        zap.String("batch_id", batchID),
        zap.Int("records", len(records)),
        zap.Int("workers", b.workers))

    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(b.workers)

    for _, rec := range records {
        rec := rec

        // Invalid identifiers short-circuit without consuming a worker
        // slot or touching the API.
        if rec.IDNumber == "" {
            rec.Outcome = &models.Outcome{
                Skipped:    true,
                SkipReason: "identifier failed normalization",
            }
            continue
        }

        if err := gctx.Err(); err != nil {
            rec.Outcome = &models.Outcome{
                Category: models.CategoryAPIError,
                Detail:   fmt.Sprintf("batch cancelled before submission: %v", err),
            }
            continue
        }

        g.Go(func() error {
            b.verifyOne(gctx, rec)
            // Always nil: one bad row must never cancel its siblings.
            return nil
        })
    }

    if err := g.Wait(); err != nil {
        return nil, fmt.Errorf("batch %s: worker pool failed: %w", batchID, err)
    }

    report := models.NewBatchReport(batchID, records)
    b.logger.Info("batch verification complete",
        zap.String("batch_id", batchID),
        zap.Int("total", report.Total),
        zap.Int("verified", report.Verified),
        zap.Int("skipped", report.Skipped),
        zap.Int("errors", report.Errors))
    return report, nil
}

// verifyOne performs the call, classification and mapping resolution for a
// single record. All failure modes collapse into the record's own outcome.
func (b *BatchVerifier) verifyOne(ctx context.Context, rec *models.Record) {
    callCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
    defer cancel()

    res, err := b.client.Verify(callCtx, rec.IDNumber)
    out := Classify(rec.ExpectedWard, res, err)
    if res != nil {
        out.RawPayload = res.Raw
    }

    switch out.Category {
    case models.CategoryRegisteredInWard, models.CategoryDifferentWard:
        b.resolveCodes(&out, res)
    case models.CategoryAPIError:
        b.logger.Warn("verification call failed",
            zap.Int("row", rec.Row),
            zap.String("detail", out.Detail))
    }

    rec.Outcome = &out
}

// resolveCodes translates the verified external ids into canonical codes.
// Mapping misses leave the corresponding fields empty.
func (b *BatchVerifier) resolveCodes(out *models.Outcome, res *iec.Response) {
    wardID, _ := idnum.CollapseCodeInt(res.Ward)
    vdNumber, _ := idnum.CollapseCodeInt(res.VotingDistrict)

    resolution := b.resolver.Resolve(res.ProvinceID, res.MunicipalityID, wardID, vdNumber, res.VotingStation)
    if resolution.Province != nil {
        out.ProvinceCode = resolution.Province.Code
    }
    if resolution.Municipality != nil {
        out.MunicipalityCode = resolution.Municipality.Code
    }
    if resolution.Ward != nil {
        out.WardCode = resolution.Ward.Code
        out.WardName = resolution.Ward.Name
    }
    if resolution.VotingDistrict != nil {
        out.VotingDistrict = resolution.VotingDistrict.Code
        out.VotingStation = resolution.VotingDistrict.Name
    }
}
