package verify

import (
    "context"
    "fmt"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "mms/internal/geo"
    "mms/internal/iec"
    "mms/internal/models"
)

// fakeClient returns canned responses keyed by identifier and tracks peak
// concurrency.
type fakeClient struct {
    mu        sync.Mutex
    responses map[string]*iec.Response
    errs      map[string]error
    delay     time.Duration

    inFlight int32
    peak     int32
    calls    int32
}

func (f *fakeClient) Verify(ctx context.Context, idNumber string) (*iec.Response, error) {
    cur := atomic.AddInt32(&f.inFlight, 1)
    defer atomic.AddInt32(&f.inFlight, -1)
    for {
        prev := atomic.LoadInt32(&f.peak)
        if cur <= prev || atomic.CompareAndSwapInt32(&f.peak, prev, cur) {
            break
        }
    }
    atomic.AddInt32(&f.calls, 1)

    if f.delay > 0 {
        select {
        case <-time.After(f.delay):
        case <-ctx.Done():
            return nil, ctx.Err()
        }
    }

    f.mu.Lock()
    defer f.mu.Unlock()
    if err, ok := f.errs[idNumber]; ok {
        return nil, err
    }
    if res, ok := f.responses[idNumber]; ok {
        return res, nil
    }
    return &iec.Response{Registered: true}, nil
}

func emptyResolver() *geo.Resolver {
    return geo.NewResolver(geo.NewTables(), 0, zap.NewNop())
}

// validIDs are check-digit-correct identifiers generated by varying the
// birth-date digits of a known-good sequence number.
func makeRecords(n int) []*models.Record {
    records := make([]*models.Record, n)
    for i := 0; i < n; i++ {
        records[i] = &models.Record{
            Row:      i,
            RawID:    fmt.Sprintf("id-%d", i),
            IDNumber: fmt.Sprintf("%013d", i+1),
        }
    }
    return records
}

func TestVerifyBatchPreservesOrderAndCountsEveryRow(t *testing.T) {
    records := makeRecords(100)
    client := &fakeClient{delay: time.Millisecond}
    v := NewBatchVerifier(client, emptyResolver(), 15, time.Second, zap.NewNop())

    report, err := v.VerifyBatch(context.Background(), "batch-1", records)
    require.NoError(t, err)

    require.Equal(t, 100, report.Total)
    sum := 0
    for _, c := range report.Counts {
        sum += c
    }
    assert.Equal(t, 100, sum+report.Skipped)
    assert.Equal(t, 100, report.Verified)

    for i, rec := range records {
        assert.Equal(t, i, rec.Row, "input order must be preserved")
        require.NotNil(t, rec.Outcome, "row %d has no outcome", i)
        assert.Equal(t, models.CategoryRegisteredInWard, rec.Outcome.Category)
    }
}

func TestVerifyBatchBoundsConcurrency(t *testing.T) {
    records := makeRecords(60)
    client := &fakeClient{delay: 5 * time.Millisecond}
    v := NewBatchVerifier(client, emptyResolver(), 15, time.Second, zap.NewNop())

    _, err := v.VerifyBatch(context.Background(), "batch-2", records)
    require.NoError(t, err)
    assert.LessOrEqual(t, atomic.LoadInt32(&client.peak), int32(15))
    assert.Equal(t, int32(60), atomic.LoadInt32(&client.calls))
}

func TestVerifyBatchIsolatesPerCallFailures(t *testing.T) {
    records := makeRecords(100)
    bad := records[37].IDNumber
    client := &fakeClient{
        errs: map[string]error{bad: fmt.Errorf("dial tcp: connection refused")},
    }
    v := NewBatchVerifier(client, emptyResolver(), 15, time.Second, zap.NewNop())

    report, err := v.VerifyBatch(context.Background(), "batch-3", records)
    require.NoError(t, err)

    assert.Equal(t, models.CategoryAPIError, records[37].Outcome.Category)
    assert.Equal(t, 1, report.Counts[models.CategoryAPIError])
    assert.Equal(t, 99, report.Counts[models.CategoryRegisteredInWard])
    assert.Equal(t, 1, report.Errors)
}

func TestVerifyBatchConvertsTimeoutToAPIError(t *testing.T) {
    records := makeRecords(3)
    client := &fakeClient{delay: 500 * time.Millisecond}
    v := NewBatchVerifier(client, emptyResolver(), 3, 20*time.Millisecond, zap.NewNop())

    report, err := v.VerifyBatch(context.Background(), "batch-4", records)
    require.NoError(t, err, "per-call timeouts are not batch-fatal")
    assert.Equal(t, 3, report.Counts[models.CategoryAPIError])
}

func TestVerifyBatchSkipsInvalidWithoutCallingAPI(t *testing.T) {
    records := makeRecords(5)
    records[2].IDNumber = ""
    client := &fakeClient{}
    v := NewBatchVerifier(client, emptyResolver(), 5, time.Second, zap.NewNop())

    report, err := v.VerifyBatch(context.Background(), "batch-5", records)
    require.NoError(t, err)

    require.NotNil(t, records[2].Outcome)
    assert.True(t, records[2].Outcome.Skipped)
    assert.Equal(t, "identifier failed normalization", records[2].Outcome.SkipReason)
    assert.Equal(t, 1, report.Skipped)
    assert.Equal(t, int32(4), atomic.LoadInt32(&client.calls))
}

func TestVerifyBatchCancellationDrains(t *testing.T) {
    records := makeRecords(50)
    client := &fakeClient{delay: 30 * time.Millisecond}
    v := NewBatchVerifier(client, emptyResolver(), 2, time.Second, zap.NewNop())

    ctx, cancel := context.WithCancel(context.Background())
    go func() {
        time.Sleep(20 * time.Millisecond)
        cancel()
    }()

    report, err := v.VerifyBatch(ctx, "batch-6", records)
    require.NoError(t, err, "cancellation drains, it does not fail the batch")
    require.Equal(t, 50, report.Total)

    // Every row still carries an outcome; rows cut off by cancellation are
    // API_ERROR.
    cancelled := 0
    for _, rec := range records {
        require.NotNil(t, rec.Outcome)
        if rec.Outcome.Category == models.CategoryAPIError {
            cancelled++
        }
    }
    assert.Greater(t, cancelled, 0)
    assert.Less(t, atomic.LoadInt32(&client.calls), int32(50))
}

func TestVerifyBatchSystemicFailures(t *testing.T) {
    records := makeRecords(2)

    _, err := NewBatchVerifier(nil, emptyResolver(), 1, time.Second, zap.NewNop()).
        VerifyBatch(context.Background(), "batch-7", records)
    require.Error(t, err)

    _, err = NewBatchVerifier(&fakeClient{}, nil, 1, time.Second, zap.NewNop()).
        VerifyBatch(context.Background(), "batch-8", records)
    require.Error(t, err)
    assert.Contains(t, err.Error(), "mapping tables unavailable")
}

func TestVerifyBatchResolvesCanonicalCodes(t *testing.T) {
    tables := geo.NewTables()
    tables.Provinces[4] = models.Province{ExternalID: 4, Code: "GP"}
    tables.Municipalities[418] = models.Municipality{ExternalID: 418, Code: "JHB"}
    tables.Wards[41804011] = models.Ward{ExternalID: 41804011, Code: "GP-JHB-011", Name: "Ward 11"}
    tables.VotingDistricts[32841234] = models.VotingDistrict{
        ExternalID: 32841234, Code: "VD-32841234", Name: "Greenside Primary School Hall", WardID: 41804011,
    }
    resolver := geo.NewResolver(tables, 0, zap.NewNop())

    records := []*models.Record{{Row: 0, IDNumber: "9001016804089", ExpectedWard: "41804011"}}
    client := &fakeClient{responses: map[string]*iec.Response{
        "9001016804089": {
            Registered:     true,
            Ward:           "41804011.0",
            VotingDistrict: float64(32841234),
            VotingStation:  "GREENSIDE PRIMARY SCHOOL",
            MunicipalityID: 418,
            ProvinceID:     4,
        },
    }}

    v := NewBatchVerifier(client, resolver, 1, time.Second, zap.NewNop())
    _, err := v.VerifyBatch(context.Background(), "batch-9", records)
    require.NoError(t, err)

    out := records[0].Outcome
    require.NotNil(t, out)
    assert.Equal(t, models.CategoryRegisteredInWard, out.Category)
    assert.Equal(t, "GP", out.ProvinceCode)
    assert.Equal(t, "JHB", out.MunicipalityCode)
    assert.Equal(t, "GP-JHB-011", out.WardCode)
    assert.Equal(t, "VD-32841234", out.VotingDistrict)
}

func TestVerifyBatchEmpty(t *testing.T) {
    v := NewBatchVerifier(&fakeClient{}, emptyResolver(), 1, time.Second, zap.NewNop())
    report, err := v.VerifyBatch(context.Background(), "batch-10", nil)
    require.NoError(t, err)
    assert.Equal(t, 0, report.Total)
}
