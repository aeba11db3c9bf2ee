package storage

import (
    "encoding/json"
    "fmt"
    "log"
    "time"

    "github.com/pocketbase/dbx"
    "github.com/pocketbase/pocketbase"
    pbModels "github.com/pocketbase/pocketbase/models"
    "github.com/pocketbase/pocketbase/models/schema"

    "mms/internal/geo"
    "mms/internal/models"
)

// PocketBaseStore owns the embedded database: the four geographic mapping
// collections, uploaded-batch reports and per-row verification outcomes.
type PocketBaseStore struct {
    app *pocketbase.PocketBase
}

// StoredBatch pairs a persisted report with its lifecycle status.
type StoredBatch struct {
    Report     *models.BatchReport `json:"report"`
    Status     models.BatchStatus  `json:"status"`
    SourceName string              `json:"source_name,omitempty"`
}

func NewPocketBaseStore(dataDir string) (*PocketBaseStore, error) {
    // Create a new PocketBase instance with a data directory
    app := pocketbase.New()

    app.RootCmd.SetArgs([]string{"serve", "--dir", dataDir, "--http", "0.0.0.0:8090"})

    // Start PocketBase in a goroutine
    go func() {
        if err := app.Start(); err != nil {
            log.Printf("Failed to start PocketBase: %v", err)
        }
    }()

    // Give PocketBase a moment to initialize
    time.Sleep(time.Second)

    if err := app.Bootstrap(); err != nil {
        return nil, fmt.Errorf("failed to bootstrap PocketBase: %w", err)
    }

    if err := ensureCollections(app); err != nil {
        return nil, fmt.Errorf("failed to ensure collections exist: %w", err)
    }

    return &PocketBaseStore{app: app}, nil
}

func ensureCollections(app *pocketbase.PocketBase) error {
    mappingFields := func(extra ...*schema.SchemaField) []*schema.SchemaField {
        fields := []*schema.SchemaField{
            {Name: "external_id", Type: schema.FieldTypeNumber, Required: true},
            {Name: "code", Type: schema.FieldTypeText, Required: true},
            {Name: "name", Type: schema.FieldTypeText},
        }
        return append(fields, extra...)
    }

    collections := map[string][]*schema.SchemaField{
        "provinces":      mappingFields(),
        "municipalities": mappingFields(),
        "wards": mappingFields(
            &schema.SchemaField{Name: "municipality_id", Type: schema.FieldTypeNumber},
            &schema.SchemaField{Name: "ward_number", Type: schema.FieldTypeNumber},
        ),
        "voting_districts": mappingFields(
            &schema.SchemaField{Name: "ward_id", Type: schema.FieldTypeNumber},
        ),
        "upload_batches": {
            {Name: "batch_id", Type: schema.FieldTypeText, Required: true},
            {Name: "source_name", Type: schema.FieldTypeText},
            {
                Name: "status", Type: schema.FieldTypeSelect, Required: true,
                Options: &schema.SelectOptions{
                    Values: []string{"uploaded", "verifying", "complete", "failed"},
                },
            },
            {Name: "total", Type: schema.FieldTypeNumber},
            {Name: "skipped", Type: schema.FieldTypeNumber},
            {Name: "verified", Type: schema.FieldTypeNumber},
            {Name: "errors", Type: schema.FieldTypeNumber},
            {Name: "registered_in_ward", Type: schema.FieldTypeNumber},
            {Name: "different_ward", Type: schema.FieldTypeNumber},
            {Name: "not_registered", Type: schema.FieldTypeNumber},
            {Name: "deceased", Type: schema.FieldTypeNumber},
            {Name: "api_error", Type: schema.FieldTypeNumber},
        },
        "verification_outcomes": {
            {Name: "batch_id", Type: schema.FieldTypeText, Required: true},
            {Name: "row", Type: schema.FieldTypeNumber},
            {Name: "id_number", Type: schema.FieldTypeText},
            {Name: "skipped", Type: schema.FieldTypeBool},
            {Name: "skip_reason", Type: schema.FieldTypeText},
            {Name: "category", Type: schema.FieldTypeText},
            {Name: "verified", Type: schema.FieldTypeBool},
            {Name: "matched_ward", Type: schema.FieldTypeBool},
            {Name: "province_code", Type: schema.FieldTypeText},
            {Name: "municipality_code", Type: schema.FieldTypeText},
            {Name: "ward_code", Type: schema.FieldTypeText},
            {Name: "ward_name", Type: schema.FieldTypeText},
            {Name: "voting_district", Type: schema.FieldTypeText},
            {Name: "voting_station", Type: schema.FieldTypeText},
            {Name: "detail", Type: schema.FieldTypeText},
            {Name: "raw", Type: schema.FieldTypeJson, Options: &schema.JsonOptions{MaxSize: 2000000}},
        },
    }

    for name, fields := range collections {
        if _, err := app.Dao().FindCollectionByNameOrId(name); err == nil {
            continue
        }
        collection := &pbModels.Collection{
            Name:   name,
            Type:   pbModels.CollectionTypeBase,
            Schema: schema.NewSchema(fields...),
        }
        if err := app.Dao().SaveCollection(collection); err != nil {
            return fmt.Errorf("failed to save collection %s: %w", name, err)
        }
    }
    return nil
}

// upsertMapping writes one mapping row keyed by external_id.
func (s *PocketBaseStore) upsertMapping(collectionName string, externalID int64, set func(record *pbModels.Record)) error {
    collection, err := s.app.Dao().FindCollectionByNameOrId(collectionName)
    if err != nil {
        return fmt.Errorf("failed to find collection: %w", err)
    }

    records, err := s.app.Dao().FindRecordsByExpr(collectionName, dbx.HashExp{"external_id": externalID})
    if err != nil {
        return fmt.Errorf("failed to query %s: %w", collectionName, err)
    }

    var record *pbModels.Record
    if len(records) > 0 {
        record = records[0]
    } else {
        record = pbModels.NewRecord(collection)
    }
    record.Set("external_id", externalID)
    set(record)

    if err := s.app.Dao().SaveRecord(record); err != nil {
        return fmt.Errorf("failed to save record: %w", err)
    }
    return nil
}

func (s *PocketBaseStore) SaveProvince(p *models.Province) error {
    return s.upsertMapping("provinces", p.ExternalID, func(record *pbModels.Record) {
        record.Set("code", p.Code)
        record.Set("name", p.Name)
    })
}

func (s *PocketBaseStore) SaveMunicipality(m *models.Municipality) error {
    return s.upsertMapping("municipalities", m.ExternalID, func(record *pbModels.Record) {
        record.Set("code", m.Code)
        record.Set("name", m.Name)
    })
}

func (s *PocketBaseStore) SaveWard(w *models.Ward) error {
    return s.upsertMapping("wards", w.ExternalID, func(record *pbModels.Record) {
        record.Set("code", w.Code)
        record.Set("name", w.Name)
        record.Set("municipality_id", w.MunicipalityID)
        record.Set("ward_number", w.WardNumber)
    })
}

func (s *PocketBaseStore) SaveVotingDistrict(vd *models.VotingDistrict) error {
    return s.upsertMapping("voting_districts", vd.ExternalID, func(record *pbModels.Record) {
        record.Set("code", vd.Code)
        record.Set("name", vd.Name)
        record.Set("ward_id", vd.WardID)
    })
}

// LoadTables reads all four mapping collections into an in-memory snapshot.
// The snapshot is read-only for the duration of a batch run; a failure here
// is systemic and fails the batch before any row is verified.
func (s *PocketBaseStore) LoadTables() (*geo.Tables, error) {
    tables := geo.NewTables()

    provinces, err := s.app.Dao().FindRecordsByExpr("provinces")
    if err != nil {
        return nil, fmt.Errorf("failed to load provinces: %w", err)
    }
    for _, r := range provinces {
        id := int64(r.GetInt("external_id"))
        tables.Provinces[id] = models.Province{
            ID: r.Id, ExternalID: id,
            Code: r.GetString("code"), Name: r.GetString("name"),
        }
    }

    municipalities, err := s.app.Dao().FindRecordsByExpr("municipalities")
    if err != nil {
        return nil, fmt.Errorf("failed to load municipalities: %w", err)
    }
    for _, r := range municipalities {
        id := int64(r.GetInt("external_id"))
        tables.Municipalities[id] = models.Municipality{
            ID: r.Id, ExternalID: id,
            Code: r.GetString("code"), Name: r.GetString("name"),
        }
    }

    wards, err := s.app.Dao().FindRecordsByExpr("wards")
    if err != nil {
        return nil, fmt.Errorf("failed to load wards: %w", err)
    }
    for _, r := range wards {
        id := int64(r.GetInt("external_id"))
        tables.Wards[id] = models.Ward{
            ID: r.Id, ExternalID: id,
            Code: r.GetString("code"), Name: r.GetString("name"),
            MunicipalityID: int64(r.GetInt("municipality_id")),
            WardNumber:     r.GetInt("ward_number"),
        }
    }

    districts, err := s.app.Dao().FindRecordsByExpr("voting_districts")
    if err != nil {
        return nil, fmt.Errorf("failed to load voting districts: %w", err)
    }
    for _, r := range districts {
        id := int64(r.GetInt("external_id"))
        tables.VotingDistricts[id] = models.VotingDistrict{
            ID: r.Id, ExternalID: id,
            Code: r.GetString("code"), Name: r.GetString("name"),
            WardID: int64(r.GetInt("ward_id")),
        }
    }

    return tables, nil
}

// SaveBatch persists or updates a batch report under its batch id.
func (s *PocketBaseStore) SaveBatch(report *models.BatchReport, status models.BatchStatus, sourceName string) error {
    collection, err := s.app.Dao().FindCollectionByNameOrId("upload_batches")
    if err != nil {
        return fmt.Errorf("failed to find collection: %w", err)
    }

    records, err := s.app.Dao().FindRecordsByExpr("upload_batches", dbx.HashExp{"batch_id": report.BatchID})
    if err != nil {
        return fmt.Errorf("failed to query batches: %w", err)
    }

    var record *pbModels.Record
    if len(records) > 0 {
        record = records[0]
    } else {
        record = pbModels.NewRecord(collection)
    }

    record.Set("batch_id", report.BatchID)
    record.Set("source_name", sourceName)
    record.Set("status", string(status))
    record.Set("total", report.Total)
    record.Set("skipped", report.Skipped)
    record.Set("verified", report.Verified)
    record.Set("errors", report.Errors)
    record.Set("registered_in_ward", report.Counts[models.CategoryRegisteredInWard])
    record.Set("different_ward", report.Counts[models.CategoryDifferentWard])
    record.Set("not_registered", report.Counts[models.CategoryNotRegistered])
    record.Set("deceased", report.Counts[models.CategoryDeceased])
    record.Set("api_error", report.Counts[models.CategoryAPIError])

    if err := s.app.Dao().SaveRecord(record); err != nil {
        return fmt.Errorf("failed to save batch: %w", err)
    }
    return nil
}

func batchFromRecord(r *pbModels.Record) *StoredBatch {
    report := &models.BatchReport{
        BatchID:  r.GetString("batch_id"),
        Total:    r.GetInt("total"),
        Skipped:  r.GetInt("skipped"),
        Verified: r.GetInt("verified"),
        Errors:   r.GetInt("errors"),
        Counts: map[models.Category]int{
            models.CategoryRegisteredInWard: r.GetInt("registered_in_ward"),
            models.CategoryDifferentWard:    r.GetInt("different_ward"),
            models.CategoryNotRegistered:    r.GetInt("not_registered"),
            models.CategoryDeceased:         r.GetInt("deceased"),
            models.CategoryAPIError:         r.GetInt("api_error"),
        },
        CreatedAt: r.GetCreated().Time(),
    }
    return &StoredBatch{
        Report:     report,
        Status:     models.BatchStatus(r.GetString("status")),
        SourceName: r.GetString("source_name"),
    }
}

// GetBatch fetches one stored batch by batch id.
func (s *PocketBaseStore) GetBatch(batchID string) (*StoredBatch, error) {
    records, err := s.app.Dao().FindRecordsByExpr("upload_batches", dbx.HashExp{"batch_id": batchID})
    if err != nil {
        return nil, fmt.Errorf("failed to query batches: %w", err)
    }
    if len(records) == 0 {
        return nil, fmt.Errorf("batch not found: %s", batchID)
    }
    return batchFromRecord(records[0]), nil
}

// GetAllBatches lists every stored batch.
func (s *PocketBaseStore) GetAllBatches() ([]*StoredBatch, error) {
    records, err := s.app.Dao().FindRecordsByExpr("upload_batches")
    if err != nil {
        return nil, fmt.Errorf("failed to fetch batches: %w", err)
    }
    batches := make([]*StoredBatch, len(records))
    for i, r := range records {
        batches[i] = batchFromRecord(r)
    }
    return batches, nil
}

// SaveOutcomes persists one audit row per annotated record.
func (s *PocketBaseStore) SaveOutcomes(batchID string, records []*models.Record) error {
    collection, err := s.app.Dao().FindCollectionByNameOrId("verification_outcomes")
    if err != nil {
        return fmt.Errorf("failed to find collection: %w", err)
    }

    for _, rec := range records {
        out := rec.Outcome
        if out == nil {
            continue
        }
        record := pbModels.NewRecord(collection)
        record.Set("batch_id", batchID)
        record.Set("row", rec.Row)
        record.Set("id_number", rec.IDNumber)
        record.Set("skipped", out.Skipped)
        record.Set("skip_reason", out.SkipReason)
        record.Set("category", string(out.Category))
        record.Set("verified", out.Verified)
        if out.MatchedWard != nil {
            record.Set("matched_ward", *out.MatchedWard)
        }
        record.Set("province_code", out.ProvinceCode)
        record.Set("municipality_code", out.MunicipalityCode)
        record.Set("ward_code", out.WardCode)
        record.Set("ward_name", out.WardName)
        record.Set("voting_district", out.VotingDistrict)
        record.Set("voting_station", out.VotingStation)
        record.Set("detail", out.Detail)
        if len(out.RawPayload) > 0 {
            record.Set("raw", string(out.RawPayload))
        }

        if err := s.app.Dao().SaveRecord(record); err != nil {
            return fmt.Errorf("failed to save outcome for row %d: %w", rec.Row, err)
        }
    }
    return nil
}

// GetOutcomes reads back the audit rows of one batch.
func (s *PocketBaseStore) GetOutcomes(batchID string) ([]*models.Record, error) {
    records, err := s.app.Dao().FindRecordsByExpr("verification_outcomes", dbx.HashExp{"batch_id": batchID})
    if err != nil {
        return nil, fmt.Errorf("failed to fetch outcomes: %w", err)
    }

    result := make([]*models.Record, len(records))
    for i, r := range records {
        out := &models.Outcome{
            Skipped:          r.GetBool("skipped"),
            SkipReason:       r.GetString("skip_reason"),
            Category:         models.Category(r.GetString("category")),
            Verified:         r.GetBool("verified"),
            ProvinceCode:     r.GetString("province_code"),
            MunicipalityCode: r.GetString("municipality_code"),
            WardCode:         r.GetString("ward_code"),
            WardName:         r.GetString("ward_name"),
            VotingDistrict:   r.GetString("voting_district"),
            VotingStation:    r.GetString("voting_station"),
            Detail:           r.GetString("detail"),
        }
        if raw := r.GetString("raw"); raw != "" {
            out.RawPayload = json.RawMessage(raw)
        }
        result[i] = &models.Record{
            Row:      r.GetInt("row"),
            IDNumber: r.GetString("id_number"),
            Outcome:  out,
        }
    }
    return result, nil
}
