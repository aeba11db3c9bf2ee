package ingest

import (
    "archive/zip"
    "bytes"
    "context"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

const sampleCSV = `ID Number,Ward,First Name,Cell
9001016804089,41804011.0,Thabo,0821234567
841202 0217088.0,41804012,Lerato,0837654321
not-an-id,,Sipho,
`

func TestCSVSourceRead(t *testing.T) {
    source := NewCSVSource()
    records, err := source.Read(context.Background(), strings.NewReader(sampleCSV))
    require.NoError(t, err)
    require.Len(t, records, 3)

    assert.Equal(t, 0, records[0].Row)
    assert.Equal(t, "9001016804089", records[0].IDNumber)
    assert.Equal(t, "41804011", records[0].ExpectedWard, "float-suffixed ward collapses")
    assert.Equal(t, "Thabo", records[0].Attributes["first name"])
    assert.Equal(t, "0821234567", records[0].Attributes["cell"])

    assert.Equal(t, "8412020217088", records[1].IDNumber, "spaced float-suffixed id normalizes")
    assert.Equal(t, "41804012", records[1].ExpectedWard)

    // Malformed id rows still come through; prescreen excludes them later.
    assert.Equal(t, "not-an-id", records[2].RawID)
    assert.Empty(t, records[2].IDNumber)
    assert.Empty(t, records[2].ExpectedWard)
}

func TestCSVSourceRequiresIDColumn(t *testing.T) {
    source := NewCSVSource()
    _, err := source.Read(context.Background(), strings.NewReader("Name,Ward\nThabo,41804011\n"))
    require.Error(t, err)

    var parseErr *ParseError
    require.ErrorAs(t, err, &parseErr)
    assert.Equal(t, "headers", parseErr.Stage)
}

func TestCSVSourceToleratesShortRows(t *testing.T) {
    source := NewCSVSource()
    records, err := source.Read(context.Background(), strings.NewReader("ID Number,Ward,Name\n9001016804089\n"))
    require.NoError(t, err)
    require.Len(t, records, 1)
    assert.Equal(t, "9001016804089", records[0].IDNumber)
    assert.Empty(t, records[0].ExpectedWard)
}

func TestZIPSourceConcatenatesCSVMembers(t *testing.T) {
    var buf bytes.Buffer
    w := zip.NewWriter(&buf)

    f1, err := w.Create("branch_a.csv")
    require.NoError(t, err)
    f1.Write([]byte("ID Number,Ward\n9001016804089,41804011\n"))

    f2, err := w.Create("notes.txt")
    require.NoError(t, err)
    f2.Write([]byte("ignore me"))

    f3, err := w.Create("branch_b.csv")
    require.NoError(t, err)
    f3.Write([]byte("ID Number,Ward\n8001015009087,41804012\n"))

    require.NoError(t, w.Close())

    source := NewZIPSource()
    records, err := source.Read(context.Background(), &buf)
    require.NoError(t, err)
    require.Len(t, records, 2)
    assert.Equal(t, 0, records[0].Row)
    assert.Equal(t, 1, records[1].Row)
    assert.Equal(t, "9001016804089", records[0].IDNumber)
    assert.Equal(t, "8001015009087", records[1].IDNumber)
}

func TestSourceManager(t *testing.T) {
    m := NewSourceManager()

    records, err := m.ReadBatch(context.Background(), "csv", strings.NewReader("ID Number\n9001016804089\n"))
    require.NoError(t, err)
    assert.Len(t, records, 1)

    _, err = m.ReadBatch(context.Background(), "xlsx", strings.NewReader(""))
    require.Error(t, err)
    assert.Contains(t, err.Error(), "no source found for method: xlsx")
}
