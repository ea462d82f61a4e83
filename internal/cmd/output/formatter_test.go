package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/scansync/internal/cmd/table"
)

type ingestRecord struct {
	StudyID  string `json:"study_id"`
	File     string `json:"file"`
	Verified bool   `json:"verified"`
	internal string
	Ignored  string `json:"-"`
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", "wide"} {
		f, err := ParseFormat(s)
		assert.NoError(t, err, s)
		assert.Equal(t, Format(strings.ToLower(s)), f)
	}

	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Empty(t, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	f, err := Resolve("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = Resolve("csv")
	assert.Error(t, err)

	// Test binaries never run with a terminal on stdout
	f, err = Resolve("")
	require.NoError(t, err)
	assert.Contains(t, []Format{FormatJSON, FormatTable}, f)
}

func TestWrite(t *testing.T) {
	rows := Data{
		Headers:         []string{"Study", "File"},
		Rows:            [][]string{{"sonar.ssl", "a.gz"}},
		ColumnAlignment: []table.Align{table.AlignLeft, table.AlignRight},
	}
	raw := map[string]any{"files": []string{"a.gz"}}

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatTable, rows, raw))
		assert.Contains(t, strings.ToUpper(buf.String()), "STUDY")
		assert.Contains(t, buf.String(), "a.gz")
		assert.NotContains(t, buf.String(), "{")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatJSON, rows, raw))
		assert.JSONEq(t, `{"files":["a.gz"]}`, buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatYAML, rows, map[string]any{"study": "sonar.ssl"}))
		assert.Contains(t, buf.String(), "study: sonar.ssl")
	})
}

func TestRecord(t *testing.T) {
	data := Record(&ingestRecord{StudyID: "sonar.ssl", Verified: true, internal: "x", Ignored: "y"})
	assert.Equal(t, []string{"Property", "Value"}, data.Headers)
	assert.Equal(t, [][]string{
		{"Study Id", "sonar.ssl"},
		{"File", "-"},
		{"Verified", "true"},
	}, data.Rows)

	var nilRecord *ingestRecord
	assert.Empty(t, Record(nilRecord).Rows)

	assert.Equal(t, [][]string{{"Value", "42"}}, Record(42).Rows)
}

func TestWriteRecord(t *testing.T) {
	record := ingestRecord{StudyID: "sonar.ssl", File: "20200101_certs.gz"}

	var tbl bytes.Buffer
	require.NoError(t, WriteRecord(&tbl, FormatWide, record))
	assert.Contains(t, tbl.String(), "20200101_certs.gz")
	assert.Contains(t, tbl.String(), "sonar.ssl")

	var js bytes.Buffer
	require.NoError(t, WriteRecord(&js, FormatJSON, record))
	var got map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &got))
	assert.Equal(t, "20200101_certs.gz", got["file"])
	assert.NotContains(t, got, "Ignored")
}
