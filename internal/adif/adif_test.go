package adif_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/txmon/internal/adif"
	"github.com/Norgate-AV/txmon/internal/testutil"
)

func TestParse_WSJTXLog(t *testing.T) {
	t.Parallel()

	records, err := adif.Parse(strings.NewReader(testutil.SampleADIF))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "K1ABC", records[0].Get("CALL"))
	assert.Equal(t, "FN42", records[0].Get("gridsquare"))
	assert.Equal(t, "-10", records[0].Get("rst_sent"))
	assert.Equal(t, "DL1XYZ", records[1].Call())
	assert.Empty(t, records[0].Get("programid"), "Header fields are not records")
}

func TestParse_NoHeader(t *testing.T) {
	t.Parallel()

	records, err := adif.Parse(strings.NewReader("<CALL:4>W1AW<BAND:3>40m<EOR>\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "W1AW", records[0].Call())
	assert.Equal(t, "40m", records[0].Get("band"))
}

func TestParse_TypedFieldsAndMixedCase(t *testing.T) {
	t.Parallel()

	data := "header\n<eoh>\n<Call:5:S>ve3xx <QSO_DATE:8:D>20240101 <Eor>"

	records, err := adif.Parse(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "VE3XX", records[0].Call())
	assert.Equal(t, "20240101", records[0].Get("qso_date"))
	assert.Equal(t, "20240101", records[0]["QSO_DATE"], "Keys are stored upper-cased")
}

func TestParse_LengthCountsBytes(t *testing.T) {
	t.Parallel()

	records, err := adif.Parse(strings.NewReader("<call:4>G4ZZ<comment:10>73 <tnx> !<eor>"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "73 <tnx> !", records[0].Get("comment"), "Values may contain angle brackets")
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "truncated value", data: "<call:20>K1ABC<eor>"},
		{name: "bad length", data: "<call:x>K1ABC<eor>"},
		{name: "negative length", data: "<call:-1>K1ABC<eor>"},
		{name: "missing length", data: "<call>K1ABC<eor>"},
		{name: "unterminated tag", data: "<call:5>K1ABC<eor"},
		{name: "length past end of int", data: "<call:9223372036854775807>K1JT<eor>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var err error
			require.NotPanics(t, func() {
				_, err = adif.Parse(strings.NewReader(tt.data))
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, adif.ErrMalformed)
		})
	}
}

func TestParse_IncompleteTrailingRecord(t *testing.T) {
	t.Parallel()

	records, err := adif.Parse(strings.NewReader("<call:4>W1AW<eor><call:5>K1ABC"))
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	records, err := adif.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	dir := testutil.CreateTempDir(t)
	path := testutil.WriteFile(t, dir, "wsjtx_log.adi", testutil.SampleADIF)

	records, err := adif.ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = adif.ParseFile(dir + "/missing.adi")
	assert.Error(t, err)
}

func TestCallsigns_UniqueInOrder(t *testing.T) {
	t.Parallel()

	records := []adif.Record{
		{"CALL": "k1abc"},
		{"CALL": "DL1XYZ"},
		{"CALL": "K1ABC"},
		{"BAND": "20m"},
		{"CALL": " g4zz "},
	}

	assert.Equal(t, []string{"K1ABC", "DL1XYZ", "G4ZZ"}, adif.Callsigns(records))
}

func TestIndex(t *testing.T) {
	t.Parallel()

	records := []adif.Record{
		{"CALL": "K1ABC"},
		{"CALL": "DL1XYZ"},
		{"CALL": "k1abc"},
	}

	idx := adif.NewIndex(records)
	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.Worked("k1abc"))
	assert.Equal(t, 2, idx.QSOs("K1ABC"))
	assert.Equal(t, 1, idx.QSOs("dl1xyz"))
	assert.False(t, idx.Worked("W1AW"))
	assert.Equal(t, []string{"K1ABC", "DL1XYZ"}, idx.Callsigns())
}
