package common_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"fjacquet/kakeibo/cmd/common"
	"fjacquet/kakeibo/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func sample(t *testing.T) []models.Transaction {
	t.Helper()
	amount := decimal.NewFromInt(1200)
	clock := func() time.Time { return now.Add(-2 * time.Hour) }

	lunch, err := models.NewTransactionBuilder().
		WithClock(clock).
		WithAmount(&amount).
		WithDate(time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)).
		WithMemo("ランチ").
		WithCategory("食費").
		WithSourceText("ランチ ¥1,200").
		WithSource(models.SourceShareExtension).
		Build()
	require.NoError(t, err)

	blank, err := models.NewTransactionBuilder().
		WithClock(clock).
		WithDate(time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC)).
		AsPrivate(true).
		Build()
	require.NoError(t, err)
	return []models.Transaction{lunch, blank}
}

func TestPrintTransactions(t *testing.T) {
	var buf bytes.Buffer
	txs := sample(t)
	require.NoError(t, common.PrintTransactions(&buf, txs, now))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "AMOUNT")
	assert.Contains(t, lines[1], common.ShortID(txs[0]))
	assert.Contains(t, lines[1], "¥1,200")
	assert.Contains(t, lines[1], "食費")
	assert.Contains(t, lines[1], "2 hours ago")
	assert.Contains(t, lines[2], "app (private)")

	buf.Reset()
	require.NoError(t, common.PrintTransactions(&buf, nil, now))
	assert.Equal(t, "取引はありません\n", buf.String())
}

func TestPrintTransaction(t *testing.T) {
	var buf bytes.Buffer
	tx := sample(t)[0]
	require.NoError(t, common.PrintTransaction(&buf, tx, now))

	out := buf.String()
	assert.Contains(t, out, tx.ID.String())
	assert.Contains(t, out, "2024年6月14日")
	assert.Contains(t, out, "Shared text: ランチ ¥1,200")
	assert.Contains(t, out, "share_extension")
}

func TestWriteTransactions_Formats(t *testing.T) {
	txs := sample(t)

	var csvOut bytes.Buffer
	require.NoError(t, common.WriteTransactions(&csvOut, txs, "csv", now))
	assert.True(t, strings.HasPrefix(csvOut.String(), "id,date,amount"))

	var jsonOut bytes.Buffer
	require.NoError(t, common.WriteTransactions(&jsonOut, txs, "json", now))
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "1200", rows[0]["amount"])
	assert.NotContains(t, rows[1], "amount")

	var table bytes.Buffer
	require.NoError(t, common.WriteTransactions(&table, txs, "table", now))
	assert.Contains(t, table.String(), "CATEGORY")

	assert.Error(t, common.WriteTransactions(&table, txs, "xml", now))
}

func TestReadText(t *testing.T) {
	got, err := common.ReadText([]string{"ランチ", "¥800"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ランチ ¥800", got)

	got, err = common.ReadText(nil, strings.NewReader("Amazon\n¥3,980\n"))
	require.NoError(t, err)
	assert.Equal(t, "Amazon\n¥3,980\n", got)
}

func TestParseID(t *testing.T) {
	_, err := common.ParseID("nope")
	assert.ErrorContains(t, err, "invalid transaction id")

	tx := sample(t)[0]
	id, err := common.ParseID(" " + tx.ID.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, tx.ID, id)
}

func TestParseDateFlag(t *testing.T) {
	got, err := common.ParseDateFlag("", now, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = common.ParseDateFlag("today", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), *got)

	got, err = common.ParseDateFlag("2024/03/01", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *got)

	_, err = common.ParseDateFlag("someday", now, time.UTC)
	assert.Error(t, err)
}

func TestParseMonth(t *testing.T) {
	got, err := common.ParseMonth("", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, now, got)

	for _, in := range []string{"2024-03", "2024/03", "202403"} {
		got, err := common.ParseMonth(in, now, time.UTC)
		require.NoError(t, err, in)
		assert.Equal(t, time.March, got.Month())
		assert.Equal(t, 2024, got.Year())
	}

	_, err = common.ParseMonth("March", now, time.UTC)
	assert.Error(t, err)
}

func TestOptionalValues(t *testing.T) {
	assert.Nil(t, common.OptionalString("  "))
	assert.Equal(t, "食費", *common.OptionalString("食費"))

	amount, err := common.ParseAmountFlag("")
	require.NoError(t, err)
	assert.Nil(t, amount)

	amount, err = common.ParseAmountFlag("１，５００円")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1500).Equal(*amount))
}
