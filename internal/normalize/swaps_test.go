package normalize

import (
	"testing"

	"walletops/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func swap(hash, in, out string) domain.NormalizedTransaction {
	return domain.NormalizedTransaction{
		Type:     domain.OperationSwap,
		TokenIn:  strPtr(in),
		TokenOut: strPtr(out),
		TxHash:   hash,
	}
}

func TestExtractUsdcToWbtcSwaps_FourRecords(t *testing.T) {
	txs := []domain.NormalizedTransaction{
		swap("0xswap1", "USDC", "WBTC"),
		{Type: domain.OperationTransfer, TokenOut: strPtr("ETH"), TxHash: "0xtransfer"},
		{Type: domain.OperationApprove, TokenIn: strPtr("USDC"), TxHash: "0xapprove"},
		swap("0xswap2", "ETH", "USDC"),
	}

	got := ExtractUsdcToWbtcSwaps(txs)
	require.Len(t, got, 1)
	assert.Equal(t, "0xswap1", got[0].TxHash)
}

func TestExtractUsdcToWbtcSwaps_AliasesAndOrder(t *testing.T) {
	txs := []domain.NormalizedTransaction{
		swap("a", "usd-coin", "wrapped-bitcoin"),
		{Type: domain.OperationTransfer, TokenIn: strPtr("USDC"), TokenOut: strPtr("WBTC"), TxHash: "b"},
		swap("c", " usdc ", "Wrapped-BTC"),
		swap("d", "WBTC", "USDC"),
		swap("e", "Usdc", "wbtc"),
		{Type: domain.OperationSwap, TokenIn: strPtr("USDC"), TxHash: "f"},
	}

	got := ExtractUsdcToWbtcSwaps(txs)
	hashes := make([]string, 0, len(got))
	for _, tx := range got {
		hashes = append(hashes, tx.TxHash)
	}
	assert.Equal(t, []string{"a", "c", "e"}, hashes)
}

func TestExtractUsdcToWbtcSwaps_Empty(t *testing.T) {
	assert.Empty(t, ExtractUsdcToWbtcSwaps(nil))
}

func TestAliasTable_Matches(t *testing.T) {
	table := DefaultAliases()
	for _, token := range []string{" usdc ", "USDC", "Usdc", "usd-coin", "USD-COIN"} {
		assert.True(t, table.Matches(strPtr(token), "USDC"), "token %q", token)
	}
	assert.False(t, table.Matches(strPtr("usdt"), "USDC"))
	assert.False(t, table.Matches(strPtr("   "), "USDC"))
	assert.False(t, table.Matches(nil, "USDC"))
	assert.True(t, table.Matches(strPtr("dai"), "DAI"))
	assert.False(t, table.Matches(strPtr("xdai"), "DAI"))
}

func TestAliasTable_MergeDoesNotMutate(t *testing.T) {
	base := DefaultAliases()
	merged := base.Merge(AliasTable{
		"usdc": {"USDC.e", "usdc"},
		"WETH": {"weth", "wrapped-ether"},
	})

	assert.Equal(t, []string{"usdc", "usd-coin"}, base["USDC"])
	assert.Equal(t, []string{"usdc", "usd-coin", "usdc.e"}, merged["USDC"])
	assert.Equal(t, []string{"USDC", "WBTC", "WETH"}, merged.Symbols())
	assert.NotContains(t, base, "WETH")
}

func TestParseAliasTable(t *testing.T) {
	table, err := ParseAliasTable([]byte(`
usdc: [USDC.e, usd-coin]
WETH:
  - weth
  - " Wrapped-Ether "
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"usdc.e", "usd-coin"}, table["USDC"])
	assert.Equal(t, []string{"weth", "wrapped-ether"}, table["WETH"])

	_, err = ParseAliasTable([]byte("USDC: [unterminated"))
	assert.Error(t, err)

	_, err = ParseAliasTable([]byte(`"  ": [x]`))
	assert.Error(t, err)
}

func TestPairFilter_CustomTable(t *testing.T) {
	table := DefaultAliases().Merge(AliasTable{"WETH": {"wrapped-ether"}})
	filter := NewPairFilter(table, "weth", "usdc")

	txs := []domain.NormalizedTransaction{
		swap("1", "wrapped-ether", "usd-coin"),
		swap("2", "USDC", "WBTC"),
		swap("3", "WETH", "USDC"),
	}
	got := filter.Apply(txs)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].TxHash)
	assert.Equal(t, "3", got[1].TxHash)
	assert.Equal(t, "WETH->USDC", filter.String())
}

func TestNormalizeThenFilter(t *testing.T) {
	raws := decodeRaw(t, historyFixture)
	swaps := ExtractUsdcToWbtcSwaps(New(WithClock(fixedClock)).NormalizeTransactions(raws))
	require.Len(t, swaps, 1)
	assert.Equal(t, "0xswap1", swaps[0].TxHash)
	require.NotNil(t, swaps[0].AmountIn)
	assert.Equal(t, "1500", *swaps[0].AmountIn)
}
