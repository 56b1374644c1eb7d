package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderJSON = `{
	"source_swap": {"chain": "bitcoin", "asset": "primary", "amount": "12000", "redeem_tx_hash": "aa"},
	"destination_swap": {"chain": "ethereum", "asset": "0x795d", "amount": "11964", "redeem_tx_hash": "bb"},
	"create_order": {"create_id": "order-1", "source_chain": "bitcoin", "destination_chain": "ethereum"}
}`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadOrders_Single(t *testing.T) {
	orders, err := readOrders(writeFile(t, orderJSON))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "order-1", orders[0].OrderID())
}

func TestReadOrders_Array(t *testing.T) {
	orders, err := readOrders(writeFile(t, "["+orderJSON+","+orderJSON+"]"))
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestReadOrders_Missing(t *testing.T) {
	_, err := readOrders(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
