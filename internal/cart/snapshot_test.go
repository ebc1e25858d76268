package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "fakestore_cart", Key(""))
	assert.Equal(t, "fakestore_cart:abc", Key("abc"))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	items := apply(Add(bracelet), Add(backpack), Add(bracelet))

	data, err := Encode(items)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, items, decoded)
}

func TestEncode_FlatLayout(t *testing.T) {
	data, err := Encode([]domain.LineItem{{Product: domain.Product{ID: 7, Title: "Ring", Price: 9.99}, Quantity: 3}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":7,"title":"Ring","price":9.99,"description":"","category":"","image":"","rating":{"rate":0,"count":0},"quantity":3}]`, string(data))

	data, err = Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestDecode_DropsInvalidLines(t *testing.T) {
	data := []byte(`[
		{"id":1,"title":"Backpack","price":109.95,"quantity":2},
		{"id":2,"title":"Zero","price":1,"quantity":0},
		{"id":0,"title":"No id","price":1,"quantity":1},
		{"id":1,"title":"Backpack again","price":109.95,"quantity":5},
		{"id":3,"title":"Shirt","price":22.3,"quantity":1}
	]`)

	items, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, int64(3), items[1].ID)
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	assert.Error(t, err)

	items, err := Decode([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, items)
}
