package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryUnmarshalsBareName(t *testing.T) {
	var c Category
	require.NoError(t, json.Unmarshal([]byte(`"roses"`), &c))

	assert.Equal(t, CategoryKindNamed, c.Kind)
	assert.Equal(t, "roses", c.Label())
}

func TestCategoryUnmarshalsStructuredObject(t *testing.T) {
	var c Category
	payload := []byte(`{"id":"c1","name":"Tulips","description":"spring flowers","isActive":true}`)
	require.NoError(t, json.Unmarshal(payload, &c))

	assert.Equal(t, CategoryKindStructured, c.Kind)
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "Tulips", c.Label())
	assert.True(t, c.IsActive)
}

func TestCategoryNormalizesNumericCategoryID(t *testing.T) {
	var c Category
	payload := []byte(`{"categoryId":7,"name":"Mixed"}`)
	require.NoError(t, json.Unmarshal(payload, &c))

	assert.Equal(t, "7", c.ID)
}

func TestCategoryNullIsZero(t *testing.T) {
	var c Category
	require.NoError(t, json.Unmarshal([]byte(`null`), &c))
	assert.True(t, c.IsZero())
}
