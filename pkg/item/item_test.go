package item

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScalar(t *testing.T) {
	it, err := Build("Hello World")
	require.NoError(t, err)

	assert.Equal(t, "Hello World", it.Data)
	assert.Equal(t, DeriveID("Hello World"), it.ID)
	assert.NotNil(t, it.Tags)
	assert.Nil(t, it.OriginalData)
	assert.Nil(t, it.AdditionalKeys)
}

func TestBuildRecord(t *testing.T) {
	it, err := Build(map[string]interface{}{"id": "r-1", "data": "text", "stars": 4})
	require.NoError(t, err)
	assert.Equal(t, "r-1", it.ID)
	assert.Equal(t, "text", it.Data)
	assert.Nil(t, it.AdditionalKeys)

	it, err = Build(map[string]string{"id": "r-2", "data": "other"})
	require.NoError(t, err)
	assert.Equal(t, "r-2", it.ID)

	it, err = Build(map[string]interface{}{"id": float64(7), "data": "numbered"})
	require.NoError(t, err)
	assert.Equal(t, "7", it.ID)
}

func TestBuildEmptyIDIsDerived(t *testing.T) {
	it, err := Build(map[string]interface{}{"id": "", "data": "text"})
	require.NoError(t, err)
	assert.Equal(t, DeriveID("text"), it.ID)
}

func TestIDDeterminism(t *testing.T) {
	texts := []string{"", "a", "This isn't a TEST sentence!", "ünïcödé"}
	for _, text := range texts {
		first, err := Build(text)
		require.NoError(t, err)
		second, err := Build(map[string]interface{}{"data": text})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID, "text %q", text)
		assert.Equal(t, DeriveID(text), first.ID)

		parsed, err := uuid.Parse(first.ID)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(5), parsed.Version())
	}
	assert.NotEqual(t, DeriveID("a"), DeriveID("b"))
}

func TestBuildDuplicateIDsAllowed(t *testing.T) {
	a, err := Build(map[string]interface{}{"id": "same", "data": "one"})
	require.NoError(t, err)
	b, err := Build(map[string]interface{}{"id": "same", "data": "two"})
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
}

func TestBuildMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
	}{
		{"nil", nil},
		{"slice", []int{1, 2}},
		{"missing data", map[string]interface{}{"id": "x"}},
		{"nil data", map[string]interface{}{"data": nil}},
		{"nested data", map[string]interface{}{"data": map[string]interface{}{"a": 1}}},
		{"bad id", map[string]interface{}{"id": []string{"x"}, "data": "ok"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := Build(tt.raw)
			assert.Nil(t, it)
			assert.ErrorIs(t, err, ErrMalformedItem)
		})
	}
}

func TestBuildOptions(t *testing.T) {
	record := map[string]interface{}{"id": "1", "data": "Some Text", "stars": "5", "lang": "en"}

	it, err := Build(record, WithAdditionalKeys("stars", "missing"), WithPreserveOriginal(true))
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"stars": "5"}, it.AdditionalKeys)
	require.NotNil(t, it.OriginalData)
	assert.Equal(t, "Some Text", *it.OriginalData)

	it.Data = "some text"
	assert.Equal(t, "Some Text", *it.OriginalData)
}

func TestIsEmpty(t *testing.T) {
	var nilItem *Item
	assert.True(t, nilItem.IsEmpty())
	assert.True(t, (&Item{}).IsEmpty())
	assert.True(t, (&Item{Data: ""}).IsEmpty())
	assert.True(t, (&Item{Data: []string{}}).IsEmpty())
	assert.False(t, (&Item{Data: " "}).IsEmpty())
	assert.False(t, (&Item{Data: []string{"a"}}).IsEmpty())
}

func TestText(t *testing.T) {
	text, ok := (&Item{Data: []string{"a", "b"}}).Text()
	assert.True(t, ok)
	assert.Equal(t, "a b", text)

	_, ok = (&Item{Data: 3}).Text()
	assert.False(t, ok)
}

func TestClone(t *testing.T) {
	orig := &Item{
		ID:             "1",
		Data:           []string{"a", "b"},
		Tags:           map[string]interface{}{"urls": []string{"x.com"}},
		AdditionalKeys: map[string]interface{}{"k": "v"},
	}
	c := orig.Clone()
	c.Data.([]string)[0] = "z"
	c.Tags["new"] = true
	c.AdditionalKeys["k"] = "changed"

	assert.Equal(t, []string{"a", "b"}, orig.Data)
	assert.NotContains(t, orig.Tags, "new")
	assert.Equal(t, "v", orig.AdditionalKeys["k"])
	assert.Nil(t, (*Item)(nil).Clone())
}
