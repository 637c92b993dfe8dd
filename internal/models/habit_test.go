package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitloop/internal/constants"
)

func TestHabitCategory(t *testing.T) {
	assert.Equal(t, constants.CategoryOther, Habit{}.Category())
	assert.Equal(t, constants.CategoryOther, Habit{ParsedData: ParsedItems{{Activity: "x"}}}.Category())

	h := Habit{ParsedData: ParsedItems{
		{Activity: "running", Category: constants.CategoryFitness},
		{Activity: "reading", Category: constants.CategoryLearning},
	}}
	assert.Equal(t, constants.CategoryFitness, h.Category())
}

func TestParsedItemsScan(t *testing.T) {
	tests := []struct {
		name    string
		src     interface{}
		want    ParsedItems
		wantErr bool
	}{
		{name: "nil", src: nil, want: ParsedItems{}},
		{name: "empty bytes", src: []byte{}, want: ParsedItems{}},
		{name: "json null", src: "null", want: ParsedItems{}},
		{
			name: "text column",
			src:  `[{"activity":"running","quantity":5,"unit":"miles","category":"fitness","confidence":0.95}]`,
			want: ParsedItems{{Activity: "running", Quantity: 5, Unit: "miles", Category: constants.CategoryFitness, Confidence: 0.95}},
		},
		{name: "jsonb bytes", src: []byte(`[{"activity":"meditation"}]`), want: ParsedItems{{Activity: "meditation"}}},
		{name: "malformed", src: "{not json", wantErr: true},
		{name: "unsupported type", src: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ParsedItems
			err := got.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsedItemsValueNil(t *testing.T) {
	v, err := ParsedItems(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}
