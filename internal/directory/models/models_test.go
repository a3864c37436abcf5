package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBirthDate(t *testing.T) {
	tests := []struct {
		in      string
		want    BirthDate
		wantErr bool
	}{
		{in: "", want: BirthDate{}},
		{in: "1980", want: BirthDate{Year: 1980}},
		{in: "1980-04", want: BirthDate{Year: 1980, Month: 4}},
		{in: "1980-04-12", want: BirthDate{Year: 1980, Month: 4, Day: 12}},
		{in: "2014-01-01T00:00:00Z", want: BirthDate{Year: 2014, Month: 1, Day: 1}},
		{in: "1980-13-01", wantErr: true},
		{in: "abcd", wantErr: true},
		{in: "0000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBirthDate(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBirthDate_String(t *testing.T) {
	assert.Equal(t, "", BirthDate{}.String())
	assert.Equal(t, "1980", BirthDate{Year: 1980}.String())
	assert.Equal(t, "1980-04-02", BirthDate{Year: 1980, Month: 4, Day: 2}.String())
	assert.False(t, BirthDate{}.Known())
}

func TestPerson_Serving(t *testing.T) {
	p := Person{ID: "1", Teams: []string{"av", "kids"}}
	assert.True(t, p.Serving())
	assert.True(t, p.ServesOn("kids"))
	assert.False(t, p.ServesOn("worship"))
	assert.False(t, Person{ID: "2"}.Serving())
}
