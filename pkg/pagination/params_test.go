package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_Validate(t *testing.T) {
	cases := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"valid defaults", Params{Page: 1, Limit: 50}, false},
		{"zero limit allowed, resolved by SetDefaults", Params{Page: 1, Limit: 0}, false},
		{"page below 1 rejected", Params{Page: 0, Limit: 50}, true},
		{"non-whitelisted limit rejected", Params{Page: 1, Limit: 33}, true},
		{"invalid sort dir rejected", Params{Page: 1, Limit: 50, SortDir: "sideways"}, true},
		{"offset beyond MaxOffset rejected", Params{Page: 10000, Limit: 100}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.params.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParams_SetDefaults(t *testing.T) {
	p := Params{}
	p.SetDefaults("created_at")

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.Limit)
	assert.Equal(t, "created_at", p.SortBy)
	assert.Equal(t, "desc", p.SortDir)
}

func TestParams_SetDefaults_PreservesValidExplicitValues(t *testing.T) {
	p := Params{Page: 3, Limit: 25, SortBy: "name", SortDir: "asc"}
	p.SetDefaults("created_at")

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 25, p.Limit)
	assert.Equal(t, "name", p.SortBy)
	assert.Equal(t, "asc", p.SortDir)
}

func TestParams_GetOffset(t *testing.T) {
	assert.Equal(t, 0, (&Params{Page: 1, Limit: 50}).GetOffset())
	assert.Equal(t, 50, (&Params{Page: 2, Limit: 50}).GetOffset())
	assert.Equal(t, 0, (&Params{Page: 0, Limit: 50}).GetOffset())
}

func TestValidateSortField(t *testing.T) {
	allowed := []string{"name", "created_at"}

	got, err := ValidateSortField("name", allowed)
	assert.NoError(t, err)
	assert.Equal(t, "name", got)

	got, err = ValidateSortField("", allowed)
	assert.NoError(t, err)
	assert.Empty(t, got)

	_, err = ValidateSortField("DROP TABLE users;--", allowed)
	assert.Error(t, err)
}

func TestParams_GetSortOrder(t *testing.T) {
	p := Params{SortBy: "name", SortDir: "asc"}
	assert.Equal(t, "name ASC, id ASC", p.GetSortOrder("created_at", "id"))

	p2 := Params{}
	assert.Equal(t, "created_at DESC, id DESC", p2.GetSortOrder("created_at", "id"))
}

func TestCalculateTotalPages(t *testing.T) {
	assert.Equal(t, 0, CalculateTotalPages(0, 50))
	assert.Equal(t, 1, CalculateTotalPages(50, 50))
	assert.Equal(t, 2, CalculateTotalPages(51, 50))
	assert.Equal(t, 0, CalculateTotalPages(100, 0))
}

func TestIsValidPageSize(t *testing.T) {
	assert.True(t, IsValidPageSize(10))
	assert.True(t, IsValidPageSize(100))
	assert.False(t, IsValidPageSize(33))
}
