package notes

import "testing"

func TestListParams_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListParams
		want ListParams
	}{
		{
			name: "zero value gets defaults",
			in:   ListParams{},
			want: ListParams{Limit: 20, Offset: 0, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name: "limit capped at max",
			in:   ListParams{Limit: 10000},
			want: ListParams{Limit: 100, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name: "negative offset clamped",
			in:   ListParams{Limit: 10, Offset: -5},
			want: ListParams{Limit: 10, Offset: 0, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name: "valid sort preserved",
			in:   ListParams{Limit: 10, SortBy: "title", SortOrder: "asc"},
			want: ListParams{Limit: 10, SortBy: "title", SortOrder: "asc"},
		},
		{
			name: "sort injection falls back to default",
			in:   ListParams{Limit: 10, SortBy: "title; DROP TABLE notes", SortOrder: "asc"},
			want: ListParams{Limit: 10, SortBy: "created_at", SortOrder: "asc"},
		},
		{
			name: "unknown order falls back to desc",
			in:   ListParams{Limit: 10, SortBy: "updated_at", SortOrder: "sideways"},
			want: ListParams{Limit: 10, SortBy: "updated_at", SortOrder: "desc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if got.Limit != tt.want.Limit || got.Offset != tt.want.Offset ||
				got.SortBy != tt.want.SortBy || got.SortOrder != tt.want.SortOrder {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
