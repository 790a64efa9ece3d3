package source

import (
	"context"
	"testing"

	"github.com/AleksandarIlic/ParseQueryLoader/pkg/query"
)

func TestSlice_Execute(t *testing.T) {
	src := NewSlice([]string{"a", "b", "c", "d", "e"})

	tests := []struct {
		name   string
		params query.Params
		want   []string
	}{
		{
			name:   "full window",
			params: query.Params{Skip: 0, Limit: 0},
			want:   []string{"a", "b", "c", "d", "e"},
		},
		{
			name:   "first page",
			params: query.Params{Skip: 0, Limit: 2},
			want:   []string{"a", "b"},
		},
		{
			name:   "middle window",
			params: query.Params{Skip: 2, Limit: 2},
			want:   []string{"c", "d"},
		},
		{
			name:   "window past the end",
			params: query.Params{Skip: 4, Limit: 3},
			want:   []string{"e"},
		},
		{
			name:   "skip beyond length",
			params: query.Params{Skip: 10, Limit: 2},
			want:   nil,
		},
		{
			name:   "unbounded from offset",
			params: query.Params{Skip: 3, Limit: 0},
			want:   []string{"d", "e"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := src.Execute(context.Background(), tt.params)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Execute() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Item %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSlice_ExecuteCancelledContext(t *testing.T) {
	src := NewSlice([]string{"a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.Execute(ctx, query.Params{}); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestSlice_ExecuteCopiesWindow(t *testing.T) {
	backing := []string{"a", "b", "c"}
	src := NewSlice(backing)

	got, err := src.Execute(context.Background(), query.Params{Limit: 2})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got[0] = "mutated"
	if backing[0] != "a" {
		t.Error("Execute() returned a view into the backing slice")
	}
}

func TestSlice_Replace(t *testing.T) {
	src := NewSlice([]string{"a", "b"})

	if src.Len() != 2 {
		t.Errorf("Len() = %d, want 2", src.Len())
	}

	src.Replace([]string{"x", "y", "z"})

	if src.Len() != 3 {
		t.Errorf("Len() after Replace = %d, want 3", src.Len())
	}

	got, err := src.Execute(context.Background(), query.Params{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(got) != 3 || got[0] != "x" {
		t.Errorf("Execute() after Replace = %v, want [x y z]", got)
	}
}
