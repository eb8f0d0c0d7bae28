package golden

import (
	"errors"
	"slices"
	"testing"
)

func TestRequiredField(t *testing.T) {
	_, err := NewRequestBuilder().Target("/x").Build()
	var be *RequestBuilderError
	if !errors.As(err, &be) || be.Field != "Method" {
		t.Fatalf("want missing Method, got %v", err)
	}
}

func TestDefaults(t *testing.T) {
	r, err := NewRequestBuilder().Method("GET").Build()
	if err != nil {
		t.Fatal(err)
	}
	if r.Target != "/" || r.Retries != 3 || r.Headers != nil {
		t.Fatalf("unexpected defaults %+v", r)
	}
}

func TestAppendAndReplace(t *testing.T) {
	b := NewRequestBuilder().Method("GET").Header("x").Header("y")
	r, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(r.Headers, []string{"x", "y"}) {
		t.Fatalf("appended %v", r.Headers)
	}
	r, err = b.Headers([]string{"z"}).Build()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(r.Headers, []string{"z"}) {
		t.Fatalf("replaced %v", r.Headers)
	}
}

func TestOwnedBranches(t *testing.T) {
	base := NewQueryBuilder().Table("t").Term("a")
	left, right := base.Term("l"), base.Term("r")
	for _, tt := range []struct {
		b    QueryBuilder
		want []string
	}{
		{b: base, want: []string{"a"}},
		{b: left, want: []string{"a", "l"}},
		{b: right, want: []string{"a", "r"}},
	} {
		q, err := tt.b.Build()
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(q.Terms, tt.want) {
			t.Fatalf("got %v, want %v", q.Terms, tt.want)
		}
	}
}

func TestImmutableBranches(t *testing.T) {
	base := NewRouteBuilder().Name("r").Hop("a")
	left, right := base.Hop("l"), base.Hop("r")
	for _, tt := range []struct {
		b    *RouteBuilder
		want []string
	}{
		{b: base, want: []string{"a"}},
		{b: left, want: []string{"a", "l"}},
		{b: right, want: []string{"a", "r"}},
	} {
		r, err := tt.b.Build()
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(r.Hops, tt.want) {
			t.Fatalf("got %v, want %v", r.Hops, tt.want)
		}
	}
}
