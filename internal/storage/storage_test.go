package storage

import "testing"

func TestListQueryNormalize(t *testing.T) {
	cases := []struct {
		in   ListQuery
		want ListQuery
	}{
		{ListQuery{}, ListQuery{Order: "latest", Page: 1, PageSize: defaultPageSize}},
		{ListQuery{Source: "icy", Order: "oldest", Page: 3, PageSize: 50}, ListQuery{Source: "icy", Order: "oldest", Page: 3, PageSize: 50}},
		{ListQuery{Order: "hot", Page: -1, PageSize: 1000}, ListQuery{Order: "latest", Page: 1, PageSize: defaultPageSize}},
	}
	for _, c := range cases {
		if got := c.in.normalize(); got != c.want {
			t.Fatalf("normalize(%+v) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestListQueryOrderAndCacheKey(t *testing.T) {
	q := ListQuery{Source: "mmo", Order: "oldest", Page: 2, PageSize: 10}
	if got := q.orderClause(); got != "posted_at ASC" {
		t.Fatalf("orderClause = %q", got)
	}
	if got := q.cacheKey(); got != "posts:list:mmo:oldest:2:10" {
		t.Fatalf("cacheKey = %q", got)
	}
	if got := (ListQuery{Order: "latest"}).orderClause(); got != "posted_at DESC" {
		t.Fatalf("latest orderClause = %q", got)
	}
	if got := (ListQuery{Order: "title"}).orderClause(); got != "title ASC" {
		t.Fatalf("title orderClause = %q", got)
	}
}

func TestTruncateRunesDB(t *testing.T) {
	if got := truncateRunesDB("  abc  ", 10); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := truncateRunesDB("战士战士战士", 2); got != "战士" {
		t.Fatalf("got %q", got)
	}
	if got := truncateRunesDB("abc", 0); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestToValidUTF8(t *testing.T) {
	if got := toValidUTF8("war\xffrior"); got != "war\uFFFDrior" {
		t.Fatalf("got %q", got)
	}
}
