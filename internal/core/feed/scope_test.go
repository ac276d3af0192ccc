package feed

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		want  string
		scope Scope
	}{
		{name: "global", base: "http://h/auth/posts", scope: Global(), want: "http://h/auth/posts"},
		{name: "community", base: "http://h/auth/posts", scope: Community(4), want: "http://h/auth/posts?community=4"},
		{name: "project", base: "http://h/auth/posts", scope: Project(9), want: "http://h/auth/posts?project=9"},
		{name: "post comments", base: "http://h/auth/comments", scope: Post(31), want: "http://h/auth/comments?post=31"},
		{name: "user projects", base: "http://h/auth/projects", scope: User("ada lovelace"), want: "http://h/auth/projects?username=ada+lovelace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildURL(tt.base, tt.scope)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildURL_InvalidScope(t *testing.T) {
	_, err := BuildURL("http://h/auth/posts", Scope{})
	assert.ErrorIs(t, err, ErrScopeUnresolved)

	_, err = BuildURL("http://h/auth/posts", Post(0))
	assert.ErrorIs(t, err, ErrInvalidScope)

	_, err = BuildURL("http://h/auth/posts", User(""))
	assert.ErrorIs(t, err, ErrInvalidScope)

	_, err = BuildURL("http://h/auth/posts", Scope{Kind: ScopeKind(77)})
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestScope_Key(t *testing.T) {
	assert.Equal(t, "global", Global().Key())
	assert.Equal(t, "community:3", Community(3).Key())
	assert.Equal(t, "project:8", Project(8).Key())
	assert.Equal(t, "post:5", Post(5).Key())
	assert.Equal(t, "user:ada", User("ada").Key())
	assert.Equal(t, "unresolved", Scope{}.Key())
	assert.False(t, Scope{}.IsResolved())
	assert.True(t, Global().IsResolved())
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    Scope
		wantErr error
	}{
		{name: "no qualifier", query: "", want: Global()},
		{name: "community", query: "community=4", want: Community(4)},
		{name: "project", query: "project=9", want: Project(9)},
		{name: "post", query: "post=31", want: Post(31)},
		{name: "user", query: "username=ada+lovelace", want: User("ada lovelace")},
		{name: "zero id", query: "community=0", wantErr: ErrInvalidScope},
		{name: "not a number", query: "project=abc", wantErr: ErrInvalidScope},
		{name: "two qualifiers", query: "community=4&username=ada", wantErr: ErrInvalidScope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := ParseScope(q)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseScope_RoundTrip(t *testing.T) {
	for _, scope := range []Scope{Global(), Community(2), Project(3), Post(4), User("grace")} {
		raw, err := BuildURL("http://h/auth/posts", scope)
		require.NoError(t, err)
		u, err := url.Parse(raw)
		require.NoError(t, err)

		got, err := ParseScope(u.Query())
		require.NoError(t, err)
		assert.Equal(t, scope, got)
	}
}
