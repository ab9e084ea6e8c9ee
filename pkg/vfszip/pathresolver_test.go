package vfszip

import "testing"

func TestSplitParentChild(t *testing.T) {
	cases := []struct {
		in             string
		parent, child string
	}{
		{"", "", ""},
		{"a", "", "a"},
		{"a/b", "a", "b"},
		{"a/b/c", "a/b", "c"},
		{"a/", "", "a"},
		{"a/b/", "a", "b"},
		{"/a/b", "a", "b"},
	}
	for _, c := range cases {
		parent, child := splitParentChild(c.in)
		if parent != c.parent || child != c.child {
			t.Errorf("splitParentChild(%q) = (%q, %q), want (%q, %q)", c.in, parent, child, c.parent, c.child)
		}
	}
}

func TestJoinPath(t *testing.T) {
	cases := []struct {
		parent, name, want string
	}{
		{"", "a", "a"},
		{"a", "b", "a/b"},
		{"a/b", "c", "a/b/c"},
	}
	for _, c := range cases {
		got := joinPath(c.parent, c.name)
		if got != c.want {
			t.Errorf("joinPath(%q, %q) = %q, want %q", c.parent, c.name, got, c.want)
		}
	}
}
