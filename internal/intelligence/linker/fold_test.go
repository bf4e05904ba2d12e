package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  Ibrance ", "ibrance"},
		{"ＣＤＫ４", "cdk4"},
		{"Straße", "strasse"},
		{"阿司匹林", "阿司匹林"},
		{"", ""},
		{"   ", ""},
		{"PD-0332991", "pd-0332991"},
		{"Breast Cancer", "breast cancer"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Fold(tc.in), tc.in)
	}
}

func TestFold_Idempotent(t *testing.T) {
	for _, s := range []string{"Ibrance", "ＣＤＫ４", "Straße", "ΣΊΣΥΦΟΣ", "阿司匹林肠溶片"} {
		once := Fold(s)
		assert.Equal(t, once, Fold(once), s)
	}
}

func TestTrie_FirstInsertWins(t *testing.T) {
	tr := NewTrie()
	a := &Record{Key: "asa", Text: "ASA"}
	b := &Record{Key: "asa", Text: "asa"}

	got, ok := tr.Insert("asa", a)
	assert.True(t, ok)
	assert.Same(t, a, got)

	got, ok = tr.Insert("asa", b)
	assert.False(t, ok)
	assert.Same(t, a, got)

	_, ok = tr.Insert("as", b)
	assert.True(t, ok)
	assert.Equal(t, 2, tr.Len())

	rec, ok := tr.Lookup("asa")
	assert.True(t, ok)
	assert.Same(t, a, rec)

	_, ok = tr.Lookup("a")
	assert.False(t, ok, "prefixes are not keys")
	_, ok = tr.Lookup("asaa")
	assert.False(t, ok)
}

func TestTrie_UnicodeKeys(t *testing.T) {
	tr := NewTrie()
	r := &Record{Key: "阿司匹林"}
	tr.Insert("阿司匹林", r)

	got, ok := tr.Lookup("阿司匹林")
	assert.True(t, ok)
	assert.Same(t, r, got)
	_, ok = tr.Lookup("阿司匹")
	assert.False(t, ok)
}

//Personal.AI order the ending
