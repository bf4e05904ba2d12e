package drug

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Examples(t *testing.T) {
	cases := []struct {
		in   string
		want Normalization
	}{
		{"阿司匹林肠溶片", Normalization{GenericName: "阿司匹林", DosageForm: "肠溶片"}},
		{"阿莫西林胶囊", Normalization{GenericName: "阿莫西林", DosageForm: "胶囊"}},
		{"布洛芬缓释胶囊", Normalization{GenericName: "布洛芬", DosageForm: "缓释胶囊"}},
		{"维生素C泡腾片", Normalization{GenericName: "维生素C", DosageForm: "泡腾片"}},
		{"氯化钠注射液", Normalization{GenericName: "氯化钠", DosageForm: "注射液"}},
		{"阿司匹林", Normalization{GenericName: "阿司匹林", IsGeneric: true}},
		{"Ibrance", Normalization{GenericName: "Ibrance", IsGeneric: true}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), tc.in)
	}
}

func TestNormalize_EmptyAndBareSuffix(t *testing.T) {
	assert.Equal(t, Normalization{GenericName: "", IsGeneric: true}, Normalize(""))

	// a bare token leaves nothing behind, so it is not stripped
	assert.Equal(t, Normalization{GenericName: "片", IsGeneric: true}, Normalize("片"))
	assert.Equal(t, Normalization{GenericName: "肠溶片", IsGeneric: true}, Normalize("肠溶片"))
}

func TestNormalize_RoundTripEveryForm(t *testing.T) {
	for _, g := range []string{"阿司匹林", "Aspirin ", "x"} {
		for _, form := range DefaultDosageForms {
			got := Normalize(g + form)
			assert.Equal(t, Normalization{GenericName: g, DosageForm: form}, got, g+form)
		}
	}
}

func TestNormalizer_FormsSortedLongestFirst(t *testing.T) {
	forms := NewNormalizer().Forms()
	require.NotEmpty(t, forms)
	for i := 1; i < len(forms); i++ {
		assert.GreaterOrEqual(t, utf8.RuneCountInString(forms[i-1]), utf8.RuneCountInString(forms[i]))
	}
	assert.Equal(t, "肠溶胶囊", forms[0])
}

func TestNewNormalizer_CustomDictionary(t *testing.T) {
	n := NewNormalizer("tablets", "", "tablets", "ER tablets")
	assert.Equal(t, []string{"ER tablets", "tablets"}, n.Forms())
	assert.Equal(t, Normalization{GenericName: "Metformin ", DosageForm: "ER tablets"}, n.Normalize("Metformin ER tablets"))
	assert.Equal(t, Normalization{GenericName: "Metformin", IsGeneric: true}, n.Normalize("Metformin"))
}

//Personal.AI order the ending
