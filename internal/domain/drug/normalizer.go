// Package drug implements drug-name canonicalisation: splitting a product
// name such as "阿司匹林肠溶片" into its generic name and dosage form.
package drug

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultDosageForms is the dosage-form suffix dictionary used when no
// custom list is supplied.  Order only matters among tokens of equal length.
var DefaultDosageForms = []string{
	"注射液", "注射剂", "针剂",
	"片", "片剂",
	"胶囊", "胶囊剂",
	"颗粒", "颗粒剂",
	"散", "散剂",
	"丸", "丸剂",
	"栓", "栓剂",
	"软膏", "软膏剂",
	"乳膏", "乳膏剂",
	"凝胶", "凝胶剂",
	"贴", "贴剂",
	"喷雾", "喷雾剂",
	"吸入", "吸入剂",
	"滴眼", "滴眼液",
	"滴耳", "滴耳液",
	"滴鼻", "滴鼻液",
	"肠溶片", "肠溶胶囊",
	"缓释片", "缓释胶囊",
	"控释片", "控释胶囊",
	"分散片", "咀嚼片", "泡腾片", "口含片", "舌下片",
	"薄膜衣片", "糖衣片",
	"溶液", "溶液剂",
	"混悬液", "混悬剂",
	"乳剂",
	"糖浆", "糖浆剂",
	"口服液",
	"合剂",
}

// Normalization is the result of splitting a product name.  DosageForm is
// empty when no suffix was stripped, in which case IsGeneric is true.
type Normalization struct {
	GenericName string `json:"generic_name"`
	DosageForm  string `json:"dosage_form,omitempty"`
	IsGeneric   bool   `json:"is_generic"`
}

// Normalizer strips dosage-form suffixes.  It is immutable and safe for
// concurrent use.
type Normalizer struct {
	// forms is sorted by descending rune length so compound forms such as
	// 肠溶片 are tried before 片.
	forms []string
}

// NewNormalizer builds a Normalizer over forms, or DefaultDosageForms when
// none are given.  Empty and duplicate tokens are dropped.
func NewNormalizer(forms ...string) *Normalizer {
	if len(forms) == 0 {
		forms = DefaultDosageForms
	}
	seen := make(map[string]struct{}, len(forms))
	sorted := make([]string, 0, len(forms))
	for _, f := range forms {
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		sorted = append(sorted, f)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i]) > utf8.RuneCountInString(sorted[j])
	})
	return &Normalizer{forms: sorted}
}

// Forms returns the dictionary in match order.
func (n *Normalizer) Forms() []string {
	return append([]string(nil), n.forms...)
}

// Normalize splits productName on the longest dosage-form suffix that leaves
// a non-empty remainder.  It never fails; unmatched or empty input comes
// back unchanged with IsGeneric set.
func (n *Normalizer) Normalize(productName string) Normalization {
	for _, form := range n.forms {
		if !strings.HasSuffix(productName, form) {
			continue
		}
		if generic := strings.TrimSuffix(productName, form); generic != "" {
			return Normalization{GenericName: generic, DosageForm: form}
		}
	}
	return Normalization{GenericName: productName, IsGeneric: true}
}

var defaultNormalizer = NewNormalizer()

// Normalize runs the default dictionary.
func Normalize(productName string) Normalization {
	return defaultNormalizer.Normalize(productName)
}

//Personal.AI order the ending
