package linker

// trieNode is one rune step of a Trie.
type trieNode struct {
	children map[rune]*trieNode
	rec      *Record
}

// Trie is a rune-keyed prefix tree mapping folded keys to records.  It is
// built once and then only read, so it carries no lock.
type Trie struct {
	root trieNode
	size int
}

// NewTrie returns an empty trie.
func NewTrie() *Trie { return &Trie{} }

// Insert stores rec under key unless key is already present.  It returns
// the record that occupies key after the call and whether rec was stored.
func (t *Trie) Insert(key string, rec *Record) (*Record, bool) {
	n := &t.root
	for _, r := range key {
		child, ok := n.children[r]
		if !ok {
			if n.children == nil {
				n.children = make(map[rune]*trieNode, 1)
			}
			child = &trieNode{}
			n.children[r] = child
		}
		n = child
	}
	if n.rec != nil {
		return n.rec, false
	}
	n.rec = rec
	t.size++
	return rec, true
}

// Lookup returns the record stored under exactly key.
func (t *Trie) Lookup(key string) (*Record, bool) {
	n := &t.root
	for _, r := range key {
		child, ok := n.children[r]
		if !ok {
			return nil, false
		}
		n = child
	}
	if n.rec == nil {
		return nil, false
	}
	return n.rec, true
}

// Len returns the number of stored keys.
func (t *Trie) Len() int { return t.size }

//Personal.AI order the ending
