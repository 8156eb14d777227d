// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package search

import (
	"slices"
)

// trieNode is one rune step of a key.
type trieNode struct {
	children map[rune]*trieNode

	// order lists the child runes ascending, so a depth-first walk visits
	// keys in byte-wise lexical order, the same order as the catalog.
	order []rune

	// refs are the catalog positions of every entry whose key ends here.
	refs []int
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[rune]*trieNode)}
}

// Trie is a prefix tree over normalized book titles. It is built once per
// snapshot and read concurrently without locking.
type Trie struct {
	root *trieNode
	size int
}

// NewTrie creates an empty Trie.
func NewTrie() *Trie {
	return &Trie{root: newTrieNode()}
}

// Insert adds a catalog position under key. Keys must already be normalized.
func (t *Trie) Insert(key string, ref int) {
	if key == "" {
		return
	}
	node := t.root
	for _, ch := range key {
		child := node.children[ch]
		if child == nil {
			child = newTrieNode()
			node.children[ch] = child
			i, _ := slices.BinarySearch(node.order, ch)
			node.order = slices.Insert(node.order, i, ch)
		}
		node = child
	}
	if len(node.refs) == 0 {
		t.size++
	}
	node.refs = append(node.refs, ref)
}

// Len returns the number of distinct keys.
func (t *Trie) Len() int {
	return t.size
}

// HasPrefix reports whether any key starts with prefix.
func (t *Trie) HasPrefix(prefix string) bool {
	return t.find(prefix) != nil
}

// PrefixRefs returns up to limit catalog positions whose key starts with
// prefix, in key order. A limit <= 0 means no limit.
func (t *Trie) PrefixRefs(prefix string, limit int) []int {
	node := t.find(prefix)
	if node == nil {
		return nil
	}
	var out []int
	collect(node, &out, limit)
	return out
}

func (t *Trie) find(prefix string) *trieNode {
	node := t.root
	for _, ch := range prefix {
		node = node.children[ch]
		if node == nil {
			return nil
		}
	}
	return node
}

// collect walks node depth first, appending refs until limit is reached.
// It reports whether the walk should stop.
func collect(node *trieNode, out *[]int, limit int) bool {
	for _, ref := range node.refs {
		if limit > 0 && len(*out) >= limit {
			return true
		}
		*out = append(*out, ref)
	}
	for _, ch := range node.order {
		if collect(node.children[ch], out, limit) {
			return true
		}
	}
	return limit > 0 && len(*out) >= limit
}
