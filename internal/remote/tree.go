package remote

import "sort"

// Tree is the assembled remote hierarchy for one sync run: unique paths,
// sorted ordinally. Because a parent path is a proper prefix of every
// descendant path, the sort places a folder before anything inside it.
// A Tree is built once per run and not modified afterwards.
type Tree []Node

// Assemble builds a Tree from the records of one or more parser
// invocations. Duplicate paths collapse to the record seen last, so a
// later listing of the same directory is authoritative.
func Assemble(nodes []Node) Tree {
	byPath := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byPath[n.Path] = n
	}

	tree := make(Tree, 0, len(byPath))
	for _, n := range byPath {
		tree = append(tree, n)
	}
	sort.Slice(tree, func(i, j int) bool {
		return tree[i].Path < tree[j].Path
	})
	return tree
}
