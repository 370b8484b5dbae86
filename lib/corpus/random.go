// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package corpus

import (
	"math/rand/v2"
	"strconv"

	"github.com/bureau-foundation/picklecompat/lib/value"
)

const (
	scalarWeight    = 8
	containerWeight = 1

	// Random ints and floats fall in [-numericBound, numericBound].
	numericBound = 1000

	maxStringLength    = 10
	maxContainerLength = 5

	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type typeTag int

const (
	tagInt typeTag = iota
	tagFloat
	tagStr
	tagBool
	tagNone
	tagList
	tagDict
	tagTuple
	tagSet
)

var weightedTags = []struct {
	tag    typeTag
	weight int
}{
	{tagInt, scalarWeight},
	{tagFloat, scalarWeight},
	{tagStr, scalarWeight},
	{tagBool, scalarWeight},
	{tagNone, scalarWeight},
	{tagList, containerWeight},
	{tagDict, containerWeight},
	{tagTuple, containerWeight},
	{tagSet, containerWeight},
}

var totalWeight = func() int {
	total := 0
	for _, entry := range weightedTags {
		total += entry.weight
	}
	return total
}()

// Generator produces random object trees from a seeded PCG source. The
// same seed yields the same sequence of trees. A Generator is not safe
// for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded with seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Random returns one tree rooted at depth. Below maxDepth the root's
// type is drawn with scalars weighted 8 to every container's 1;
// at depth >= maxDepth only scalars are produced. Set members that
// cannot be hashed are dropped.
func (g *Generator) Random(depth, maxDepth int) *value.Value {
	if depth >= maxDepth {
		return g.scalar(typeTag(g.rng.IntN(int(tagNone) + 1)))
	}

	pick := g.rng.IntN(totalWeight)
	tag := tagNone
	for _, entry := range weightedTags {
		if pick < entry.weight {
			tag = entry.tag
			break
		}
		pick -= entry.weight
	}

	switch tag {
	case tagList:
		return value.List(g.children(depth, maxDepth)...)
	case tagTuple:
		return value.Tuple(g.children(depth, maxDepth)...)
	case tagSet:
		return value.Set(g.children(depth, maxDepth)...)
	case tagDict:
		children := g.children(depth, maxDepth)
		entries := make([]value.Entry, len(children))
		for index, child := range children {
			entries[index] = value.Pair(strconv.Itoa(index), child)
		}
		return value.Dict(entries...)
	}
	return g.scalar(tag)
}

func (g *Generator) children(depth, maxDepth int) []*value.Value {
	count := g.rng.IntN(maxContainerLength + 1)
	children := make([]*value.Value, count)
	for index := range children {
		children[index] = g.Random(depth+1, maxDepth)
	}
	return children
}

func (g *Generator) scalar(tag typeTag) *value.Value {
	switch tag {
	case tagInt:
		return value.Int(g.rng.Int64N(2*numericBound+1) - numericBound)
	case tagFloat:
		return value.Float(g.rng.Float64()*2*numericBound - numericBound)
	case tagStr:
		length := 1 + g.rng.IntN(maxStringLength)
		text := make([]byte, length)
		for index := range text {
			text[index] = alphanumeric[g.rng.IntN(len(alphanumeric))]
		}
		return value.Str(string(text))
	case tagBool:
		return value.Bool(g.rng.IntN(2) == 1)
	}
	return value.None()
}
