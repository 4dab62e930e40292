package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAggregationPrompt_SelfRefinement(t *testing.T) {
	p, err := BuildAggregationPrompt("What is 15*23?", []string{"It is 345."})
	require.NoError(t, err)

	assert.Contains(t, p, "You are given a problem and a candidate solution.")
	assert.Contains(t, p, "Problem:\nWhat is 15*23?\n")
	assert.Contains(t, p, "Candidate solution:\nIt is 345.\n")
	assert.NotContains(t, p, "Solution 2")
}

func TestBuildAggregationPrompt_Multi(t *testing.T) {
	p, err := BuildAggregationPrompt("Q <b>", []string{"a & b", "two", "three"})
	require.NoError(t, err)

	assert.Contains(t, p, "several candidate solutions")
	assert.Contains(t, p, "Problem:\nQ <b>\n")
	assert.Contains(t, p, "---- Solution 1 ----\na & b\n\n---- Solution 2 ----\ntwo\n\n---- Solution 3 ----\nthree\n")
	assert.Equal(t, 3, strings.Count(p, "---- Solution "))
}
