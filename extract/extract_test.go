package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePatent = `
United States Application Publication

Adaptive Widget Assembly Patent

ABSTRACT

A widget assembly with an adaptive coupling that adjusts
to varying load conditions in real time.
B25J 9/16

FIELD OF INVENTION

The invention relates to widget assemblies.

CLAIMS

1. A widget assembly comprising an adaptive coupling
and a load sensor.
2. The assembly of claim 1 wherein the coupling is
hydraulic.

DESCRIPTION

Further details follow.
`

func TestPatentSections(t *testing.T) {
	s, err := PatentSections(samplePatent)
	require.NoError(t, err)

	assert.Equal(t, "Adaptive Widget Assembly Patent", s.Title)
	assert.Equal(t, "A widget assembly with an adaptive coupling that adjusts to varying load conditions in real time.", s.Abstract)

	require.Len(t, s.Claims, 2)
	assert.Equal(t, "1. A widget assembly comprising an adaptive coupling and a load sensor.", s.Claims[0])
	assert.Equal(t, "2. The assembly of claim 1 wherein the coupling is hydraulic.", s.Claims[1])
}

func TestPatentSectionsInlineAbstract(t *testing.T) {
	s, err := PatentSections("Some Patent Title\nAbstract: A compact machine for sorting items.\nBackground\nmore text")
	require.NoError(t, err)
	assert.Equal(t, "A compact machine for sorting items.", s.Abstract)
}

func TestPatentSectionsMissingAbstract(t *testing.T) {
	_, err := PatentSections("Some Patent Title\n1. A claim without any abstract.")
	assert.ErrorIs(t, err, ErrMissingAbstract)
}

func TestPatentSectionsNoText(t *testing.T) {
	_, err := PatentSections("   \n  \n")
	assert.ErrorIs(t, err, ErrNoText)
}

func TestPatentSectionsUntitled(t *testing.T) {
	s, err := PatentSections("Abstract\nA short abstract body here.")
	require.NoError(t, err)
	assert.Equal(t, "Untitled", s.Title)
}

func TestContent(t *testing.T) {
	s := Sections{Abstract: "ab", Claims: []string{"1. c1", "2. c2"}}
	assert.Equal(t, "ab 1. c1 2. c2", s.Content())

	s = Sections{Abstract: "ab"}
	assert.Equal(t, "ab", s.Content())
}

func TestPatentSectionsSkipsClassificationCodes(t *testing.T) {
	s, err := PatentSections("My Patent\nAbstract\nUseful device text.\nG06F 17/30\nMore abstract text.\nClaims\n1. A claim.")
	require.NoError(t, err)
	assert.Equal(t, "Useful device text. More abstract text.", s.Abstract)
}
