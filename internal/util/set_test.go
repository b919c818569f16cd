package util

import (
	"testing"

	testify "github.com/stretchr/testify/assert"
)

func TestSetBasics(t *testing.T) {
	as := testify.New(t)

	s := SetOf("a", "b", "a")
	as.Equal(2, s.Len())
	as.True(s.Contains("a"))
	as.True(s.Contains("b"))
	as.False(s.Contains("c"))

	s.Add("c")
	as.True(s.Contains("c"))
	as.Equal(3, s.Len())

	s.Remove("a")
	as.False(s.Contains("a"))

	// Removing an absent element is a no-op
	s.Remove("never-added")
	as.Equal(2, s.Len())
}

func TestSetEmpty(t *testing.T) {
	as := testify.New(t)

	s := Set[int]{}
	as.True(s.IsEmpty())
	as.Equal(0, s.Len())

	s.Add(42)
	as.False(s.IsEmpty())
}
