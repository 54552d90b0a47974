// Copyright (C) 2021 Toitware ApS.
//
// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; version
// 2.1 only.
//
// This library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// The license can be found in the file `LICENSE` in the top level
// directory of this repository.

package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_String(t *testing.T) {
	t.Run("Insertion order", func(t *testing.T) {
		s := NewString("b", "a", "b", "c")
		assert.Equal(t, []string{"b", "a", "c"}, s.Values())
		assert.Equal(t, 3, s.Len())
		assert.True(t, s.Contains("a"))
		assert.False(t, s.Contains("d"))
	})

	t.Run("Remove", func(t *testing.T) {
		s := NewString("a", "b", "c", "d")
		s.Remove("b", "x")
		assert.Equal(t, []string{"a", "c", "d"}, s.Values())
		s.Add("b")
		assert.Equal(t, []string{"a", "c", "d", "b"}, s.Values())
	})

	t.Run("Zero value", func(t *testing.T) {
		var s String
		assert.False(t, s.Contains("a"))
		assert.Empty(t, s.Values())
		s.Add("a")
		assert.True(t, s.Contains("a"))

		var nilSet *String
		assert.Equal(t, 0, nilSet.Len())
		assert.False(t, nilSet.Contains("a"))
	})
}
