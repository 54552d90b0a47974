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

// String is a set of strings that remembers insertion order.
// The zero value is an empty set ready to use.
type String struct {
	index  map[string]int
	values []string
}

func NewString(strs ...string) *String {
	res := &String{}
	res.Add(strs...)
	return res
}

// Add inserts the given strings. Strings that are already present keep
// their original position.
func (s *String) Add(strs ...string) {
	if s.index == nil {
		s.index = map[string]int{}
	}

	for _, str := range strs {
		if _, exists := s.index[str]; exists {
			continue
		}
		s.index[str] = len(s.values)
		s.values = append(s.values, str)
	}
}

func (s *String) Remove(strs ...string) {
	if s == nil || s.index == nil {
		return
	}

	removed := false
	for _, str := range strs {
		if _, exists := s.index[str]; exists {
			delete(s.index, str)
			removed = true
		}
	}
	if !removed {
		return
	}
	kept := s.values[:0]
	for _, v := range s.values {
		if _, exists := s.index[v]; exists {
			s.index[v] = len(kept)
			kept = append(kept, v)
		}
	}
	s.values = kept
}

func (s *String) Contains(str string) bool {
	if s == nil || s.index == nil {
		return false
	}

	_, exists := s.index[str]
	return exists
}

func (s *String) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// Values returns the strings in insertion order.
// The returned slice is a copy.
func (s *String) Values() []string {
	var res []string
	if s == nil {
		return res
	}

	res = make([]string, len(s.values))
	copy(res, s.values)
	return res
}
