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

package scheme

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Matcher(t *testing.T) {
	type matchCase struct {
		version string
		match   bool
	}
	tests := []struct {
		requirement string
		key         string
		exact       string
		cases       []matchCase
	}{
		{"foo (>=1.0)", "foo", "", []matchCase{{"1.0", true}, {"2.3", true}, {"0.9", false}}},
		{"Foo (1.0)", "foo", "1.0", []matchCase{{"1.0", true}, {"1.1", false}}},
		{"foo (==2.0)", "foo", "2.0", []matchCase{{"2.0", true}, {"2.0.1", false}}},
		{"foo (>=1.0, <2.0)", "foo", "", []matchCase{{"1.5", true}, {"2.0", false}}},
		{"foo >=1.0,!=1.3", "foo", "", []matchCase{{"1.2", true}, {"1.3", false}}},
		{"foo (~=1.4.5)", "foo", "", []matchCase{{"1.4.9", true}, {"1.5.0", false}, {"1.4.4", false}}},
		{"foo (==1.2.*)", "foo", "", []matchCase{{"1.2.7", true}, {"1.3.0", false}}},
		{"foo (!=1.2.*)", "foo", "", []matchCase{{"1.3.0", true}, {"1.2.0", false}}},
		{"foo (^1.2.3)", "foo", "", []matchCase{{"1.9.0", true}, {"2.0.0", false}}},
		{"foo(<=0.3.5)", "foo", "", []matchCase{{"0.3.5", true}, {"0.3.6", false}}},
		{"foo_bar.baz", "foo_bar.baz", "", []matchCase{{"0.1", true}, {"", true}}},
		{"foo; python_version > '3'", "foo", "", []matchCase{{"7", true}}},
		{"foo (===1.0-local)", "foo", "1.0-local", []matchCase{{"1.0-local", true}, {"1.0", false}}},
	}
	for _, test := range tests {
		t.Run(test.requirement, func(t *testing.T) {
			m, err := Default.Matcher(test.requirement)
			require.NoError(t, err)
			assert.Equal(t, test.key, m.Key())
			assert.Equal(t, test.exact, m.ExactVersion())
			assert.Equal(t, test.requirement, m.String())
			for _, c := range test.cases {
				actual, err := m.Match(c.version)
				require.NoError(t, err)
				assert.Equal(t, c.match, actual, "version %s", c.version)
			}
		})
	}
}

func Test_Extras(t *testing.T) {
	m, err := Default.Matcher("config[doc, test](<=0.3.5)")
	require.NoError(t, err)
	assert.Equal(t, "config", m.Name())
	assert.Equal(t, []string{"doc", "test"}, m.Extras())

	m, err = Default.Matcher("config (<=0.3.5)")
	require.NoError(t, err)
	assert.Nil(t, m.Extras())
}

func Test_MatcherErrors(t *testing.T) {
	t.Run("Unsupported version", func(t *testing.T) {
		for _, req := range []string{"foo (>=abc)", "foo (not.a.version)", "foo (==x.*)"} {
			_, err := Default.Matcher(req)
			require.Error(t, err, req)
			assert.True(t, errors.Is(err, ErrUnsupportedVersion), req)
			assert.False(t, errors.Is(err, ErrInvalidRequirement), req)
		}
	})

	t.Run("Invalid requirement", func(t *testing.T) {
		for _, req := range []string{"(foo)", "foo (>=1.0", "", "foo (~=1)", "foo (>=1.*)"} {
			_, err := Default.Matcher(req)
			require.Error(t, err, req)
			assert.True(t, errors.Is(err, ErrInvalidRequirement), req)
		}
	})

	t.Run("Unparsable candidate", func(t *testing.T) {
		m, err := Default.Matcher("foo (>=1.0)")
		require.NoError(t, err)
		_, err = m.Match("garbage")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedVersion))
	})

	t.Run("Empty candidate", func(t *testing.T) {
		m, err := Default.Matcher("foo (>=1.0)")
		require.NoError(t, err)
		ok, err := m.Match("")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func Test_RequirementName(t *testing.T) {
	assert.Equal(t, "foo", RequirementName("foo (>=bad)"))
	assert.Equal(t, "Foo.Bar", RequirementName("  Foo.Bar[x] (1)"))
	assert.Equal(t, "foo", RequirementName("foo(>=1)"))
	assert.Equal(t, "", RequirementName("(foo)"))
}

func Test_Get(t *testing.T) {
	s, err := Get("")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, s.Name())

	s, err = Get(SemverName)
	require.NoError(t, err)
	assert.Equal(t, SemverName, s.Name())
	assert.True(t, s.IsValidVersion("1.2.3"))
	assert.False(t, s.IsValidVersion("1.2.3.4"))
	assert.True(t, Default.IsValidVersion("1.2.3.4"))

	_, err = Get("legacy")
	assert.Error(t, err)
}

func Test_SemverStrict(t *testing.T) {
	tests := []struct {
		version string
		valid   bool
	}{
		{"1.2.3", true},
		{"0.0.0", true},
		{"1.2.3-alpha.1", true},
		{"1.2.3+build.5", true},
		{"1.2.3-rc1+sha.abc", true},
		{"1.2.3.4", false},
		{"1.0", false},
		{"1", false},
		{"v1.2.3", false},
		{"01.2.3", false},
		{"1.2.3-", false},
	}
	for _, test := range tests {
		t.Run(test.version, func(t *testing.T) {
			assert.Equal(t, test.valid, Semver.IsValidVersion(test.version))
			assert.True(t, Default.IsValidVersion(test.version) || !test.valid)
		})
	}

	t.Run("Matcher", func(t *testing.T) {
		m, err := Semver.Matcher("foo (>=1.2.0)")
		require.NoError(t, err)
		ok, err := m.Match("1.3.0")
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = m.Match("1.3")
		assert.True(t, errors.Is(err, ErrUnsupportedVersion))

		_, err = Semver.Matcher("foo (>=1.2)")
		assert.True(t, errors.Is(err, ErrUnsupportedVersion))
	})
}
