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

package distdb

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v2"
)

// Summary is a serializable description of a distribution.
type Summary struct {
	Name        string   `yaml:"name" json:"name"`
	Version     string   `yaml:"version" json:"version"`
	Summary     string   `yaml:"summary,omitempty" json:"summary,omitempty"`
	Path        string   `yaml:"path,omitempty" json:"path,omitempty"`
	Format      string   `yaml:"format" json:"format"`
	DownloadURL string   `yaml:"download-url,omitempty" json:"download_url,omitempty"`
	Requested   bool     `yaml:"requested" json:"requested"`
	Provides    []string `yaml:"provides,omitempty" json:"provides,omitempty"`
	Requires    []string `yaml:"requires,omitempty" json:"requires,omitempty"`
	Obsoletes   []string `yaml:"obsoletes,omitempty" json:"obsoletes,omitempty"`
}

// Distribution formats as reported in summaries.
const (
	FormatMetadata  = "metadata"
	FormatInstalled = "dist-info"
	FormatLegacy    = "egg-info"
)

// Summarize creates the summary of the given distribution.
func Summarize(d Dist) *Summary {
	result := &Summary{
		Name:        d.Name(),
		Version:     d.Version(),
		Summary:     d.Metadata().GetOne(FieldSummary),
		DownloadURL: d.DownloadURL(),
		Requested:   d.Requested(),
		Provides:    d.Provides(),
		Requires:    d.Requires(),
		Obsoletes:   append(d.Metadata().Get(FieldObsoletesDist), d.Metadata().Get(FieldObsoletes)...),
	}
	switch d := d.(type) {
	case *InstalledDistribution:
		result.Format = FormatInstalled
		result.Path = d.Path()
	case *LegacyDistribution:
		result.Format = FormatLegacy
		result.Path = d.Path()
	default:
		result.Format = FormatMetadata
	}
	return result
}

// Summaries is a list of summaries.
type Summaries []*Summary

func (s *Summary) WriteYAML(writer io.Writer) error {
	return yaml.NewEncoder(writer).Encode(s)
}

func (s Summaries) WriteYAML(writer io.Writer) error {
	return yaml.NewEncoder(writer).Encode(s)
}

func (s Summaries) WriteJSON(writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}
