// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data model for the thesis-engine pipeline.
// Implements: prd001-pipeline (R1, R2); docs/ARCHITECTURE § Data Model.
package types

import "fmt"

// DocumentType classifies the kind of academic document to generate.
type DocumentType string

const (
	DocThesis           DocumentType = "thesis"
	DocSynopsis         DocumentType = "synopsis"
	DocDissertation     DocumentType = "dissertation"
	DocResearchPaper    DocumentType = "research-paper"
	DocLiteratureReview DocumentType = "literature-review"
	DocResearchProposal DocumentType = "research-proposal"
)

// validDocumentTypes is the set of accepted DocumentType values.
var validDocumentTypes = map[DocumentType]bool{
	DocThesis:           true,
	DocSynopsis:         true,
	DocDissertation:     true,
	DocResearchPaper:    true,
	DocLiteratureReview: true,
	DocResearchProposal: true,
}

// AcademicLevel identifies the target academic register for the document.
type AcademicLevel string

const (
	LevelUndergraduate AcademicLevel = "undergraduate"
	LevelMasters       AcademicLevel = "masters"
	LevelPhD           AcademicLevel = "phd"
)

// validAcademicLevels is the set of accepted AcademicLevel values.
var validAcademicLevels = map[AcademicLevel]bool{
	LevelUndergraduate: true,
	LevelMasters:       true,
	LevelPhD:           true,
}

// CitationStyle selects the bibliography rendering style.
// Per prd005-citations R3.1.
type CitationStyle string

const (
	StyleAPA     CitationStyle = "apa"
	StyleMLA     CitationStyle = "mla"
	StyleChicago CitationStyle = "chicago"
)

// GenerationRequest describes one document generation run. It is validated
// once at the pipeline entry point and never mutated afterwards.
type GenerationRequest struct {
	// Topic is the document's subject (e.g. "renewable energy storage").
	Topic string `json:"topic" yaml:"topic"`

	// DocumentType selects the section template: thesis, synopsis,
	// dissertation, research-paper, literature-review, research-proposal.
	DocumentType DocumentType `json:"document_type" yaml:"document_type"`

	// AcademicLevel selects the writing register: undergraduate, masters, phd.
	AcademicLevel AcademicLevel `json:"academic_level" yaml:"academic_level"`

	// TargetWords is the requested total word count across all sections.
	TargetWords int `json:"target_words" yaml:"target_words"`

	// FocusAreas lists optional research emphases, each of which gets its
	// own research query (e.g. "battery chemistry").
	FocusAreas []string `json:"focus_areas,omitempty" yaml:"focus_areas,omitempty"`

	// Style is the citation style for the bibliography (default apa).
	Style CitationStyle `json:"style,omitempty" yaml:"style,omitempty"`
}

// Validate checks the request for structural problems. Infeasible word
// counts are the outline planner's call, since the minimum depends on the
// section template; Validate covers everything else.
func (r GenerationRequest) Validate() error {
	if r.Topic == "" {
		return &InvalidRequestError{Reason: "topic is empty"}
	}
	if !validDocumentTypes[r.DocumentType] {
		return &InvalidRequestError{Reason: fmt.Sprintf("unknown document type %q", r.DocumentType)}
	}
	if !validAcademicLevels[r.AcademicLevel] {
		return &InvalidRequestError{Reason: fmt.Sprintf("unknown academic level %q", r.AcademicLevel)}
	}
	if r.TargetWords <= 0 {
		return &InvalidRequestError{Reason: fmt.Sprintf("target word count %d is not positive", r.TargetWords)}
	}
	switch r.Style {
	case "", StyleAPA, StyleMLA, StyleChicago:
	default:
		return &InvalidRequestError{Reason: fmt.Sprintf("unknown citation style %q", r.Style)}
	}
	return nil
}

// CitationStyleOrDefault returns the requested style, or APA when unset.
func (r GenerationRequest) CitationStyleOrDefault() CitationStyle {
	if r.Style == "" {
		return StyleAPA
	}
	return r.Style
}
