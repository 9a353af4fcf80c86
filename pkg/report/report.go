// Package report defines the MetricsReport wire contract.
//
// A report has five sections. Each section carries a status and, on
// success, its metrics. Sections that did not succeed still emit every
// metric key with a null value so consumers that flatten reports see the
// same key set for every file.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/panbanda/pymetrics/pkg/metrics"
)

// Status is the outcome of one section.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusSyntaxError Status = "syntax_error"
	StatusError       Status = "error"
)

// Section wraps one aggregator's result.
type Section[T any] struct {
	Status  Status
	Message string
	Metrics *T
}

// Success returns a successful section.
func Success[T any](m *T) Section[T] {
	return Section[T]{Status: StatusSuccess, Metrics: m}
}

// Failed returns a section with the given non-success status.
func Failed[T any](status Status, message string) Section[T] {
	return Section[T]{Status: status, Message: message}
}

// OK reports whether the section succeeded.
func (s Section[T]) OK() bool {
	return s.Status == StatusSuccess && s.Metrics != nil
}

// MarshalJSON flattens the metrics next to status and message. Without
// metrics every field of T is emitted as null.
func (s Section[T]) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any)

	var source any = s.Metrics
	if s.Metrics == nil {
		source = new(T)
	}
	raw, err := json.Marshal(source)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal section metrics: %w", err)
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to flatten section metrics: %w", err)
	}
	if s.Metrics == nil {
		for k := range fields {
			fields[k] = nil
		}
	}

	fields["status"] = s.Status
	if s.Message != "" {
		fields["message"] = s.Message
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON restores a section written by MarshalJSON.
func (s *Section[T]) UnmarshalJSON(data []byte) error {
	var head struct {
		Status  Status `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	s.Status = head.Status
	s.Message = head.Message
	s.Metrics = nil
	if head.Status != StatusSuccess {
		return nil
	}
	m := new(T)
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}
	s.Metrics = m
	return nil
}

// SyntaxError locates a parse failure.
type SyntaxError struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// MetricsReport is the result of analyzing one file.
type MetricsReport struct {
	File          string       `json:"file"`
	Compilability bool         `json:"compilability"`
	SyntaxError   *SyntaxError `json:"syntax_error,omitempty"`

	Complexity      Section[metrics.ComplexityMetrics]      `json:"complexity_analysis"`
	Halstead        Section[metrics.HalsteadMetrics]        `json:"halstead_analysis"`
	Maintainability Section[metrics.MaintainabilityMetrics] `json:"maintainability_analysis"`
	Size            Section[metrics.SizeMetrics]            `json:"size_analysis"`
	Structure       Section[metrics.StructureMetrics]       `json:"structure_analysis"`
}

// SectionNames lists the section keys in wire order.
var SectionNames = []string{
	"complexity_analysis",
	"halstead_analysis",
	"maintainability_analysis",
	"size_analysis",
	"structure_analysis",
}

// SyntaxFailure builds a report for source that did not parse.
func SyntaxFailure(file string, syn *SyntaxError) *MetricsReport {
	msg := syn.Message
	return &MetricsReport{
		File:            file,
		SyntaxError:     syn,
		Complexity:      Failed[metrics.ComplexityMetrics](StatusSyntaxError, msg),
		Halstead:        Failed[metrics.HalsteadMetrics](StatusSyntaxError, msg),
		Maintainability: Failed[metrics.MaintainabilityMetrics](StatusSyntaxError, msg),
		Size:            Failed[metrics.SizeMetrics](StatusSyntaxError, msg),
		Structure:       Failed[metrics.StructureMetrics](StatusSyntaxError, msg),
	}
}

// Fault builds a report for a file whose traversal failed.
func Fault(file, message string) *MetricsReport {
	return &MetricsReport{
		File:            file,
		Compilability:   true,
		Complexity:      Failed[metrics.ComplexityMetrics](StatusError, message),
		Halstead:        Failed[metrics.HalsteadMetrics](StatusError, message),
		Maintainability: Failed[metrics.MaintainabilityMetrics](StatusError, message),
		Size:            Failed[metrics.SizeMetrics](StatusError, message),
		Structure:       Failed[metrics.StructureMetrics](StatusError, message),
	}
}

// Statuses returns each section's status keyed by section name.
func (r *MetricsReport) Statuses() map[string]Status {
	return map[string]Status{
		"complexity_analysis":      r.Complexity.Status,
		"halstead_analysis":        r.Halstead.Status,
		"maintainability_analysis": r.Maintainability.Status,
		"size_analysis":            r.Size.Status,
		"structure_analysis":       r.Structure.Status,
	}
}

// Succeeded reports whether every section succeeded.
func (r *MetricsReport) Succeeded() bool {
	for _, st := range r.Statuses() {
		if st != StatusSuccess {
			return false
		}
	}
	return true
}

// JSON encodes the report with stable key order and no HTML escaping.
func (r *MetricsReport) JSON(indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return buf.Bytes(), nil
}
