// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// SUMMARY
// =============================================================================

// Summary is a point-in-time view of the widget metrics, keyed by metric
// name without the namespace and then by label value ("" for unlabeled
// metrics).
type Summary map[string]map[string]float64

// Summary gathers the current metric values.
func (m *Metrics) Summary() (Summary, error) {
	out := Summary{}
	if m == nil {
		return out, nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	for _, fam := range families {
		name := strings.TrimPrefix(fam.GetName(), namespace+"_")
		values := make(map[string]float64)
		for _, metric := range fam.GetMetric() {
			label := ""
			if pairs := metric.GetLabel(); len(pairs) > 0 {
				label = pairs[0].GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				values[label] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[label] = metric.GetGauge().GetValue()
			}
		}
		out[name] = values
	}
	return out, nil
}

// Total returns the sum of a metric over all its labels.
func (s Summary) Total(name string) float64 {
	var total float64
	for _, v := range s[name] {
		total += v
	}
	return total
}

// Lines formats the summary as sorted "name{label} value" lines.
func (s Summary) Lines() []string {
	var lines []string
	for name, values := range s {
		for label, v := range values {
			key := name
			if label != "" {
				key += "{" + label + "}"
			}
			lines = append(lines, fmt.Sprintf("%s %g", key, v))
		}
	}
	sort.Strings(lines)
	return lines
}
