package runstore

import (
	"fmt"
	"sort"
	"strings"

	"trustbench/internal/orchestrator"
	"trustbench/pkg/models"
)

// RenderMarkdown renders a run's verdict and pillar results as Markdown,
// grounded on trustbench_core/eval/report.py's section layout: one
// header per pillar, a metrics table, and a failures list.
func RenderMarkdown(profile *models.Profile, result orchestrator.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# TrustBench Report: %s\n\n", profile.Name)
	fmt.Fprintf(&b, "**Decision:** %s  \n**Composite:** %.2f  \n**Confidence:** %s\n\n", result.Verdict.Decision, result.Verdict.Composite, result.Verdict.Confidence)

	for _, pillar := range orderedPillars() {
		res, ok := result.AgentResults[pillar]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", title(pillar))
		fmt.Fprintf(&b, "- Score: %.2f\n", res.Score)
		for _, key := range sortedKeys(res.Metrics) {
			fmt.Fprintf(&b, "- %s: %.2f\n", key, res.Metrics[key])
		}
		if res.Err != "" {
			fmt.Fprintf(&b, "- Error: %s\n", res.Err)
		}
		if len(res.Failures) > 0 {
			b.WriteString("\nFailures:\n")
			for _, f := range res.Failures {
				fmt.Fprintf(&b, "- `%s`: %s\n", f.Reason, f.Detail)
			}
		}
		b.WriteString("\n")
	}

	if len(result.Verdict.Drivers) > 0 {
		b.WriteString("## Drivers\n\n")
		for _, d := range result.Verdict.Drivers {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		b.WriteString("\n")
	}
	if len(result.Verdict.Actions) > 0 {
		b.WriteString("## Recommended actions\n\n")
		for _, a := range result.Verdict.Actions {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}
	return b.String()
}

// RenderHTML renders the same report with semantic IDs/classes per
// pillar and metric, mirroring report.py's HTML section structure.
func RenderHTML(profile *models.Profile, result orchestrator.Result) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>TrustBench Report</title></head><body>\n")
	fmt.Fprintf(&b, "<h1>TrustBench Report: %s</h1>\n", escape(profile.Name))
	fmt.Fprintf(&b, "<div id=\"verdict\" class=\"decision-%s\"><p>Decision: <strong>%s</strong></p><p>Composite: %.2f</p><p>Confidence: %s</p></div>\n",
		result.Verdict.Decision, escape(result.Verdict.Decision), result.Verdict.Composite, result.Verdict.Confidence)

	for _, pillar := range orderedPillars() {
		res, ok := result.AgentResults[pillar]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "<section id=\"pillar-%s\" class=\"pillar\">\n<h2>%s</h2>\n<ul class=\"metrics\">\n", pillar, escape(title(pillar)))
		fmt.Fprintf(&b, "<li class=\"metric-score\">Score: %.2f</li>\n", res.Score)
		for _, key := range sortedKeys(res.Metrics) {
			fmt.Fprintf(&b, "<li class=\"metric-%s\">%s: %.2f</li>\n", key, escape(key), res.Metrics[key])
		}
		b.WriteString("</ul>\n")
		if len(res.Failures) > 0 {
			b.WriteString("<ul class=\"failures\">\n")
			for _, f := range res.Failures {
				fmt.Fprintf(&b, "<li class=\"failure-%s\">%s: %s</li>\n", f.Reason, escape(f.Reason), escape(f.Detail))
			}
			b.WriteString("</ul>\n")
		}
		b.WriteString("</section>\n")
	}
	b.WriteString("</body></html>\n")
	return b.String()
}

func orderedPillars() []string {
	return []string{"task_fidelity", "system_perf", "security_eval", "ethics_refusal"}
}

func title(pillar string) string {
	return strings.Title(strings.ReplaceAll(pillar, "_", " "))
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escape(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\"", "&quot;")
	return replacer.Replace(s)
}
