package main

import (
	"bytes"
	"strings"
	"testing"

	"slicer/internal/schema"
	"slicer/internal/ui"
)

func validResult() *schema.Result {
	return &schema.Result{Valid: true}
}

func warnedResult() *schema.Result {
	return &schema.Result{
		Valid: true,
		Warnings: []schema.Warning{
			{Path: "/meta/generated_at", Message: `"yesterday" is not an RFC 3339 timestamp`},
		},
	}
}

func failedResult() *schema.Result {
	return &schema.Result{
		Valid: false,
		Violations: []schema.Violation{
			{Path: "/meta/project", Kind: schema.KindMissingRequiredField, Message: "missing required field"},
			{Path: "/slices", Kind: schema.KindEmptyRequiredCollection, Message: "must contain at least one element"},
		},
	}
}

func TestShouldReport(t *testing.T) {
	tests := []struct {
		name    string
		res     *schema.Result
		strict  bool
		verbose bool
		want    bool
	}{
		{name: "valid artifact is silent", res: validResult(), want: false},
		{name: "valid artifact with verbose", res: validResult(), verbose: true, want: true},
		{name: "warnings stay silent by default", res: warnedResult(), want: false},
		{name: "warnings surface under strict", res: warnedResult(), strict: true, want: true},
		{name: "violations always report", res: failedResult(), want: true},
		{name: "violations report under every flag", res: failedResult(), strict: true, verbose: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldReport(tt.res, tt.strict, tt.verbose); got != tt.want {
				t.Errorf("shouldReport(strict=%v, verbose=%v) = %v, want %v",
					tt.strict, tt.verbose, got, tt.want)
			}
		})
	}
}

func TestValidArtifactProducesNoOutput(t *testing.T) {
	var buf bytes.Buffer
	res := validResult()
	if shouldReport(res, false, false) {
		reportResult(&buf, "artifact.json", "slice-map", res, false)
	}
	if got := buf.String(); got != "" {
		t.Errorf("valid artifact produced output %q, want none", got)
	}
}

func TestReportResultFailure(t *testing.T) {
	ui.SetColorEnabled(false)

	var buf bytes.Buffer
	reportResult(&buf, "artifact.json", "slice-map", failedResult(), false)
	out := buf.String()

	if !strings.Contains(out, "artifact.json: FAIL (slice-map, 2 violations)") {
		t.Errorf("missing status line in output:\n%s", out)
	}
	if !strings.Contains(out, "/meta/project: MissingRequiredField: missing required field") {
		t.Errorf("missing violation line in output:\n%s", out)
	}
	if !strings.Contains(out, "/slices: EmptyRequiredCollection") {
		t.Errorf("missing violation line in output:\n%s", out)
	}
}

func TestReportResultQuietSuppressesDetail(t *testing.T) {
	ui.SetColorEnabled(false)

	var buf bytes.Buffer
	reportResult(&buf, "artifact.json", "slice-map", failedResult(), true)
	out := buf.String()

	if !strings.Contains(out, "FAIL") {
		t.Errorf("quiet output lost the status line:\n%s", out)
	}
	if strings.Contains(out, "/meta/project") {
		t.Errorf("quiet output still contains violation detail:\n%s", out)
	}
}

func TestReportResultVerbosePass(t *testing.T) {
	ui.SetColorEnabled(false)

	var buf bytes.Buffer
	res := validResult()
	if shouldReport(res, false, true) {
		reportResult(&buf, "artifact.json", "slice-map", res, false)
	}
	if !strings.Contains(buf.String(), "artifact.json: PASS (slice-map)") {
		t.Errorf("verbose run missing PASS line:\n%s", buf.String())
	}
}
