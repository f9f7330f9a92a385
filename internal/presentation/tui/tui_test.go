package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestResultMarkdown(t *testing.T) {
	res := &domain.Result{
		TransactionID: "tx-1",
		Success:       true,
		Flow:          domain.FlowUpdate,
		Ref:           domain.NewObjectRef(domain.KindProgram, "zhello", ""),
		Message:       "Program ZHELLO updated successfully.",
		Warnings:      []string{"unlock failed"},
		Check: &domain.CheckResult{Messages: []domain.CheckMessage{
			{Severity: domain.SeverityWarning, Text: "Variable unused", Line: 3},
		}},
	}

	md := ResultMarkdown(res)
	assert.Contains(t, md, "## Program ZHELLO")
	assert.Contains(t, md, "`tx-1` · update")
	assert.Contains(t, md, "- unlock failed")
	assert.Contains(t, md, "(line 3): Variable unused")
}

func TestRenderTrace(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := RenderTrace([]domain.PhaseRecord{
		{Phase: domain.PhaseLocked, At: at},
		{Phase: domain.PhaseUpdated, At: at.Add(120 * time.Millisecond), Note: "unlock failed"},
	})
	assert.Contains(t, out, string(domain.PhaseLocked))
	assert.Contains(t, out, "+120ms")
	assert.Contains(t, out, "unlock failed")
	assert.Empty(t, RenderTrace(nil))
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0")
	assert.Contains(t, buf.String(), "v0.1.0")
}
