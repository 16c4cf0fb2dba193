package ui

import "testing"

func TestRenderPassThroughWhenDisabled(t *testing.T) {
	prev := colorEnabled
	defer SetColorEnabled(prev)

	SetColorEnabled(false)
	for _, fn := range []func(string) string{RenderPass, RenderFail, RenderWarn, RenderAccent, RenderMuted} {
		if got := fn("PASS"); got != "PASS" {
			t.Errorf("disabled rendering altered text: %q", got)
		}
	}
}
