package eval

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/open-feature/flagdemo/pkg/model"
)

const InvalidFlags = `{
  "flags": {
    "invalidFlag": {
      "notState": "ENABLED",
      "notVariants": {
        "on": {}
      },
      "notDefaultVariant": "on"
    }
  }
}`

const ValidFlags = `{
  "flags": {
    "validFlag": {
      "state": "ENABLED",
      "variants": {
        "on": {"variables": {"model_name": "GPT-4o"}},
        "off": {}
      },
      "defaultVariant": "on"
    }
  }
}`

const MissingDefaultVariantFlags = `{
  "flags": {
    "brokenFlag": {
      "state": "ENABLED",
      "variants": {
        "on": {}
      },
      "defaultVariant": "nope"
    }
  }
}`

const StaticFlag = "staticFlag"
const StaticModelName = "GPT-4o"
const DisabledFlag = "disabledFlag"

var StaticFlags = fmt.Sprintf(`{
  "flags": {
    "%s": {
      "state": "ENABLED",
      "variants": {
        "control": {
          "variables": {
            "model_name": "%s",
            "query_answer": {"content": "hello", "background": "#CC0000"}
          }
        },
        "other": {}
      },
      "defaultVariant": "control"
    },
    "%s": {
      "state": "DISABLED",
      "variants": {
        "control": {"variables": {"model_name": "never"}}
      },
      "defaultVariant": "control"
    }
  }
}`, StaticFlag, StaticModelName, DisabledFlag)

const DynamicFlag = "ruleFlag"
const ColorProp = "color"
const ColorValue = "yellow"

var DynamicFlags = fmt.Sprintf(`{
  "flags": {
    "%s": {
      "state": "ENABLED",
      "variants": {
        "on": {"variables": {"background": "%s"}},
        "off": {}
      },
      "defaultVariant": "off",
      "targeting": {
        "if": [
          {
            "==": [
              {
                "var": [
                  "%s"
                ]
              },
              "%s"
            ]
          },
          "on",
          null
        ]
      }
    },
    "numericTargetingFlag": {
      "state": "ENABLED",
      "variants": {
        "on": {}
      },
      "defaultVariant": "on",
      "targeting": {
        "+": [1, 2]
      }
    },
    "unknownVariantFlag": {
      "state": "ENABLED",
      "variants": {
        "on": {}
      },
      "defaultVariant": "on",
      "targeting": {
        "if": [true, "missing", null]
      }
    }
  }
}`, DynamicFlag, ColorValue, ColorProp, ColorValue)

func TestGetState_Valid_ContainsFlag(t *testing.T) {
	evaluator := NewJSONEvaluator()
	_, err := evaluator.SetState("test", []byte(ValidFlags))
	if err != nil {
		t.Fatalf("Expected no error")
	}

	// get the state
	state, err := evaluator.GetState()
	if err != nil {
		t.Fatalf("Expected no error")
	}

	// validate it contains the flag
	wants := "validFlag"
	if !strings.Contains(state, wants) {
		t.Fatalf("Expected %s to contain %s", state, wants)
	}
}

func TestSetState_Invalid_Error(t *testing.T) {
	evaluator := NewJSONEvaluator()

	// set state with an invalid flag definition
	_, err := evaluator.SetState("test", []byte(InvalidFlags))
	if err == nil {
		t.Fatalf("Expected error")
	}
	assert.Contains(t, err.Error(), model.ParseErrorCode)
}

func TestSetState_MissingDefaultVariant_Error(t *testing.T) {
	evaluator := NewJSONEvaluator()

	_, err := evaluator.SetState("test", []byte(MissingDefaultVariantFlags))
	assert.Error(t, err)
}

func TestSetState_Invalid_KeepsPreviousState(t *testing.T) {
	evaluator := NewJSONEvaluator()

	_, err := evaluator.SetState("test", []byte(ValidFlags))
	assert.NoError(t, err)

	_, err = evaluator.SetState("test", []byte(`{"flags": "nope"}`))
	assert.Error(t, err)

	res, err := evaluator.Resolve("validFlag", nil)
	if assert.NoError(t, err) {
		assert.True(t, res.Enabled)
	}
	assert.JSONEq(t, ValidFlags, string(evaluator.Settings()))
}

func TestSetState_Valid_NoError(t *testing.T) {
	evaluator := NewJSONEvaluator()

	// set state with a valid flag definition
	notifications, err := evaluator.SetState("test", []byte(ValidFlags))
	if err != nil {
		t.Fatalf("Expected no error")
	}
	assert.Contains(t, notifications, "validFlag")
}

func TestResolve_FlagExistsStatic_ReturnsVariables(t *testing.T) {
	evaluator := NewJSONEvaluator()

	_, err := evaluator.SetState("test", []byte(StaticFlags))
	if err != nil {
		t.Fatalf("Expected no error")
	}

	res, err := evaluator.Resolve(StaticFlag, map[string]any{"id": "user-1"})
	if assert.NoError(t, err) {
		assert.True(t, res.Enabled)
		assert.Equal(t, "control", res.Variant)
		assert.Equal(t, model.StaticReason, res.Reason)
		assert.Equal(t, StaticModelName, res.Variables["model_name"])
	}
}

func TestResolve_FlagDisabled_NotEnabled(t *testing.T) {
	evaluator := NewJSONEvaluator()

	_, err := evaluator.SetState("test", []byte(StaticFlags))
	if err != nil {
		t.Fatalf("Expected no error")
	}

	res, err := evaluator.Resolve(DisabledFlag, nil)
	if assert.NoError(t, err) {
		assert.False(t, res.Enabled)
		assert.Equal(t, model.DisabledReason, res.Reason)
		assert.Empty(t, res.Variables)
	}
}

func TestResolve_FlagMissing_Error(t *testing.T) {
	evaluator := NewJSONEvaluator()

	_, err := evaluator.SetState("test", []byte(StaticFlags))
	if err != nil {
		t.Fatalf("Expected no error")
	}

	_, err = evaluator.Resolve("nope", nil)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), model.FlagNotFoundErrorCode)
	}
}

func TestResolve_RuleResolvesVariant_TargetingMatch(t *testing.T) {
	evaluator := NewJSONEvaluator()

	_, err := evaluator.SetState("test", []byte(DynamicFlags))
	if err != nil {
		t.Fatalf("Expected no error")
	}

	// this should return a variant, and therefore the reason should be TARGETING_MATCH
	res, err := evaluator.Resolve(DynamicFlag, map[string]any{
		ColorProp: ColorValue,
	})
	if assert.NoError(t, err) {
		assert.True(t, res.Enabled)
		assert.Equal(t, "on", res.Variant)
		assert.Equal(t, model.TargetingMatchReason, res.Reason)
		assert.Equal(t, ColorValue, res.Variables["background"])
	}
}

func TestResolve_RuleResolvesNull_NotEnabled(t *testing.T) {
	evaluator := NewJSONEvaluator()

	_, err := evaluator.SetState("test", []byte(DynamicFlags))
	if err != nil {
		t.Fatalf("Expected no error")
	}

	// this should return null, and therefore the user does not qualify
	res, err := evaluator.Resolve(DynamicFlag, map[string]any{
		ColorProp: "red", // not the expected value for the rule to match
	})
	if assert.NoError(t, err) {
		assert.False(t, res.Enabled)
		assert.Equal(t, model.DefaultReason, res.Reason)
		assert.Empty(t, res.Variables)
	}
}

func TestResolve_RuleResolvesUnknownVariant_Error(t *testing.T) {
	evaluator := NewJSONEvaluator()

	_, err := evaluator.SetState("test", []byte(DynamicFlags))
	if err != nil {
		t.Fatalf("Expected no error")
	}

	_, err = evaluator.Resolve("unknownVariantFlag", map[string]any{})
	assert.Error(t, err)
}

func TestResolve_RuleFails_ErrorReason(t *testing.T) {
	evaluator := NewJSONEvaluator()

	_, err := evaluator.SetState("test", []byte(DynamicFlags))
	if err != nil {
		t.Fatalf("Expected no error")
	}

	// the rule yields a number, which names no variant
	res, err := evaluator.Resolve("numericTargetingFlag", map[string]any{})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), model.ParseErrorCode)
	}
	assert.Equal(t, model.ErrorReason, res.Reason)
	assert.False(t, res.Enabled)
}

func TestSampleSettings(t *testing.T) {
	raw, err := os.ReadFile("../../settings.json")
	if err != nil {
		t.Fatalf("read sample settings: %v", err)
	}

	evaluator := NewJSONEvaluator()
	if _, err := evaluator.SetState("file", raw); err != nil {
		t.Fatalf("sample settings must validate: %v", err)
	}

	tests := []struct {
		name    string
		context map[string]any
		variant string
	}{
		{"no context", map[string]any{"id": "u"}, "default"},
		{"beta plan", map[string]any{"id": "u", "plan": "beta"}, "concise"},
		{"premium tier", map[string]any{"id": "u", "attributes": map[string]any{"tier": "premium"}}, "detailed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := evaluator.Resolve("ai_answer", tt.context)
			if assert.NoError(t, err) {
				assert.Equal(t, tt.variant, res.Variant)
				assert.True(t, res.Enabled)
			}
		})
	}
}
