package eval

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"
	"github.com/open-feature/flagdemo/pkg/model"
	"github.com/open-feature/flagdemo/pkg/store"
	log "github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed settings.schema.json
var settingsSchema string

type IEvaluator interface {
	GetState() (string, error)
	SetState(source string, payload []byte) (store.Notifications, error)
	Settings() json.RawMessage
	Resolve(flagKey string, context map[string]any) (model.Resolution, error)
}

// JSONEvaluator resolves flags from a JSON settings document using JsonLogic targeting.
type JSONEvaluator struct {
	state *store.State
}

func NewJSONEvaluator() *JSONEvaluator {
	return &JSONEvaluator{state: store.NewFlags()}
}

func (je *JSONEvaluator) store() *store.State {
	if je.state == nil {
		je.state = store.NewFlags()
	}
	return je.state
}

func (je *JSONEvaluator) GetState() (string, error) {
	return je.store().String()
}

// SetState validates payload against the settings schema and, if valid, swaps it in.
// An invalid payload leaves the previous state untouched.
func (je *JSONEvaluator) SetState(source string, payload []byte) (store.Notifications, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(settingsSchema),
		gojsonschema.NewBytesLoader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", model.ParseErrorCode, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%s: invalid settings: %s", model.ParseErrorCode, strings.Join(msgs, "; "))
	}

	var settings model.Settings
	if err := json.Unmarshal(payload, &settings); err != nil {
		return nil, fmt.Errorf("%s: %w", model.ParseErrorCode, err)
	}
	for key, flag := range settings.Flags {
		if _, ok := flag.Variants[flag.DefaultVariant]; !ok {
			return nil, fmt.Errorf("%s: flag %s: default variant %q is not defined", model.ParseErrorCode, key, flag.DefaultVariant)
		}
	}

	return je.store().Update(source, settings, payload), nil
}

func (je *JSONEvaluator) Settings() json.RawMessage {
	return je.store().Raw()
}

func (je *JSONEvaluator) Resolve(flagKey string, context map[string]any) (model.Resolution, error) {
	res := model.Resolution{Key: flagKey, Reason: model.ErrorReason}

	flag, ok := je.store().Get(flagKey)
	if !ok {
		return res, fmt.Errorf("%s: flag %q not found", model.FlagNotFoundErrorCode, flagKey)
	}

	if flag.State == model.StateDisabled {
		res.Reason = model.DisabledReason
		res.Variables = map[string]any{}
		return res, nil
	}

	variant := flag.DefaultVariant
	res.Reason = model.StaticReason

	if len(flag.Targeting) > 0 && string(flag.Targeting) != "{}" && string(flag.Targeting) != "null" {
		target, err := applyTargeting(flag.Targeting, context)
		if err != nil {
			log.Errorf("error applying rules for flag %s: %v", flagKey, err)
			res.Reason = model.ErrorReason
			return res, fmt.Errorf("%s: %w", model.ParseErrorCode, err)
		}
		if target == "" {
			res.Reason = model.DefaultReason
			res.Variables = map[string]any{}
			return res, nil
		}
		variant = target
		res.Reason = model.TargetingMatchReason
	}

	v, ok := flag.Variants[variant]
	if !ok {
		res.Reason = model.ErrorReason
		return res, fmt.Errorf("%s: flag %s: targeting resolved to unknown variant %q", model.ParseErrorCode, flagKey, variant)
	}

	res.Variant = variant
	res.Enabled = true
	res.Variables = v.Variables
	if res.Variables == nil {
		res.Variables = map[string]any{}
	}
	return res, nil
}

// applyTargeting runs the JsonLogic rule and returns the variant name it selects,
// or "" when the rule yields null, false or an empty string.
func applyTargeting(targeting json.RawMessage, context map[string]any) (string, error) {
	data, err := json.Marshal(context)
	if err != nil {
		return "", fmt.Errorf("marshal targeting context: %w", err)
	}

	var out bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(targeting), bytes.NewReader(data), &out); err != nil {
		return "", err
	}

	var result interface{}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		return "", fmt.Errorf("decode targeting result: %w", err)
	}

	switch v := result.(type) {
	case nil:
		return "", nil
	case bool:
		if !v {
			return "", nil
		}
		return "", errors.New("targeting returned true instead of a variant name")
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("targeting returned %T instead of a variant name", result)
	}
}
