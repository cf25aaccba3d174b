package sdk

// Flag is the outcome of GetFlag for one user.
type Flag struct {
	Key       string
	Enabled   bool
	Variant   string
	Reason    string
	Variables map[string]any
}

func (f *Flag) IsEnabled() bool {
	return f != nil && f.Enabled
}

// GetVariable returns the named variable of the resolved variant, or defaultValue.
func (f *Flag) GetVariable(key string, defaultValue any) any {
	if f == nil {
		return defaultValue
	}
	if v, ok := f.Variables[key]; ok && v != nil {
		return v
	}
	return defaultValue
}

// GetVariables returns a copy of all variables of the resolved variant.
func (f *Flag) GetVariables() map[string]any {
	out := map[string]any{}
	if f == nil {
		return out
	}
	for k, v := range f.Variables {
		out[k] = v
	}
	return out
}
