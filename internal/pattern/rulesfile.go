package pattern

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// RuleFile is the on-disk YAML form of a rule list:
//
//	rules:
//	  - pattern: gas station
//	    category: Transport
type RuleFile struct {
	Rules []Rule `yaml:"rules"`
}

// ReadRules decodes and validates a YAML rule list. Positions follow file order.
func ReadRules(r io.Reader) ([]Rule, error) {
	var file RuleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}

	for i := range file.Rules {
		file.Rules[i].Position = i
	}
	if err := ValidateRules(file.Rules); err != nil {
		return nil, err
	}
	return file.Rules, nil
}

// LoadRulesFile reads rules from a YAML file.
func LoadRulesFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the user's own config
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	rules, err := ReadRules(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// WriteRules encodes rules as YAML in list order.
func WriteRules(w io.Writer, rules []Rule) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(RuleFile{Rules: rules}); err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}
	return enc.Close()
}
