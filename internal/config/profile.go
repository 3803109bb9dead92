package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"trustbench/pkg/models"
)

// LoadProfile reads a Profile document from path, content-sniffing
// whether it is JSON or YAML: the original profile loader accepted
// both interchangeably (trustbench_core.eval.utils.load_config used
// YAML but the studio layer's manifests were JSON), and spec.md §9
// left the choice of format open. The rule here is simple and
// deterministic: if the first non-whitespace byte is '{', parse as
// JSON; otherwise parse as YAML.
func LoadProfile(fs afero.Fs, path string) (*models.Profile, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("config: read profile %s: %w", path, err)
	}

	profile := &models.Profile{
		Thresholds: models.DefaultThresholds(),
		Sampling:   models.DefaultSampling(),
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(raw, profile); err != nil {
			return nil, fmt.Errorf("config: parse profile %s as JSON: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(raw, profile); err != nil {
			return nil, fmt.Errorf("config: parse profile %s as YAML: %w", path, err)
		}
	}

	if err := validateProfile(profile); err != nil {
		return nil, err
	}
	applyThresholdDefaults(profile)
	applySamplingDefaults(profile)
	return profile, nil
}

func validateProfile(p *models.Profile) error {
	if p.Name == "" {
		return fmt.Errorf("config: profile.name is required")
	}
	if p.DatasetPath == "" {
		return fmt.Errorf("config: profile.dataset_path is required")
	}
	if p.AdversarialPath == "" {
		return fmt.Errorf("config: profile.adversarial_path is required")
	}
	if p.UnsafePath == "" {
		return fmt.Errorf("config: profile.unsafe_path is required")
	}
	if p.Provider == "" {
		return fmt.Errorf("config: profile.provider is required")
	}
	return nil
}

// applyThresholdDefaults fills any zero-valued threshold field with the
// package default, so a profile only needs to override what it cares
// about.
func applyThresholdDefaults(p *models.Profile) {
	d := models.DefaultThresholds()
	if p.Thresholds.TaskFidelityMin == 0 {
		p.Thresholds.TaskFidelityMin = d.TaskFidelityMin
	}
	if p.Thresholds.SystemLatencyP95 == 0 {
		p.Thresholds.SystemLatencyP95 = d.SystemLatencyP95
	}
	if p.Thresholds.InjectionBlockRate == 0 {
		p.Thresholds.InjectionBlockRate = d.InjectionBlockRate
	}
	if p.Thresholds.EthicsMinAccuracy == 0 {
		p.Thresholds.EthicsMinAccuracy = d.EthicsMinAccuracy
	}
	if p.Thresholds.CompositeMin == 0 {
		p.Thresholds.CompositeMin = d.CompositeMin
	}
}

func applySamplingDefaults(p *models.Profile) {
	d := models.DefaultSampling()
	if p.Sampling.TaskFidelitySamples == 0 {
		p.Sampling.TaskFidelitySamples = d.TaskFidelitySamples
	}
	if p.Sampling.SystemPerfSamples == 0 {
		p.Sampling.SystemPerfSamples = d.SystemPerfSamples
	}
	if p.Sampling.EthicsSamples == 0 {
		p.Sampling.EthicsSamples = d.EthicsSamples
	}
}

// LoadDataset reads a JSON-lines or JSON-array dataset file into
// DatasetRecord rows, content-sniffing the same way LoadProfile does.
func LoadDataset(fs afero.Fs, path string) ([]models.DatasetRecord, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("config: read dataset %s: %w", path, err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var records []models.DatasetRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("config: parse dataset %s as JSON array: %w", path, err)
		}
		return records, nil
	}

	// JSON-lines: one record object per line, blank lines skipped.
	var records []models.DatasetRecord
	for i, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec models.DatasetRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("config: parse dataset %s line %d: %w", path, i+1, err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("config: dataset %s contains no records", path)
	}
	return records, nil
}

// LoadDatasets loads the profile's three pillar datasets and keys them
// by pillar name, ready to hand to orchestrator.Orchestrator.Run.
func LoadDatasets(fs afero.Fs, profile *models.Profile) (map[string][]models.DatasetRecord, error) {
	taskRecords, err := LoadDataset(fs, profile.DatasetPath)
	if err != nil {
		return nil, err
	}
	adversarialRecords, err := LoadDataset(fs, profile.AdversarialPath)
	if err != nil {
		return nil, err
	}
	unsafeRecords, err := LoadDataset(fs, profile.UnsafePath)
	if err != nil {
		return nil, err
	}
	return map[string][]models.DatasetRecord{
		"task_fidelity":  taskRecords,
		"security_eval":  adversarialRecords,
		"ethics_refusal": unsafeRecords,
	}, nil
}
