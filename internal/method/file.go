package method

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chu3/brewpilot/internal/domain"
	"github.com/chu3/brewpilot/internal/logger"
)

// methodFile is the YAML shape of a user-authored method.
type methodFile struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	Params      struct {
		CoffeeGrams float64 `yaml:"coffee_grams"`
		WaterGrams  float64 `yaml:"water_grams"`
		Ratio       string  `yaml:"ratio"`
		Grind       string  `yaml:"grind"`
		TempCelsius float64 `yaml:"temp_celsius"`
	} `yaml:"params"`
	Stages []stageFile `yaml:"stages"`
}

// stageFile mirrors domain.Stage in YAML. Durations are Go duration
// strings ("2m30s"). pour_time stays a pointer so an absent key reads
// as nil (infer the pour) while an explicit "0s" reads as a no-pour
// stage.
type stageFile struct {
	Label       string  `yaml:"label"`
	Time        string  `yaml:"time"`
	Water       string  `yaml:"water"`
	PourTime    *string `yaml:"pour_time"`
	Detail      string  `yaml:"detail"`
	PourType    string  `yaml:"pour_type"`
	ValveStatus string  `yaml:"valve_status"`
}

// LoadDir parses every .yaml/.yml file in dir into methods. A missing
// directory is not an error; a malformed file is skipped with a
// warning so one bad method cannot take the catalog down.
func LoadDir(dir string, log *logger.Logger) ([]*domain.Method, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("no user method directory at %s", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("read method dir: %w", err)
	}

	var out []*domain.Method
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		m, err := LoadFile(path)
		if err != nil {
			log.Warn("skipping method file %s: %v", e.Name(), err)
			continue
		}
		out = append(out, m)
	}
	log.Info("loaded %d user methods from %s", len(out), dir)
	return out, nil
}

// LoadFile parses a single YAML method file.
func LoadFile(path string) (*domain.Method, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var mf methodFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return mf.toDomain()
}

func (mf *methodFile) toDomain() (*domain.Method, error) {
	if mf.Name == "" {
		return nil, fmt.Errorf("method has no name")
	}
	if len(mf.Stages) == 0 {
		return nil, fmt.Errorf("method %q has no stages", mf.Name)
	}
	if mf.ID == "" {
		mf.ID = slugify(mf.Name)
	}

	m := &domain.Method{
		ID:          mf.ID,
		Name:        mf.Name,
		Description: mf.Description,
		Tags:        mf.Tags,
		Params: domain.BrewParams{
			CoffeeGrams: mf.Params.CoffeeGrams,
			WaterGrams:  mf.Params.WaterGrams,
			Ratio:       mf.Params.Ratio,
			Grind:       mf.Params.Grind,
			TempCelsius: mf.Params.TempCelsius,
		},
		Version: 1,
	}

	var prev time.Duration
	for i, sf := range mf.Stages {
		end, err := time.ParseDuration(sf.Time)
		if err != nil {
			return nil, fmt.Errorf("stage %d: bad time %q: %w", i+1, sf.Time, err)
		}
		if end <= prev {
			return nil, fmt.Errorf("stage %d: time %s does not advance past %s", i+1, end, prev)
		}
		prev = end

		st := domain.Stage{
			Label:       sf.Label,
			Time:        end,
			Water:       sf.Water,
			Detail:      sf.Detail,
			PourType:    sf.PourType,
			ValveStatus: sf.ValveStatus,
		}
		if sf.PourTime != nil {
			pt, err := time.ParseDuration(*sf.PourTime)
			if err != nil {
				return nil, fmt.Errorf("stage %d: bad pour_time %q: %w", i+1, *sf.PourTime, err)
			}
			if pt < 0 {
				return nil, fmt.Errorf("stage %d: negative pour_time", i+1)
			}
			st.PourTime = &pt
		}
		m.Stages = append(m.Stages, st)
	}
	return m, nil
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(s), "-")
}
